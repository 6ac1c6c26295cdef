package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/coordinator"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/notification"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// --- Mocks ---

type mockCoordinator struct {
	formTeamFn       func(ctx context.Context, actorID uuid.UUID, in coordinator.TeamInput) (*coordinator.TeamDetail, error)
	updateTeamFn     func(ctx context.Context, actorID uuid.UUID, in coordinator.TeamInput) (*coordinator.TeamDetail, error)
	setRecruitingFn  func(ctx context.Context, actorID uuid.UUID, recruiting bool) (*team.Team, error)
	visitTeamFn      func(ctx context.Context, actorID, teamID uuid.UUID) (*coordinator.TeamDetail, error)
	currentTeamFn    func(ctx context.Context, actorID uuid.UUID) (*coordinator.TeamDetail, error)
	endProjectFn     func(ctx context.Context, actorID uuid.UUID, projectURL string) (*team.Team, error)
	fireFn           func(ctx context.Context, actorID, targetID uuid.UUID) error
	quitFn           func(ctx context.Context, actorID uuid.UUID) error
	offerByUserFn    func(ctx context.Context, actorID, teamID uuid.UUID, role team.Role) (*offer.Offer, error)
	offerByTeamFn    func(ctx context.Context, actorID, candidateID uuid.UUID, role team.Role) (*offer.Offer, error)
	decideFn         func(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side, accept bool) (*offer.Offer, error)
	cancelFn         func(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side) (*offer.Offer, error)
	listUserOffersFn func(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error)
	listTeamOffersFn func(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error)
	setSeekingFn     func(ctx context.Context, actorID uuid.UUID, seeking bool) (*auth.User, error)
	setPositionFn    func(ctx context.Context, actorID uuid.UUID, position team.Role) (*auth.User, error)
}

func (m *mockCoordinator) FormTeam(ctx context.Context, actorID uuid.UUID, in coordinator.TeamInput) (*coordinator.TeamDetail, error) {
	return m.formTeamFn(ctx, actorID, in)
}

func (m *mockCoordinator) UpdateTeam(ctx context.Context, actorID uuid.UUID, in coordinator.TeamInput) (*coordinator.TeamDetail, error) {
	return m.updateTeamFn(ctx, actorID, in)
}

func (m *mockCoordinator) SetRecruiting(ctx context.Context, actorID uuid.UUID, recruiting bool) (*team.Team, error) {
	return m.setRecruitingFn(ctx, actorID, recruiting)
}

func (m *mockCoordinator) VisitTeam(ctx context.Context, actorID, teamID uuid.UUID) (*coordinator.TeamDetail, error) {
	return m.visitTeamFn(ctx, actorID, teamID)
}

func (m *mockCoordinator) CurrentTeam(ctx context.Context, actorID uuid.UUID) (*coordinator.TeamDetail, error) {
	return m.currentTeamFn(ctx, actorID)
}

func (m *mockCoordinator) EndProject(ctx context.Context, actorID uuid.UUID, projectURL string) (*team.Team, error) {
	return m.endProjectFn(ctx, actorID, projectURL)
}

func (m *mockCoordinator) Fire(ctx context.Context, actorID, targetID uuid.UUID) error {
	return m.fireFn(ctx, actorID, targetID)
}

func (m *mockCoordinator) Quit(ctx context.Context, actorID uuid.UUID) error {
	return m.quitFn(ctx, actorID)
}

func (m *mockCoordinator) OfferByUser(ctx context.Context, actorID, teamID uuid.UUID, role team.Role) (*offer.Offer, error) {
	return m.offerByUserFn(ctx, actorID, teamID, role)
}

func (m *mockCoordinator) OfferByTeam(ctx context.Context, actorID, candidateID uuid.UUID, role team.Role) (*offer.Offer, error) {
	return m.offerByTeamFn(ctx, actorID, candidateID, role)
}

func (m *mockCoordinator) Decide(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side, accept bool) (*offer.Offer, error) {
	return m.decideFn(ctx, actorID, offerID, side, accept)
}

func (m *mockCoordinator) Cancel(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side) (*offer.Offer, error) {
	return m.cancelFn(ctx, actorID, offerID, side)
}

func (m *mockCoordinator) ListUserOffers(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error) {
	return m.listUserOffersFn(ctx, actorID, filter)
}

func (m *mockCoordinator) ListTeamOffers(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error) {
	return m.listTeamOffersFn(ctx, actorID, filter)
}

func (m *mockCoordinator) SetSeeking(ctx context.Context, actorID uuid.UUID, seeking bool) (*auth.User, error) {
	return m.setSeekingFn(ctx, actorID, seeking)
}

func (m *mockCoordinator) SetPosition(ctx context.Context, actorID uuid.UUID, position team.Role) (*auth.User, error) {
	return m.setPositionFn(ctx, actorID, position)
}

// mockUserRepo embeds the interface so tests only stub what they call.
type mockUserRepo struct {
	auth.UserRepository
	createFn  func(ctx context.Context, u *auth.User) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*auth.User, error)
	listFn    func(ctx context.Context, filter auth.ListFilter) ([]auth.User, error)
	revokeFn  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *auth.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockUserRepo) List(ctx context.Context, filter auth.ListFilter) ([]auth.User, error) {
	return m.listFn(ctx, filter)
}

func (m *mockUserRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	return m.revokeFn(ctx, id)
}

type mockTeamRepo struct {
	team.Repository
	listFn func(ctx context.Context, filter team.ListFilter) (*team.ListResult, error)
}

func (m *mockTeamRepo) List(ctx context.Context, filter team.ListFilter) (*team.ListResult, error) {
	return m.listFn(ctx, filter)
}

type mockNotificationRepo struct {
	notification.Repository
	listByRecipientFn func(ctx context.Context, recipientID uuid.UUID, page, limit int) (*notification.ListResult, error)
	markReadFn        func(ctx context.Context, id, recipientID uuid.UUID) error
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, page, limit int) (*notification.ListResult, error) {
	return m.listByRecipientFn(ctx, recipientID, page, limit)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return m.markReadFn(ctx, id, recipientID)
}

type fixedKeys struct{}

func (fixedKeys) GenerateKey() (string, string, string, error) {
	return "tu_abcd1234_secret", "tu_abcd1234", "hash", nil
}

// --- Helpers ---

// actorID is the authenticated caller of every request built by makeChiRequest.
var actorID = uuid.New()

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	ctx := middleware.WithIdentity(req.Context(), &auth.Identity{UserID: actorID, UserName: "caller"})
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}

	return req.WithContext(ctx), httptest.NewRecorder()
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &env)
	require.NoError(t, err, "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseEnvelope(t, w)["error"].(map[string]interface{})
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	return errObj["code"].(string)
}

func sampleTeam() *team.Team {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	t := team.New(team.Profile{
		ProjectName:        "teamup",
		ProjectDescription: "find your side project crew",
		Expectation:        "weekly sync",
		OpenChatURL:        "https://open.example.com/teamup",
	}, map[team.Role]int{team.RoleDesigner: 1, team.RoleBackend: 2, team.RoleFrontend: 1, team.RoleManager: 0})
	t.ID = uuid.New()
	t.CreatedAt = now
	t.UpdatedAt = now
	return t
}

func sampleDetail() *coordinator.TeamDetail {
	t := sampleTeam()
	leader := membership.New(t.ID, actorID, team.RoleBackend, true)
	leader.CreatedAt = t.CreatedAt
	_ = t.Join(team.RoleBackend)
	return &coordinator.TeamDetail{Team: t, Members: []membership.Membership{*leader}}
}

func sampleOffer(side offer.Side) *offer.Offer {
	o := offer.New(actorID, uuid.New(), team.RoleDesigner, side)
	o.ID = uuid.New()
	o.CreatedAt = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return o
}

func validTeamBody() map[string]interface{} {
	return map[string]interface{}{
		"projectName":        "teamup",
		"projectDescription": "find your side project crew",
		"expectation":        "weekly sync",
		"openChatUrl":        "https://open.example.com/teamup",
		"designerMaxCnt":     1,
		"backendMaxCnt":      2,
		"frontendMaxCnt":     1,
		"managerMaxCnt":      0,
	}
}
