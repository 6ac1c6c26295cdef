package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/api/response"
	"github.com/daap14/teamup/internal/api/validation"
	"github.com/daap14/teamup/internal/coordinator"
	"github.com/daap14/teamup/internal/membership"
	"github.com/daap14/teamup/internal/team"
)

// TeamCoordinator is the part of the membership coordinator used by TeamHandler.
type TeamCoordinator interface {
	FormTeam(ctx context.Context, actorID uuid.UUID, in coordinator.TeamInput) (*coordinator.TeamDetail, error)
	UpdateTeam(ctx context.Context, actorID uuid.UUID, in coordinator.TeamInput) (*coordinator.TeamDetail, error)
	SetRecruiting(ctx context.Context, actorID uuid.UUID, recruiting bool) (*team.Team, error)
	VisitTeam(ctx context.Context, actorID, teamID uuid.UUID) (*coordinator.TeamDetail, error)
	CurrentTeam(ctx context.Context, actorID uuid.UUID) (*coordinator.TeamDetail, error)
	EndProject(ctx context.Context, actorID uuid.UUID, projectURL string) (*team.Team, error)
	Fire(ctx context.Context, actorID, targetID uuid.UUID) error
	Quit(ctx context.Context, actorID uuid.UUID) error
}

type teamRequest struct {
	ProjectName        string `json:"projectName"`
	ProjectDescription string `json:"projectDescription"`
	Expectation        string `json:"expectation"`
	OpenChatURL        string `json:"openChatUrl"`
	DesignerMaxCnt     *int   `json:"designerMaxCnt"`
	BackendMaxCnt      *int   `json:"backendMaxCnt"`
	FrontendMaxCnt     *int   `json:"frontendMaxCnt"`
	ManagerMaxCnt      *int   `json:"managerMaxCnt"`
}

func (req teamRequest) maxByRole() map[string]int {
	out := make(map[string]int, len(team.Roles))
	for role, n := range map[team.Role]*int{
		team.RoleDesigner: req.DesignerMaxCnt,
		team.RoleBackend:  req.BackendMaxCnt,
		team.RoleFrontend: req.FrontendMaxCnt,
		team.RoleManager:  req.ManagerMaxCnt,
	} {
		if n != nil {
			out[string(role)] = *n
		}
	}
	return out
}

type recruitingRequest struct {
	IsRecruiting *bool `json:"isRecruiting"`
}

type endProjectRequest struct {
	ProjectURL string `json:"projectUrl"`
}

type positionResponse struct {
	Role    string `json:"role"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

type teamResponse struct {
	ID                 string             `json:"id"`
	ProjectName        string             `json:"projectName"`
	ProjectDescription string             `json:"projectDescription"`
	Expectation        string             `json:"expectation"`
	OpenChatURL        string             `json:"openChatUrl"`
	ProjectURL         *string            `json:"projectUrl"`
	CompletedAt        *string            `json:"completedAt"`
	Positions          []positionResponse `json:"positions"`
	IsRecruiting       bool               `json:"isRecruiting"`
	VisitedCount       int64              `json:"visitedCount"`
	CreatedAt          string             `json:"createdAt"`
	UpdatedAt          string             `json:"updatedAt"`
}

type memberResponse struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	IsLeader bool   `json:"isLeader"`
	Status   string `json:"status"`
	JoinedAt string `json:"joinedAt"`
}

type teamDetailResponse struct {
	teamResponse
	Members       []memberResponse `json:"members"`
	PendingOffers []offerResponse  `json:"pendingOffers,omitempty"`
}

func toTeamResponse(t *team.Team) teamResponse {
	positions := make([]positionResponse, 0, len(team.Roles))
	for _, role := range team.Roles {
		slot := t.Capacity.Slot(role)
		positions = append(positions, positionResponse{Role: string(role), Current: slot.Current, Max: slot.Max})
	}
	return teamResponse{
		ID:                 t.ID.String(),
		ProjectName:        t.ProjectName,
		ProjectDescription: t.ProjectDescription,
		Expectation:        t.Expectation,
		OpenChatURL:        t.OpenChatURL,
		ProjectURL:         t.ProjectURL,
		CompletedAt:        response.OptionalTime(t.CompletedAt),
		Positions:          positions,
		IsRecruiting:       t.IsRecruiting,
		VisitedCount:       t.VisitedCount,
		CreatedAt:          response.Time(t.CreatedAt),
		UpdatedAt:          response.Time(t.UpdatedAt),
	}
}

func toMemberResponse(m *membership.Membership) memberResponse {
	return memberResponse{
		UserID:   m.UserID.String(),
		Role:     string(m.Role),
		IsLeader: m.IsLeader,
		Status:   string(m.Status),
		JoinedAt: response.Time(m.CreatedAt),
	}
}

func toTeamDetailResponse(d *coordinator.TeamDetail) teamDetailResponse {
	members := make([]memberResponse, 0, len(d.Members))
	for i := range d.Members {
		members = append(members, toMemberResponse(&d.Members[i]))
	}
	var pending []offerResponse
	for i := range d.PendingOffers {
		pending = append(pending, toOfferResponse(&d.PendingOffers[i]))
	}
	return teamDetailResponse{
		teamResponse:  toTeamResponse(d.Team),
		Members:       members,
		PendingOffers: pending,
	}
}

// TeamHandler handles team formation and team membership endpoints.
type TeamHandler struct {
	coord TeamCoordinator
	repo  team.Repository
}

// NewTeamHandler creates a new TeamHandler. repo serves the read-only
// recruiting listing.
func NewTeamHandler(coord TeamCoordinator, repo team.Repository) *TeamHandler {
	return &TeamHandler{coord: coord, repo: repo}
}

// decodeTeamInput reads and validates a create or update team body.
func decodeTeamInput(w http.ResponseWriter, r *http.Request) (coordinator.TeamInput, bool) {
	var req teamRequest
	if !decodeJSON(w, r, &req) {
		return coordinator.TeamInput{}, false
	}

	maxByRole := req.maxByRole()
	fieldErrors := validation.ValidateTeamRequest(validation.TeamRequest{
		ProjectName:        req.ProjectName,
		ProjectDescription: req.ProjectDescription,
		Expectation:        req.Expectation,
		OpenChatURL:        req.OpenChatURL,
		MaxByRole:          maxByRole,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, middleware.GetRequestID(r.Context()))
		return coordinator.TeamInput{}, false
	}

	in := coordinator.TeamInput{
		Profile: team.Profile{
			ProjectName:        strings.TrimSpace(req.ProjectName),
			ProjectDescription: strings.TrimSpace(req.ProjectDescription),
			Expectation:        strings.TrimSpace(req.Expectation),
			OpenChatURL:        strings.TrimSpace(req.OpenChatURL),
		},
		MaxByRole: make(map[team.Role]int, len(maxByRole)),
	}
	for role, n := range maxByRole {
		in.MaxByRole[team.Role(role)] = n
	}
	return in, true
}

// Create handles POST /teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	in, ok := decodeTeamInput(w, r)
	if !ok {
		return
	}

	detail, err := h.coord.FormTeam(r.Context(), middleware.CurrentUserID(r.Context()), in)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to form team")
		return
	}

	response.Success(w, http.StatusCreated, toTeamDetailResponse(detail), requestID)
}

// List handles GET /teams. Only recruiting teams are listed.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	page, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	filter := team.ListFilter{Page: page, Limit: limit, Order: team.OrderCreated}

	if v := r.URL.Query().Get("role"); v != "" {
		role, err := team.ParseRole(v)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "role must be one of DESIGNER, BACKEND, FRONTEND, MANAGER", requestID)
			return
		}
		filter.Role = &role
	}
	switch order := team.Order(r.URL.Query().Get("order")); order {
	case "":
	case team.OrderCreated, team.OrderPopularity:
		filter.Order = order
	default:
		response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "order must be created or popularity", requestID)
		return
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list teams", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list teams", requestID)
		return
	}

	items := make([]teamResponse, 0, len(result.Teams))
	for i := range result.Teams {
		items = append(items, toTeamResponse(&result.Teams[i]))
	}
	response.SuccessList(w, http.StatusOK, items, result.Total, result.Page, result.Limit, requestID)
}

// Get handles GET /teams/{id}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.coord.VisitTeam(r.Context(), middleware.CurrentUserID(r.Context()), id)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to get team")
		return
	}

	response.Success(w, http.StatusOK, toTeamDetailResponse(detail), requestID)
}

// Current handles GET /teams/current.
func (h *TeamHandler) Current(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	detail, err := h.coord.CurrentTeam(r.Context(), middleware.CurrentUserID(r.Context()))
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to get current team")
		return
	}

	response.Success(w, http.StatusOK, toTeamDetailResponse(detail), requestID)
}

// Update handles PUT /teams/current.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	in, ok := decodeTeamInput(w, r)
	if !ok {
		return
	}

	detail, err := h.coord.UpdateTeam(r.Context(), middleware.CurrentUserID(r.Context()), in)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to update team")
		return
	}

	response.Success(w, http.StatusOK, toTeamDetailResponse(detail), requestID)
}

// SetRecruiting handles PATCH /teams/current/recruiting.
func (h *TeamHandler) SetRecruiting(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req recruitingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsRecruiting == nil {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "isRecruiting", Message: "isRecruiting is required"}}, requestID)
		return
	}

	t, err := h.coord.SetRecruiting(r.Context(), middleware.CurrentUserID(r.Context()), *req.IsRecruiting)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to update recruiting status")
		return
	}

	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// End handles POST /teams/current/end. A blank projectUrl disbands the team.
func (h *TeamHandler) End(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req endProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fieldErrors := validation.ValidateProjectURL(req.ProjectURL); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	t, err := h.coord.EndProject(r.Context(), middleware.CurrentUserID(r.Context()), req.ProjectURL)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to end project")
		return
	}

	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// Fire handles DELETE /teams/current/members/{userId}.
func (h *TeamHandler) Fire(w http.ResponseWriter, r *http.Request) {
	targetID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	if err := h.coord.Fire(r.Context(), middleware.CurrentUserID(r.Context()), targetID); err != nil {
		writeCoordinatorError(w, r, err, "Failed to fire member")
		return
	}

	response.NoContent(w)
}

// Leave handles POST /teams/current/leave.
func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Quit(r.Context(), middleware.CurrentUserID(r.Context())); err != nil {
		writeCoordinatorError(w, r, err, "Failed to leave team")
		return
	}

	response.NoContent(w)
}
