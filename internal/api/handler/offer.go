package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/api/response"
	"github.com/daap14/teamup/internal/api/validation"
	"github.com/daap14/teamup/internal/offer"
	"github.com/daap14/teamup/internal/team"
)

// OfferCoordinator is the part of the membership coordinator used by OfferHandler.
type OfferCoordinator interface {
	OfferByUser(ctx context.Context, actorID, teamID uuid.UUID, role team.Role) (*offer.Offer, error)
	OfferByTeam(ctx context.Context, actorID, candidateID uuid.UUID, role team.Role) (*offer.Offer, error)
	Decide(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side, accept bool) (*offer.Offer, error)
	Cancel(ctx context.Context, actorID, offerID uuid.UUID, side offer.Side) (*offer.Offer, error)
	ListUserOffers(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error)
	ListTeamOffers(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error)
}

type createOfferRequest struct {
	Role string `json:"role"`
}

type decideOfferRequest struct {
	Accept *bool `json:"accept"`
}

type offerResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	TeamID    string  `json:"teamId"`
	Role      string  `json:"role"`
	Initiator string  `json:"initiator"`
	Decision  string  `json:"decision"`
	DecidedAt *string `json:"decidedAt"`
	CreatedAt string  `json:"createdAt"`
}

func toOfferResponse(o *offer.Offer) offerResponse {
	return offerResponse{
		ID:        o.ID.String(),
		UserID:    o.UserID.String(),
		TeamID:    o.TeamID.String(),
		Role:      string(o.Role),
		Initiator: string(o.Initiator),
		Decision:  string(o.Decision),
		DecidedAt: response.OptionalTime(o.DecidedAt),
		CreatedAt: response.Time(o.CreatedAt),
	}
}

// OfferHandler handles the offer workflow endpoints. Routes under /user act
// for the candidate side, routes under /team for the team leader side.
type OfferHandler struct {
	coord OfferCoordinator
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(coord OfferCoordinator) *OfferHandler {
	return &OfferHandler{coord: coord}
}

func decodeOfferRole(w http.ResponseWriter, r *http.Request) (team.Role, bool) {
	var req createOfferRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	if fieldErrors := validation.ValidateRole("role", req.Role); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, middleware.GetRequestID(r.Context()))
		return "", false
	}
	role, _ := team.ParseRole(req.Role) // already validated
	return role, true
}

// Apply handles POST /teams/{id}/offers.
func (h *OfferHandler) Apply(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	role, ok := decodeOfferRole(w, r)
	if !ok {
		return
	}

	o, err := h.coord.OfferByUser(r.Context(), middleware.CurrentUserID(r.Context()), teamID, role)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to apply to team")
		return
	}

	response.Success(w, http.StatusCreated, toOfferResponse(o), requestID)
}

// Invite handles POST /users/{id}/offers.
func (h *OfferHandler) Invite(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	candidateID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	role, ok := decodeOfferRole(w, r)
	if !ok {
		return
	}

	o, err := h.coord.OfferByTeam(r.Context(), middleware.CurrentUserID(r.Context()), candidateID, role)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to invite user")
		return
	}

	response.Success(w, http.StatusCreated, toOfferResponse(o), requestID)
}

// DecideAsUser handles PATCH /user/offers/{id}.
func (h *OfferHandler) DecideAsUser(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, offer.SideUser)
}

// DecideAsTeam handles PATCH /team/offers/{id}.
func (h *OfferHandler) DecideAsTeam(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, offer.SideTeamLeader)
}

// CancelAsUser handles DELETE /user/offers/{id}.
func (h *OfferHandler) CancelAsUser(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, offer.SideUser)
}

// CancelAsTeam handles DELETE /team/offers/{id}.
func (h *OfferHandler) CancelAsTeam(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, offer.SideTeamLeader)
}

// ListForUser handles GET /user/offers.
func (h *OfferHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.coord.ListUserOffers)
}

// ListForTeam handles GET /team/offers.
func (h *OfferHandler) ListForTeam(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.coord.ListTeamOffers)
}

func (h *OfferHandler) decide(w http.ResponseWriter, r *http.Request, side offer.Side) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req decideOfferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Accept == nil {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "accept", Message: "accept is required"}}, requestID)
		return
	}

	o, err := h.coord.Decide(r.Context(), middleware.CurrentUserID(r.Context()), id, side, *req.Accept)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to decide offer")
		return
	}

	response.Success(w, http.StatusOK, toOfferResponse(o), requestID)
}

func (h *OfferHandler) cancel(w http.ResponseWriter, r *http.Request, side offer.Side) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.coord.Cancel(r.Context(), middleware.CurrentUserID(r.Context()), id, side)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to cancel offer")
		return
	}

	response.Success(w, http.StatusOK, toOfferResponse(o), requestID)
}

type listOffersFunc func(ctx context.Context, actorID uuid.UUID, filter offer.ListFilter) (*offer.ListResult, error)

func (h *OfferHandler) list(w http.ResponseWriter, r *http.Request, listFn listOffersFunc) {
	requestID := middleware.GetRequestID(r.Context())

	page, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	filter := offer.ListFilter{Page: page, Limit: limit}

	if v := r.URL.Query().Get("initiator"); v != "" {
		side := offer.Side(v)
		if !side.Valid() {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "initiator must be USER or TEAM_LEADER", requestID)
			return
		}
		filter.Initiator = &side
	}
	if v := r.URL.Query().Get("decision"); v != "" {
		decision := offer.Decision(v)
		switch decision {
		case offer.DecisionPending, offer.DecisionAccepted, offer.DecisionDeclined, offer.DecisionCancelled:
			filter.Decision = &decision
		default:
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "decision must be PENDING, ACCEPTED, DECLINED or CANCELLED", requestID)
			return
		}
	}
	if v := r.URL.Query().Get("role"); v != "" {
		role, err := team.ParseRole(v)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "role must be one of DESIGNER, BACKEND, FRONTEND, MANAGER", requestID)
			return
		}
		filter.Role = &role
	}

	result, err := listFn(r.Context(), middleware.CurrentUserID(r.Context()), filter)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to list offers")
		return
	}

	items := make([]offerResponse, 0, len(result.Offers))
	for i := range result.Offers {
		items = append(items, toOfferResponse(&result.Offers[i]))
	}
	response.SuccessList(w, http.StatusOK, items, result.Total, result.Page, result.Limit, requestID)
}
