package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/daap14/teamup/internal/api/middleware"
	"github.com/daap14/teamup/internal/api/response"
	"github.com/daap14/teamup/internal/api/validation"
	"github.com/daap14/teamup/internal/auth"
	"github.com/daap14/teamup/internal/team"
)

// KeyGenerator issues API keys for new users.
type KeyGenerator interface {
	GenerateKey() (rawKey, prefix, hash string, err error)
}

// UserCoordinator is the part of the membership coordinator used by UserHandler.
type UserCoordinator interface {
	SetSeeking(ctx context.Context, actorID uuid.UUID, seeking bool) (*auth.User, error)
	SetPosition(ctx context.Context, actorID uuid.UUID, position team.Role) (*auth.User, error)
}

type createUserRequest struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

type seekingRequest struct {
	IsSeekingTeam *bool `json:"isSeekingTeam"`
}

type positionRequest struct {
	Position string `json:"position"`
}

type userResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Position      *string `json:"position"`
	IsSeekingTeam bool    `json:"isSeekingTeam"`
	ApiKeyPrefix  string  `json:"apiKeyPrefix"`
	IsSuperuser   bool    `json:"isSuperuser"`
	CreatedAt     string  `json:"createdAt"`
	RevokedAt     *string `json:"revokedAt,omitempty"`
}

type userWithKeyResponse struct {
	userResponse
	ApiKey string `json:"apiKey"`
}

func toUserResponse(u *auth.User) userResponse {
	resp := userResponse{
		ID:            u.ID.String(),
		Name:          u.Name,
		IsSeekingTeam: u.IsSeekingTeam,
		ApiKeyPrefix:  u.ApiKeyPrefix,
		IsSuperuser:   u.IsSuperuser,
		CreatedAt:     response.Time(u.CreatedAt),
		RevokedAt:     response.OptionalTime(u.RevokedAt),
	}
	if u.HasPosition() {
		p := string(*u.Position)
		resp.Position = &p
	}
	return resp
}

// UserHandler handles user administration and the caller's own profile.
type UserHandler struct {
	keys     KeyGenerator
	userRepo auth.UserRepository
	coord    UserCoordinator
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(keys KeyGenerator, userRepo auth.UserRepository, coord UserCoordinator) *UserHandler {
	return &UserHandler{
		keys:     keys,
		userRepo: userRepo,
		coord:    coord,
	}
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fieldErrors := validation.ValidateCreateUserRequest(validation.CreateUserRequest{
		Name:     req.Name,
		Position: req.Position,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	rawKey, prefix, hash, err := h.keys.GenerateKey()
	if err != nil {
		slog.Error("failed to generate API key", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
		return
	}

	u := &auth.User{
		Name:          strings.TrimSpace(req.Name),
		IsSeekingTeam: true,
		ApiKeyPrefix:  prefix,
		ApiKeyHash:    hash,
	}
	if p := strings.TrimSpace(req.Position); p != "" {
		role, _ := team.ParseRole(p) // already validated
		u.Position = &role
	}

	if err := h.userRepo.Create(r.Context(), u); err != nil {
		slog.Error("failed to create user", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
		return
	}

	response.Success(w, http.StatusCreated, userWithKeyResponse{
		userResponse: toUserResponse(u),
		ApiKey:       rawKey,
	}, requestID)
}

// List handles GET /users. seeking=true keeps only users looking for a team;
// position filters by role.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var filter auth.ListFilter
	if v := r.URL.Query().Get("seeking"); v != "" {
		seeking, err := strconv.ParseBool(v)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "seeking must be a boolean", requestID)
			return
		}
		filter.SeekingOnly = seeking
	}
	if v := r.URL.Query().Get("position"); v != "" {
		role, err := team.ParseRole(v)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_PARAM", "position must be one of DESIGNER, BACKEND, FRONTEND, MANAGER", requestID)
			return
		}
		filter.Position = &role
	}

	users, err := h.userRepo.List(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users", requestID)
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		items = append(items, toUserResponse(&users[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), 1, len(items), requestID)
}

// Delete handles DELETE /users/{id} (soft-revoke).
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found", requestID)
			return
		}
		slog.Error("failed to get user", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke user", requestID)
		return
	}

	if u.IsSuperuser {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Cannot revoke the superuser", requestID)
		return
	}

	if err := h.userRepo.Revoke(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			response.Err(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found", requestID)
		case errors.Is(err, auth.ErrUserRevoked):
			response.NoContent(w)
		default:
			slog.Error("failed to revoke user", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke user", requestID)
		}
		return
	}

	response.NoContent(w)
}

// Me handles GET /user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	u, err := h.userRepo.GetByID(r.Context(), middleware.CurrentUserID(r.Context()))
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to get user")
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// SetSeeking handles PATCH /user/seeking.
func (h *UserHandler) SetSeeking(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req seekingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsSeekingTeam == nil {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "isSeekingTeam", Message: "isSeekingTeam is required"}}, requestID)
		return
	}

	u, err := h.coord.SetSeeking(r.Context(), middleware.CurrentUserID(r.Context()), *req.IsSeekingTeam)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to update seeking status")
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// SetPosition handles PATCH /user/position.
func (h *UserHandler) SetPosition(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req positionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fieldErrors := validation.ValidateRole("position", req.Position); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}
	role, _ := team.ParseRole(req.Position) // already validated

	u, err := h.coord.SetPosition(r.Context(), middleware.CurrentUserID(r.Context()), role)
	if err != nil {
		writeCoordinatorError(w, r, err, "Failed to update position")
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}
