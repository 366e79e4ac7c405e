package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"regdesk/internal/platform/middleware"
	"regdesk/internal/user/models"
	id "regdesk/pkg/domain"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/requestcontext"
)

// Service defines the account operations the handler exposes.
type Service interface {
	CreateUser(ctx context.Context, email, name string, role id.Role, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, string, error)
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Handler wires account endpoints to the user service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a user handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated account endpoints.
func (h *Handler) Register(r chi.Router) {
	adminOnly := middleware.RequireRole(id.RoleAdmin, h.logger)
	r.With(adminOnly).Get("/users", h.HandleList)
	r.With(adminOnly).Post("/users", h.HandleCreate)
	r.Get("/users/{userID}", h.HandleGet)
}

// RegisterPublic mounts login, which has no auth requirement.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/login", h.HandleLogin)
}

// CreateUserRequest registers an account.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if _, err := id.ParseRole(r.Role); err != nil {
		return err
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "password is required")
	}
	return nil
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}
	return nil
}

// LoginResponse carries the issued token alongside the account.
type LoginResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

// ListUsersResponse wraps the account listing.
type ListUsersResponse struct {
	Users []*models.User `json:"users"`
}

// HandleCreate handles POST /users.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	role, _ := id.ParseRole(req.Role)
	user, err := h.service.CreateUser(ctx, req.Email, req.Name, role, req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "user creation failed",
			"request_id", requestID,
			"email", strings.ToLower(req.Email),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user created",
		"request_id", requestID,
		"user_id", user.ID.String(),
		"role", string(user.Role),
	)
	httputil.WriteJSON(w, http.StatusCreated, user)
}

// HandleLogin handles POST /login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, token, err := h.service.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		"request_id", requestID,
		"user_id", user.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{User: user, AccessToken: token})
}

// HandleGet handles GET /users/{userID}. Customers can only read their own
// account; admins can read anyone's.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if requestcontext.Role(ctx) != id.RoleAdmin && requestcontext.UserID(ctx) != userID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot read another user's account"))
		return
	}

	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// HandleList handles GET /users.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.service.ListUsers(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	httputil.WriteJSON(w, http.StatusOK, ListUsersResponse{Users: users})
}
