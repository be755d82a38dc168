package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bissquit/userroles/internal/domain"
	"github.com/bissquit/userroles/internal/pkg/ctxlog"
	"github.com/bissquit/userroles/internal/pkg/httputil"
	"github.com/bissquit/userroles/internal/store"
	"github.com/go-chi/chi/v5"
)

// Response texts.
const (
	MsgUserDeleted  = "用户已删除"
	MsgRoleDeleted  = "角色已删除"
	MsgInvalidJSON  = "无效的JSON"
	MsgInvalidField = "无效的字段"
	MsgReadFailed   = "读取数据失败"
	MsgParseFailed  = "数据解析失败"
	MsgSaveFailed   = "保存数据失败"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound, Message: ErrUserNotFound.Error()},
	{Error: ErrRoleNotFound, Status: http.StatusNotFound, Message: ErrRoleNotFound.Error()},
	{Error: domain.ErrInvalidField, Status: http.StatusBadRequest, Message: MsgInvalidField},
	{Error: store.ErrRead, Status: http.StatusInternalServerError, Message: MsgReadFailed},
	{Error: store.ErrParse, Status: http.StatusInternalServerError, Message: MsgParseFailed},
	{Error: store.ErrWrite, Status: http.StatusInternalServerError, Message: MsgSaveFailed},
}

// Handler handles HTTP requests for users and roles.
type Handler struct {
	service *Service
}

// NewHandler creates a new users handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers user and role routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Delete("/{id}", h.DeleteUser)

		r.Post("/{userId}/roles", h.AddRole)
		r.Put("/{userId}/roles/{roleId}", h.UpdateRole)
		r.Delete("/{userId}/roles/{roleId}", h.DeleteRole)
	})
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, users)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		httputil.HandleError(r.Context(), w, ErrUserNotFound, errorMappings)
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, user)
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	user, err := h.service.CreateUser(r.Context(), fields)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusCreated, user)
}

// DeleteUser handles DELETE /users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		httputil.HandleError(r.Context(), w, ErrUserNotFound, errorMappings)
		return
	}

	ctx := ctxlog.With(r.Context(), "user_id", id)
	if err := h.service.DeleteUser(ctx, id); err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.Text(w, http.StatusOK, MsgUserDeleted)
}

// AddRole handles POST /users/{userId}/roles.
func (h *Handler) AddRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(r, "userId")
	if !ok {
		httputil.HandleError(r.Context(), w, ErrUserNotFound, errorMappings)
		return
	}

	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	ctx := ctxlog.With(r.Context(), "user_id", userID)
	role, err := h.service.AddRole(ctx, userID, fields)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusCreated, role)
}

// UpdateRole handles PUT /users/{userId}/roles/{roleId}.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.parseRolePath(w, r)
	if !ok {
		return
	}

	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	ctx := ctxlog.With(r.Context(), "user_id", userID, "role_id", roleID)
	role, err := h.service.UpdateRole(ctx, userID, roleID, fields)
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusOK, role)
}

// DeleteRole handles DELETE /users/{userId}/roles/{roleId}.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := h.parseRolePath(w, r)
	if !ok {
		return
	}

	ctx := ctxlog.With(r.Context(), "user_id", userID, "role_id", roleID)
	if err := h.service.DeleteRole(ctx, userID, roleID); err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}

	httputil.Text(w, http.StatusOK, MsgRoleDeleted)
}

// parseRolePath reads both ids of a role route. A role id that is not an
// integer matches no role, but a missing user still takes precedence.
func (h *Handler) parseRolePath(w http.ResponseWriter, r *http.Request) (userID, roleID int64, ok bool) {
	userID, ok = parseID(r, "userId")
	if !ok {
		httputil.HandleError(r.Context(), w, ErrUserNotFound, errorMappings)
		return 0, 0, false
	}

	roleID, ok = parseID(r, "roleId")
	if ok {
		return userID, roleID, true
	}

	err := ErrRoleNotFound
	if _, getErr := h.service.GetUser(r.Context(), userID); getErr != nil {
		err = getErr
	}
	httputil.HandleError(r.Context(), w, err, errorMappings)
	return 0, 0, false
}

func parseID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeFields reads a JSON object body. An empty body is an empty object.
func decodeFields(w http.ResponseWriter, r *http.Request) (domain.Fields, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httputil.Text(w, status, MsgInvalidJSON)
		return nil, false
	}

	fields := make(domain.Fields)
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, true
	}

	if err := json.Unmarshal(body, &fields); err != nil {
		httputil.Text(w, http.StatusBadRequest, MsgInvalidJSON)
		return nil, false
	}
	if fields == nil {
		fields = make(domain.Fields)
	}
	return fields, true
}
