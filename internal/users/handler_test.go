package users

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bissquit/userroles/internal/store"
	"github.com/bissquit/userroles/internal/store/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(NewService(st)).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type userResponse struct {
	ID    int64            `json:"id"`
	Roles []map[string]any `json:"roles"`
}

func createUser(t *testing.T, h http.Handler, body string) userResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var u userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u
}

func createRole(t *testing.T, h http.Handler, userID int64, body string) int64 {
	t.Helper()
	rec := do(t, h, http.MethodPost, fmt.Sprintf("/users/%d/roles", userID), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var role struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	return role.ID
}

func TestHandler_ListUsers_Empty(t *testing.T) {
	h := newTestRouter(t, memory.New())

	rec := do(t, h, http.MethodGet, "/users", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_CreateUser(t *testing.T) {
	h := newTestRouter(t, memory.New())

	rec := do(t, h, http.MethodPost, "/users", `{"name":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["name"])
	assert.Equal(t, []any{}, body["roles"])
	assert.NotZero(t, body["id"])
}

func TestHandler_CreateUser_EmptyBody(t *testing.T) {
	h := newTestRouter(t, memory.New())

	u := createUser(t, h, "")

	assert.NotZero(t, u.ID)
	assert.Empty(t, u.Roles)
}

func TestHandler_CreateUser_InvalidJSON(t *testing.T) {
	st := memory.New()
	h := newTestRouter(t, st)

	for _, body := range []string{`{"name":`, `[1,2]`, `"text"`} {
		rec := do(t, h, http.MethodPost, "/users", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, MsgInvalidJSON, rec.Body.String())
	}
	assert.Zero(t, st.Saves())
}

func TestHandler_GetUser(t *testing.T) {
	h := newTestRouter(t, memory.New())
	u := createUser(t, h, `{"name":"alice"}`)

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/users/%d", u.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "用户不存在", rec.Body.String())
}

func TestHandler_DeleteUser(t *testing.T) {
	h := newTestRouter(t, memory.New())
	keep := createUser(t, h, `{"name":"keep"}`)
	createRole(t, h, keep.ID, `{"name":"admin"}`)
	drop := createUser(t, h, `{"name":"drop"}`)

	rec := do(t, h, http.MethodDelete, fmt.Sprintf("/users/%d", drop.ID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgUserDeleted, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = do(t, h, http.MethodGet, "/users", "")
	var users []userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, keep.ID, users[0].ID)
	assert.Len(t, users[0].Roles, 1)
}

func TestHandler_DeleteUser_NotFound(t *testing.T) {
	h := newTestRouter(t, memory.New())

	for _, path := range []string{"/users/42", "/users/abc"} {
		rec := do(t, h, http.MethodDelete, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "用户不存在", rec.Body.String())
	}
}

func TestHandler_AddRole_UserNotFound(t *testing.T) {
	h := newTestRouter(t, memory.New())

	rec := do(t, h, http.MethodPost, "/users/42/roles", `{"name":"admin"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "用户不存在", rec.Body.String())
}

func TestHandler_UpdateRole_NotFound(t *testing.T) {
	h := newTestRouter(t, memory.New())
	u := createUser(t, h, `{}`)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing user", "/users/42/roles/1", "用户不存在"},
		{"non-numeric user", "/users/x/roles/1", "用户不存在"},
		{"missing role", fmt.Sprintf("/users/%d/roles/1", u.ID), "角色不存在"},
		{"non-numeric role", fmt.Sprintf("/users/%d/roles/x", u.ID), "角色不存在"},
		{"non-numeric role on missing user", "/users/42/roles/x", "用户不存在"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, tt.path, `{"name":"x"}`)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestHandler_DeleteRole_MissingRoleKeepsOthers(t *testing.T) {
	h := newTestRouter(t, memory.New())
	u := createUser(t, h, `{}`)
	roleID := createRole(t, h, u.ID, `{"name":"admin"}`)

	rec := do(t, h, http.MethodDelete, fmt.Sprintf("/users/%d/roles/%d", u.ID, roleID+1), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "角色不存在", rec.Body.String())

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/users/%d", u.ID), "")
	var got userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Roles, 1)
}

func TestHandler_StoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		loadErr error
		saveErr error
		method  string
		path    string
		want    string
	}{
		{"read failure", store.ErrRead, nil, http.MethodGet, "/users", MsgReadFailed},
		{"write failure", nil, store.ErrWrite, http.MethodPost, "/users", MsgSaveFailed},
		{"parse failure", fmt.Errorf("%w: bad", store.ErrParse), nil, http.MethodDelete, "/users/1", MsgParseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			st.LoadErr = tt.loadErr
			st.SaveErr = tt.saveErr
			h := newTestRouter(t, st)

			rec := do(t, h, tt.method, tt.path, `{}`)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestHandler_CorruptDataFile(t *testing.T) {
	h := newTestRouter(t, memory.NewWithRaw([]byte(`not json`)))

	rec := do(t, h, http.MethodGet, "/users", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgParseFailed, rec.Body.String())
}

func TestHandler_RoleLifecycle(t *testing.T) {
	h := newTestRouter(t, memory.New())
	u := createUser(t, h, `{"name":"alice"}`)

	rec := do(t, h, http.MethodPost, fmt.Sprintf("/users/%d/roles", u.ID), `{"name":"admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var role map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &role))
	assert.Equal(t, "admin", role["name"])
	roleID := int64(role["id"].(float64))

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/users/%d/roles/%d", u.ID, roleID), `{"name":"superadmin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"name":"superadmin"}`, roleID), rec.Body.String())

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/users/%d/roles/%d", u.ID, roleID), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgRoleDeleted, rec.Body.String())

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/users/%d", u.ID), "")
	var got userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotNil(t, got.Roles)
	assert.Empty(t, got.Roles)
}

func TestHandler_CreateUser_RolesWithoutIDs(t *testing.T) {
	h := newTestRouter(t, memory.New())

	u := createUser(t, h, `{"roles":[{"name":"a"},{"name":"b"}]}`)
	require.Len(t, u.Roles, 2)
	first := int64(u.Roles[0]["id"].(float64))
	second := int64(u.Roles[1]["id"].(float64))
	assert.NotZero(t, first)
	assert.NotZero(t, second)
	assert.NotEqual(t, first, second)

	rec := do(t, h, http.MethodDelete, fmt.Sprintf("/users/%d/roles/0", u.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "角色不存在", rec.Body.String())

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/users/%d/roles/%d", u.ID, first), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/users/%d", u.ID), "")
	var got userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "b", got.Roles[0]["name"])
}

func TestHandler_CreateUser_FalsyRolesAndNullID(t *testing.T) {
	h := newTestRouter(t, memory.New())

	for _, body := range []string{`{"roles":false}`, `{"roles":0}`, `{"roles":""}`, `{"roles":null}`} {
		u := createUser(t, h, body)
		assert.NotNil(t, u.Roles, body)
		assert.Empty(t, u.Roles, body)
	}

	rec := do(t, h, http.MethodPost, "/users", `{"id":null,"name":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotZero(t, body["id"])
	assert.Equal(t, "x", body["name"])
}

func TestHandler_CreateUser_InvalidField(t *testing.T) {
	st := memory.New()
	h := newTestRouter(t, st)

	for _, body := range []string{`{"roles":"admin"}`, `{"id":"abc"}`, `{"id":1.5}`} {
		rec := do(t, h, http.MethodPost, "/users", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, MsgInvalidField, rec.Body.String(), body)
	}
	assert.Zero(t, st.Saves())
}
