package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/b2cuseradmin/useradmin/internal/models"
	"github.com/b2cuseradmin/useradmin/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRouter(svc users.UserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	NewUserHandler(svc).Register(g.Group("/api"))
	return g
}

func do(g *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	g.ServeHTTP(w, req)
	return w
}

func createUser(t *testing.T, g *gin.Engine, body string) models.User {
	t.Helper()
	w := do(g, http.MethodPost, "/api/users", strings.NewReader(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var u models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	return u
}

func TestUserHandler_CRUD(t *testing.T) {
	g := newUserRouter(users.NewService(users.NewMemoryRepository()))

	// empty directory lists as an empty collection, not 404
	w := do(g, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	// CREATE ignores a supplied objectId
	supplied := uuid.NewString()
	created := createUser(t, g, fmt.Sprintf(`{"objectId":%q,"email":"ada@contoso.com","displayName":"Ada"}`, supplied))
	require.NotEmpty(t, created.ObjectID)
	require.NotEqual(t, supplied, created.ObjectID)

	// GET by objectId
	w = do(g, http.MethodGet, "/api/users?objectId="+created.ObjectID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ObjectID, got.ObjectID)
	assert.Equal(t, "Ada", got.DisplayName)

	// PUT replaces the record and returns 204 with no body
	w = do(g, http.MethodPut, "/api/users/"+created.ObjectID, strings.NewReader(`{"email":"ada@contoso.com","displayName":"Ada Lovelace","accountEnabled":true}`))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.String())

	w = do(g, http.MethodGet, "/api/users?objectId="+created.ObjectID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Ada Lovelace", got.DisplayName)
	assert.True(t, got.Enabled)

	// DELETE then GET is 404 with an empty body
	w = do(g, http.MethodDelete, "/api/users/"+created.ObjectID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(g, http.MethodGet, "/api/users?objectId="+created.ObjectID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Empty(t, w.Body.String())
}

func TestUserHandler_EmailSearch(t *testing.T) {
	g := newUserRouter(users.NewService(users.NewMemoryRepository()))
	createUser(t, g, `{"email":"ada@contoso.com"}`)
	createUser(t, g, `{"email":"grace@contoso.com"}`)
	createUser(t, g, `{"email":"linus@fabrikam.com"}`)

	var list []models.User
	w := do(g, http.MethodGet, "/api/users?emailSearch=contoso", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, u := range list {
		assert.Contains(t, u.Email, "contoso")
	}

	w = do(g, http.MethodGet, "/api/users?emailSearch=nobody", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	// empty search term lists everything
	w = do(g, http.MethodGet, "/api/users?emailSearch=", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
}

func TestUserHandler_ObjectIDTakesPriority(t *testing.T) {
	g := newUserRouter(users.NewService(users.NewMemoryRepository()))
	u := createUser(t, g, `{"email":"ada@contoso.com"}`)

	w := do(g, http.MethodGet, "/api/users?emailSearch=fabrikam&objectId="+u.ObjectID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, u.ObjectID, got.ObjectID)
}

func TestUserHandler_NotFoundAndBadInput(t *testing.T) {
	g := newUserRouter(users.NewService(users.NewMemoryRepository()))
	missing := uuid.NewString()

	w := do(g, http.MethodGet, "/api/users?objectId="+missing, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Empty(t, w.Body.String())

	w = do(g, http.MethodGet, "/api/users?objectId=not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodPut, "/api/users/"+missing, strings.NewReader(`{"email":"x@example.com"}`))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodDelete, "/api/users/"+missing, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodPost, "/api/users", strings.NewReader(`{"email":`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"invalid request body"}`, w.Body.String())

	w = do(g, http.MethodPut, "/api/users/"+missing, strings.NewReader(`{"accountEnabled":"yes"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"invalid request body"}`, w.Body.String())

	w = do(g, http.MethodPost, "/api/users", strings.NewReader(`{"displayName":"no email"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"invalid user"}`, w.Body.String())
}

func TestUserHandler_UpdatePathBodyMismatch(t *testing.T) {
	g := newUserRouter(users.NewService(users.NewMemoryRepository()))
	u := createUser(t, g, `{"email":"ada@contoso.com"}`)

	body := fmt.Sprintf(`{"objectId":%q,"email":"ada@contoso.com"}`, uuid.NewString())
	w := do(g, http.MethodPut, "/api/users/"+u.ObjectID, strings.NewReader(body))
	require.Equal(t, http.StatusBadRequest, w.Code)

	// matching ids in body and path are accepted, case-insensitively
	body = fmt.Sprintf(`{"objectId":%q,"email":"ada@contoso.com"}`, strings.ToUpper(u.ObjectID))
	w = do(g, http.MethodPut, "/api/users/"+u.ObjectID, strings.NewReader(body))
	require.Equal(t, http.StatusNoContent, w.Code)
}

// faultyService fails every call with the configured error.
type faultyService struct{ err error }

func (f *faultyService) GetByObjectID(context.Context, string) (*models.User, error) {
	return nil, f.err
}
func (f *faultyService) GetAll(context.Context) ([]models.User, error) { return nil, f.err }
func (f *faultyService) GetByEmail(context.Context, string) ([]models.User, error) {
	return nil, f.err
}
func (f *faultyService) Create(context.Context, *models.User) (*models.User, error) {
	return nil, f.err
}
func (f *faultyService) Update(context.Context, *models.User) error { return f.err }
func (f *faultyService) Delete(context.Context, string) error       { return f.err }

func TestUserHandler_ProviderFaultIs500WithoutDetail(t *testing.T) {
	secret := "dial tcp 10.0.0.7:443: connection refused"
	g := newUserRouter(&faultyService{err: &users.Error{Kind: users.KindProviderFault, Op: "test", Err: errors.New(secret)}})
	id := uuid.NewString()

	cases := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/users", ""},
		{http.MethodGet, "/api/users?emailSearch=a", ""},
		{http.MethodGet, "/api/users?objectId=" + id, ""},
		{http.MethodPost, "/api/users", `{"email":"a@example.com"}`},
		{http.MethodPut, "/api/users/" + id, `{"email":"a@example.com"}`},
		{http.MethodDelete, "/api/users/" + id, ""},
	}
	for _, tc := range cases {
		var body io.Reader
		if tc.body != "" {
			body = strings.NewReader(tc.body)
		}
		w := do(g, tc.method, tc.path, body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, "%s %s", tc.method, tc.path)
		assert.NotContains(t, w.Body.String(), "connection refused", "%s %s", tc.method, tc.path)
	}
}

func TestUserHandler_ConflictIs409(t *testing.T) {
	g := newUserRouter(&faultyService{err: fmt.Errorf("insert: %w", users.ErrConflict)})
	w := do(g, http.MethodPost, "/api/users", strings.NewReader(`{"email":"a@example.com"}`))
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandler_FixtureObjectIDsAreCaseInsensitive(t *testing.T) {
	repo, err := users.NewMemoryRepositoryFromFixture([]byte(`{"users":[
	 {"objectId":"7D3C2A10-5C7E-4B8E-9A51-0F1F7C2B9E01","email":"dana@example.com"}]}`))
	require.NoError(t, err)
	g := newUserRouter(users.NewService(repo))

	w := do(g, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"objectId":"7d3c2a10-5c7e-4b8e-9a51-0f1f7c2b9e01"`)

	for _, id := range []string{"7D3C2A10-5C7E-4B8E-9A51-0F1F7C2B9E01", "7d3c2a10-5c7e-4b8e-9a51-0f1f7c2b9e01"} {
		w = do(g, http.MethodGet, "/api/users?objectId="+id, nil)
		require.Equal(t, http.StatusOK, w.Code, id)
	}

	w = do(g, http.MethodDelete, "/api/users/7D3C2A10-5C7E-4B8E-9A51-0F1F7C2B9E01", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}
