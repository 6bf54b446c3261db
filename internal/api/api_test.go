package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/codehub-io/codehub-server/internal/auth"
	"github.com/codehub-io/codehub-server/internal/config"
	"github.com/codehub-io/codehub-server/internal/db/models"
	"github.com/codehub-io/codehub-server/internal/refstore"
)

type testServer struct {
	handler http.Handler
	cfg     *config.Config
	db      *gorm.DB
	store   *refstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Project{}, &models.Membership{}, &models.Snippet{}))

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
		DefaultBranch: "master",
		StoreBasePath: t.TempDir(),
		StoreDirPerms: 0755,
	}
	store := refstore.NewStore(cfg.StoreBasePath, cfg.StoreDirPerms)
	handler := SetupRouter(cfg, store, db, log.New(io.Discard, "", 0))

	return &testServer{handler: handler, cfg: cfg, db: db, store: store}
}

func (s *testServer) user(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := models.NewUser(username, username+"@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, models.NewUserStore(s.db).Create(user))
	return user
}

func (s *testServer) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := auth.GenerateJWTToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenDuration)
	require.NoError(t, err)
	return token
}

// request performs an HTTP request against the router. A non-nil body is
// JSON-encoded; an empty token leaves the request unauthenticated.
func (s *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (s *testServer) createProject(t *testing.T, token, name string) map[string]any {
	t.Helper()
	rec := s.request(t, http.MethodPost, "/projects", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decode[map[string]any](t, rec)
}

func TestMissingCredential(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/projects", "/projects/demo", "/projects/demo/snippets"} {
		rec := s.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		body := decode[map[string]string](t, rec)
		assert.Equal(t, "401 Unauthorized", body["message"], path)
	}
}

func TestBadToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.request(t, http.MethodGet, "/projects", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "dexter")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.SetBasicAuth("dexter", "secret123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.SetBasicAuth("dexter", "wrong")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(t, http.MethodPost, "/users", "", map[string]string{
		"username": "dexter", "email": "dexter@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "dexter", created["username"])

	rec = s.request(t, http.MethodPost, "/session", "", map[string]string{
		"email": "dexter@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode[map[string]any](t, rec)
	token, _ := session["token"].(string)
	require.NotEmpty(t, token)

	// the issued token authenticates API calls
	rec = s.request(t, http.MethodGet, "/projects", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(t, http.MethodPost, "/session", "", map[string]string{
		"email": "dexter@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []map[string]string{
		{"username": "", "email": "a@b.co", "password": "secret123"},
		{"username": "u", "email": "not-an-email", "password": "secret123"},
		{"username": "u", "email": "a@b.co", "password": "short"},
	}
	for _, body := range cases {
		rec := s.request(t, http.MethodPost, "/users", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%v", body)
	}
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	token := s.token(t, owner)

	project := s.createProject(t, token, "My Project")
	assert.Equal(t, "my-project", project["code"])
	assert.Equal(t, "master", project["default_branch"])
	assert.Equal(t, true, project["issues_enabled"])

	// fetch by code and by numeric id
	rec := s.request(t, http.MethodGet, "/projects/my-project", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	id := int(project["id"].(float64))
	rec = s.request(t, http.MethodGet, fmt.Sprintf("/projects/%d", id), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(t, http.MethodPut, "/projects/my-project", token, map[string]any{
		"name": "Renamed", "wiki_enabled": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "Renamed", updated["name"])
	assert.Equal(t, false, updated["wiki_enabled"])

	rec = s.request(t, http.MethodDelete, "/projects/my-project", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(t, http.MethodGet, "/projects/my-project", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectCreateValidationIs404(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, s.user(t, "owner"))

	rec := s.request(t, http.MethodPost, "/projects", token, map[string]string{"name": ""})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "404 Not found", body["message"])
}

func TestHiddenProjectIsUniform404(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	outsider := s.user(t, "outsider")
	s.createProject(t, s.token(t, owner), "Secret")

	// a project the user may not read and one that does not exist
	// produce byte-identical responses
	hidden := s.request(t, http.MethodGet, "/projects/secret", s.token(t, outsider), nil)
	missing := s.request(t, http.MethodGet, "/projects/no-such", s.token(t, outsider), nil)
	assert.Equal(t, http.StatusNotFound, hidden.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), hidden.Body.String())

	body := decode[map[string]string](t, hidden)
	assert.Equal(t, "404 Not found", body["message"])
}

func TestMembersEndpoints(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	a := s.user(t, "a")
	b := s.user(t, "b")
	token := s.token(t, owner)
	s.createProject(t, token, "Demo")

	rec := s.request(t, http.MethodPost, "/projects/demo/users", token, map[string]any{
		"user_ids": []uint{a.ID, b.ID}, "project_access": "developer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	created := decode[map[string]int](t, rec)
	assert.Equal(t, 2, created["created"])

	rec = s.request(t, http.MethodGet, "/projects/demo/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[[]map[string]any](t, rec)
	require.Len(t, members, 3)
	// the implicit owner entry comes first
	assert.Equal(t, "owner", members[0]["access_level"])
	assert.Equal(t, "owner", members[0]["username"])
	assert.Equal(t, "developer", members[1]["access_level"])

	rec = s.request(t, http.MethodPut, "/projects/demo/users", token, map[string]any{
		"user_ids": []uint{a.ID}, "project_access": "master",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[map[string]int](t, rec)
	assert.Equal(t, 1, updated["updated"])

	// DELETE takes membership ids, not user ids
	membershipID := uint(members[2]["id"].(float64))
	rec = s.request(t, http.MethodDelete, "/projects/demo/users", token, map[string]any{
		"user_ids": []uint{membershipID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	removed := decode[map[string]int](t, rec)
	assert.Equal(t, 1, removed["removed"])
}

func TestMembersMutationRequiresMaster(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	dev := s.user(t, "dev")
	other := s.user(t, "other")
	token := s.token(t, owner)
	s.createProject(t, token, "Demo")

	rec := s.request(t, http.MethodPost, "/projects/demo/users", token, map[string]any{
		"user_ids": []uint{dev.ID}, "project_access": "developer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// developers can read the member list but not change it
	devToken := s.token(t, dev)
	rec = s.request(t, http.MethodGet, "/projects/demo/users", devToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.request(t, http.MethodPost, "/projects/demo/users", devToken, map[string]any{
		"user_ids": []uint{other.ID}, "project_access": "guest",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "404 Not found", body["message"])
}

func TestMembersInvalidAccessLevelIs404(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	a := s.user(t, "a")
	token := s.token(t, owner)
	s.createProject(t, token, "Demo")

	for _, level := range []string{"owner", "superuser", ""} {
		rec := s.request(t, http.MethodPost, "/projects/demo/users", token, map[string]any{
			"user_ids": []uint{a.ID}, "project_access": level,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code, "level %q", level)
	}
}

func TestSnippetsEndpoints(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	token := s.token(t, owner)
	s.createProject(t, token, "Demo")

	rec := s.request(t, http.MethodPost, "/projects/demo/snippets", token, map[string]string{
		"title": "Greeting", "file_name": "hello.rb", "code": "puts 'hi'",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	snippet := decode[map[string]any](t, rec)
	assert.Equal(t, "Greeting", snippet["title"])
	assert.Equal(t, "puts 'hi'", snippet["code"])
	id := int(snippet["id"].(float64))

	rec = s.request(t, http.MethodGet, fmt.Sprintf("/projects/demo/snippets/%d", id), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// partial update keeps the untouched fields
	rec = s.request(t, http.MethodPut, fmt.Sprintf("/projects/demo/snippets/%d", id), token, map[string]string{
		"code": "puts 'bye'",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[map[string]any](t, rec)
	assert.Equal(t, "Greeting", updated["title"])
	assert.Equal(t, "puts 'bye'", updated["code"])

	rec = s.request(t, http.MethodGet, fmt.Sprintf("/projects/demo/snippets/%d/raw", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "puts 'bye'", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = s.request(t, http.MethodDelete, fmt.Sprintf("/projects/demo/snippets/%d", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the id is gone; deleting again is 404
	rec = s.request(t, http.MethodDelete, fmt.Sprintf("/projects/demo/snippets/%d", id), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnippetCreateWithoutTitleIs404(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, s.user(t, "owner"))
	s.createProject(t, token, "Demo")

	rec := s.request(t, http.MethodPost, "/projects/demo/snippets", token, map[string]string{
		"file_name": "hello.rb", "code": "puts 'hi'",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "404 Not found", body["message"])
}

func TestRepositoryEndpoints(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	token := s.token(t, owner)
	s.createProject(t, token, "Demo")

	repo, err := s.store.Open("demo")
	require.NoError(t, err)
	var head string
	for _, branch := range []string{"master", "develop", "feature-x"} {
		head, err = repo.CommitFiles(branch, "seed <seed@example.com>", "initial import", map[string][]byte{
			"README.md": []byte("# Demo\n"),
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.SetRef(refstore.RefTag, "v1.0", head))
	require.NoError(t, repo.SetRef(refstore.RefTag, "v1.1", head))

	// branches come back ascending by name
	rec := s.request(t, http.MethodGet, "/projects/demo/repository/branches", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	branches := decode[[]map[string]any](t, rec)
	require.Len(t, branches, 3)
	assert.Equal(t, "develop", branches[0]["name"])
	assert.Equal(t, "feature-x", branches[1]["name"])
	assert.Equal(t, "master", branches[2]["name"])
	commit, ok := branches[0]["commit"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, commit["id"])
	assert.Equal(t, "initial import", commit["message"])

	// tags come back descending by name
	rec = s.request(t, http.MethodGet, "/projects/demo/repository/tags", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tags := decode[[]map[string]any](t, rec)
	require.Len(t, tags, 2)
	assert.Equal(t, "v1.1", tags[0]["name"])
	assert.Equal(t, "v1.0", tags[1]["name"])

	rec = s.request(t, http.MethodGet, "/projects/demo/repository/branches/master", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	branch := decode[map[string]any](t, rec)
	assert.Equal(t, "master", branch["name"])

	rec = s.request(t, http.MethodGet, "/projects/demo/repository/branches/no-such", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBlobEndpoint(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	token := s.token(t, owner)
	s.createProject(t, token, "Demo")

	repo, err := s.store.Open("demo")
	require.NoError(t, err)
	_, err = repo.CommitFiles("master", "seed <seed@example.com>", "initial import", map[string][]byte{
		"README.md": []byte("# Demo\n"),
	})
	require.NoError(t, err)

	rec := s.request(t, http.MethodGet, "/projects/demo/repository/commits/master/blob?filepath=README.md", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "# Demo\n", rec.Body.String())

	// unknown revision and unknown path are the same 404
	badRev := s.request(t, http.MethodGet, "/projects/demo/repository/commits/no-such/blob?filepath=README.md", token, nil)
	badPath := s.request(t, http.MethodGet, "/projects/demo/repository/commits/master/blob?filepath=missing.txt", token, nil)
	assert.Equal(t, http.StatusNotFound, badRev.Code)
	assert.Equal(t, http.StatusNotFound, badPath.Code)
	assert.Equal(t, badRev.Body.String(), badPath.Body.String())

	// filepath is required
	rec = s.request(t, http.MethodGet, "/projects/demo/repository/commits/master/blob", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
