package FiberConfig

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Meridian/Config"
	"Meridian/Models"
	"Meridian/Planner"
	"Meridian/Store"
	"Meridian/middleware"
)

func newTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	db, err := Models.OpenInMemory(t.Name())
	require.NoError(t, err)
	Models.DB = db
	middleware.SecretKey = "test-secret"

	catalog, err := Config.LoadCatalog("")
	require.NoError(t, err)
	store := Store.New(db)
	logDir := t.TempDir()
	app := NewApp(Deps{
		DB:           db,
		Store:        store,
		Engine:       Planner.NewEngine(store),
		Catalog:      catalog,
		LogDir:       logDir,
		TemplatesDir: "../Templates",
	})
	return app, logDir
}

func seedUser(t *testing.T, email string, permission int) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, Models.DB.Create(&Models.User{
		Name:       strings.Split(email, "@")[0],
		Email:      email,
		Password:   hash,
		Permission: permission,
		Department: "sales",
	}).Error)
}

func send(t *testing.T, app *fiber.App, method, path string, body interface{}, cookie *http.Cookie) *http.Response {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, app *fiber.App, email string) *http.Cookie {
	t.Helper()
	resp := send(t, app, "POST", "/api/Login", fiber.Map{"email": email, "password": "password123"}, nil)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatal("login did not set the session cookie")
	return nil
}

func TestHealthIsPublic(t *testing.T) {
	app, _ := newTestApp(t)
	resp := send(t, app, "GET", "/health", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoutesNeedSession(t *testing.T) {
	app, _ := newTestApp(t)
	for _, path := range []string{"/api/User", "/api/plans/today", "/api/tasks/board", "/api/leaderboard", "/api/catalog"} {
		resp := send(t, app, "GET", path, nil, nil)
		resp.Body.Close()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
	}
	resp := send(t, app, "GET", "/api/plans/today", nil, &http.Cookie{Name: middleware.CookieName, Value: "garbage"})
	resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLoginAndPermissions(t *testing.T) {
	app, logDir := newTestApp(t)
	seedUser(t, "alex@x.io", Models.PermissionStaff)
	seedUser(t, "root@x.io", Models.PermissionAdmin)

	resp := send(t, app, "POST", "/api/Login", fiber.Map{"email": "alex@x.io", "password": "wrong-password"}, nil)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	staff := login(t, app, "ALEX@x.io")

	resp = send(t, app, "GET", "/api/User", nil, staff)
	var me Models.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, "alex", me.Name)

	resp = send(t, app, "GET", "/api/plans/today", nil, staff)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	newUser := fiber.Map{"name": "casey", "email": "casey@x.io", "password": "password123", "permission": 1}
	resp = send(t, app, "POST", "/api/RegisterUser", newUser, staff)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = send(t, app, "GET", "/api/logs/stats", nil, staff)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	admin := login(t, app, "root@x.io")
	resp = send(t, app, "POST", "/api/RegisterUser", newUser, admin)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp = send(t, app, "POST", "/api/RegisterUser", newUser, admin)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	login(t, app, "casey@x.io")

	resp = send(t, app, "GET", "/api/logs/stats", nil, admin)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := os.ReadFile(filepath.Join(logDir, "requests.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"path":"/api/plans/today"`)
	assert.NotContains(t, string(raw), `"path":"/health"`)
}
