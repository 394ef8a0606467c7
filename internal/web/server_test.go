package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/notification"
	"github.com/reliefops/reliefhub/internal/session"
)

type testEnv struct {
	ts     *httptest.Server
	db     *database.DB
	svc    *auth.Service
	alerts *alertRecorder
}

type alertRecorder struct {
	mu     sync.Mutex
	events []notification.Event
}

func (a *alertRecorder) Notify(event notification.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *alertRecorder) types() []notification.EventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]notification.EventType, len(a.events))
	for i, e := range a.events {
		out[i] = e.Type
	}
	return out
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{Driver: database.DialectSQLite, Path: filepath.Join(t.TempDir(), "web.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sm := session.New(database.NewSessionStore(db), session.Options{})
	svc := auth.NewService(database.NewUsers(db), sm, bcrypt.MinCost)

	alerts := &alertRecorder{}
	ts := httptest.NewServer(NewServer(db, svc, sm, alerts, "").Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, svc: svc, alerts: alerts}
}

func (e *testEnv) seedUser(t *testing.T, username string, role database.Role) {
	t.Helper()
	_, err := e.svc.Register(auth.RegisterInput{
		Username: username,
		Email:    username + "@relief.example",
		Password: "password1",
		FullName: strings.ToUpper(username[:1]) + username[1:],
		Role:     role,
	})
	require.NoError(t, err)
}

func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) login(t *testing.T, username string) *http.Client {
	t.Helper()
	c := e.client(t)
	status, body := e.do(t, c, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": "password1"})
	require.Equal(t, http.StatusOK, status, "login failed: %v", body)
	return c
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, payload any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	status, body := e.do(t, e.client(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestGuardsRedirect(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "dora", database.RoleDonor)

	status, body := e.do(t, e.client(t), http.MethodGet, "/api/disasters", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, auth.LoginPath, body["redirect"])
	assert.Equal(t, false, body["success"])

	donor := e.login(t, "dora")
	status, _ = e.do(t, donor, http.MethodGet, "/api/disasters", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = e.do(t, donor, http.MethodPost, "/api/disasters", map[string]any{"disaster_name": "Flood"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, auth.HomePath, body["redirect"])

	status, _ = e.do(t, donor, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRegisterAndLoginOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	c := e.client(t)

	form := url.Values{
		"username":  {"vince"},
		"email":     {"vince@relief.example"},
		"password":  {"password1"},
		"full_name": {"Vince Ortega"},
		"role":      {"volunteer"},
	}
	resp, err := c.PostForm(e.ts.URL+"/auth/register", form)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	status, body := e.do(t, c, http.MethodPost, "/auth/register", map[string]string{
		"username": "vince", "email": "other@relief.example", "password": "password1", "full_name": "Other",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Username already exists", body["message"])

	status, body = e.do(t, c, http.MethodPost, "/auth/register", map[string]string{
		"username": "boss", "email": "boss@relief.example", "password": "password1", "full_name": "Boss", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "role")

	status, body = e.do(t, c, http.MethodPost, "/auth/register", map[string]string{
		"username": "longpw", "email": "longpw@relief.example", "password": strings.Repeat("p", 80), "full_name": "Long Password",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "password")

	status, body = e.do(t, c, http.MethodPost, "/auth/register", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "full_name")

	status, body = e.do(t, c, http.MethodPost, "/auth/login", map[string]string{"username": "vince@relief.example", "password": "password1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.VolunteerDashboardPath, body["redirect"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, user, "password_hash")

	status, body = e.do(t, c, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, status)
	sess := body["session"].(map[string]any)
	assert.Equal(t, "vince", sess["username"])
	assert.Equal(t, "volunteer", sess["role"])

	status, _ = e.do(t, c, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, c, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginFailure(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "dora", database.RoleDonor)

	status, body := e.do(t, e.client(t), http.MethodPost, "/auth/login", map[string]string{"username": "dora", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid username or password", body["message"])

	status, body = e.do(t, e.client(t), http.MethodPost, "/auth/login", map[string]string{"username": "dora"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username and password are required", body["message"])
}

func TestReliefWorkflow(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "sam", database.RoleStaff)
	e.seedUser(t, "dora", database.RoleDonor)

	staff := e.login(t, "sam")

	status, body := e.do(t, staff, http.MethodPost, "/api/disasters", map[string]any{
		"disaster_name": "River Flood",
		"disaster_type": "flood",
		"location":      "Delta",
		"severity":      "high",
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	disasterID := int64(body["disaster_id"].(float64))

	status, body = e.do(t, staff, http.MethodPost, "/api/disasters", map[string]any{"disaster_name": "Bad", "severity": "apocalyptic"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "severity")

	for _, camp := range []map[string]any{
		{"disaster_id": disasterID, "camp_name": "North", "location": "Hill", "capacity": 500, "current_occupancy": 400},
		{"disaster_id": disasterID, "camp_name": "South", "location": "School", "capacity": 300, "current_occupancy": 250},
	} {
		status, body = e.do(t, staff, http.MethodPost, "/api/camps", camp)
		require.Equal(t, http.StatusCreated, status, "%v", body)
	}

	status, body = e.do(t, staff, http.MethodPost, "/api/camps", map[string]any{"disaster_id": 999, "camp_name": "Ghost", "location": "Nowhere", "capacity": 10})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "disaster_id")

	donor := e.login(t, "dora")
	status, body = e.do(t, donor, http.MethodPost, "/api/donations", map[string]any{
		"disaster_id":   disasterID,
		"donation_type": "monetary",
		"amount":        100,
		"status":        "completed",
	})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	donationID := int64(body["donation_id"].(float64))

	status, body = e.do(t, donor, http.MethodPost, "/api/donations", map[string]any{"donation_type": "monetary"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "amount")

	status, body = e.do(t, donor, http.MethodGet, "/api/donations/mine", nil)
	require.Equal(t, http.StatusOK, status)
	mine := body["data"].([]any)
	require.Len(t, mine, 1)
	assert.Equal(t, "pending", mine[0].(map[string]any)["status"])

	status, _ = e.do(t, donor, http.MethodGet, "/api/donations", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, staff, http.MethodPut, "/api/donations/"+itoa(donationID)+"/status", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)

	status, body = e.do(t, staff, http.MethodGet, "/api/disasters/"+itoa(disasterID)+"/statistics", nil)
	require.Equal(t, http.StatusOK, status)
	stats := body["data"].(map[string]any)
	assert.Equal(t, float64(2), stats["total_camps"])
	assert.Equal(t, float64(650), stats["total_occupancy"])
	assert.Equal(t, float64(1), stats["total_donations"])
	assert.Equal(t, float64(100), stats["total_amount"])

	status, body = e.do(t, staff, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, status)
	dash := body["data"].(map[string]any)
	assert.Equal(t, float64(1), dash["total_disasters"])
	assert.Equal(t, float64(650), dash["total_occupancy"])
	assert.Equal(t, float64(100), dash["total_amount"])

	status, body = e.do(t, staff, http.MethodPatch, "/api/disasters/"+itoa(disasterID), map[string]any{"status": "resolved", "bogus": 1})
	require.Equal(t, http.StatusOK, status, "%v", body)
	status, body = e.do(t, staff, http.MethodGet, "/api/disasters?status=resolved", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = e.do(t, staff, http.MethodPatch, "/api/disasters/"+itoa(disasterID), map[string]any{"bogus": 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No valid fields to update", body["message"])

	status, _ = e.do(t, staff, http.MethodGet, "/api/disasters/424242", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = e.do(t, staff, http.MethodGet, "/api/disasters/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Completing twice alerts once
	status, _ = e.do(t, staff, http.MethodPut, "/api/donations/"+itoa(donationID)+"/status", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, []notification.EventType{
		notification.EventDisasterDeclared,
		notification.EventCampOpened,
		notification.EventCampOpened,
		notification.EventDonationReceived,
		notification.EventDonationCompleted,
		notification.EventDisasterStatusChanged,
	}, e.alerts.types())

	e.alerts.mu.Lock()
	declared := e.alerts.events[0]
	completed := e.alerts.events[4]
	e.alerts.mu.Unlock()
	assert.Equal(t, "high", declared.Fields["severity"])
	assert.Equal(t, "100.00", completed.Fields["amount"])
}

func TestAdminUserManagement(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "ada", database.RoleAdmin)
	e.seedUser(t, "dora", database.RoleDonor)

	admin := e.login(t, "ada")

	status, body := e.do(t, admin, http.MethodGet, "/api/users?role=donor", nil)
	require.Equal(t, http.StatusOK, status)
	users := body["data"].([]any)
	require.Len(t, users, 1)
	doraID := int64(users[0].(map[string]any)["user_id"].(float64))

	status, _ = e.do(t, admin, http.MethodPatch, "/api/users/"+itoa(doraID), map[string]any{"status": "inactive"})
	require.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, e.client(t), http.MethodPost, "/auth/login", map[string]string{"username": "dora", "password": "password1"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = e.do(t, admin, http.MethodPatch, "/api/users/"+itoa(doraID), map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "email")

	status, body = e.do(t, admin, http.MethodPatch, "/api/users/"+itoa(doraID), map[string]any{"email": "ada@relief.example"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already exists", body["message"])

	status, body = e.do(t, admin, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, status)
	adaID := int64(body["data"].(map[string]any)["user_id"].(float64))
	status, _ = e.do(t, admin, http.MethodDelete, "/api/users/"+itoa(adaID), nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, admin, http.MethodDelete, "/api/users/"+itoa(doraID), nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, admin, http.MethodGet, "/api/users/"+itoa(doraID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}
