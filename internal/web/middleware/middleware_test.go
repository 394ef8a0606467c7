package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/database"
)

type staticSession auth.Session

func (s staticSession) Current(context.Context) auth.Session {
	return auth.Session(s)
}

func serve(t *testing.T, mw func(http.Handler) http.Handler) (*httptest.ResponseRecorder, auth.Session) {
	t.Helper()
	var seen auth.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/camps", nil))
	return rec, seen
}

func decodeDenial(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestRequireLogin(t *testing.T) {
	rec, _ := serve(t, RequireLogin(staticSession{}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeDenial(t, rec)
	assert.Equal(t, auth.LoginPath, body["redirect"])
	assert.Equal(t, false, body["success"])

	donor := staticSession{UserID: 4, Username: "dora", Role: database.RoleDonor, LoggedIn: true}
	rec, seen := serve(t, RequireLogin(donor))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, auth.Session(donor), seen)
}

func TestRequireRole(t *testing.T) {
	staffOnly := func(s staticSession) func(http.Handler) http.Handler {
		return RequireRole(s, database.RoleAdmin, database.RoleStaff)
	}

	rec, _ := serve(t, staffOnly(staticSession{}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = serve(t, staffOnly(staticSession{UserID: 4, Role: database.RoleVolunteer, LoggedIn: true}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.HomePath, decodeDenial(t, rec)["redirect"])

	rec, seen := serve(t, staffOnly(staticSession{UserID: 2, Role: database.RoleStaff, LoggedIn: true}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, database.RoleStaff, seen.Role)
}

func TestGetSessionWithoutGuard(t *testing.T) {
	assert.Equal(t, auth.Session{}, GetSession(context.Background()))
}
