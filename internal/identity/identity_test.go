package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var clientID, sessionID string
	h := Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		clientID = ClientIDFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, clientID, sessionID
}

func TestMiddlewareIssuesCookie(t *testing.T) {
	t.Parallel()

	rec, clientID, sessionID := serve(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, isValidAnonID(clientID), clientID)
	assert.Equal(t, DefaultSessionIDValue, sessionID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AnonCookieName, cookies[0].Name)
	assert.Equal(t, clientID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	t.Parallel()

	existing := "anon_0123456789abcdef0123456789abcdef"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: existing})
	req.Header.Set(SessionHeaderName, "tab-7")

	_, clientID, sessionID := serve(t, req)
	assert.Equal(t, existing, clientID)
	assert.Equal(t, "tab-7", sessionID)
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/?session_id=bad%20id", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "admin"})

	_, clientID, sessionID := serve(t, req)
	assert.NotEqual(t, "admin", clientID)
	assert.True(t, isValidAnonID(clientID))
	assert.Equal(t, DefaultSessionIDValue, sessionID)
}

func TestClientKeyFallsBackToIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", ClientKey(req))

	req = req.WithContext(WithClientID(req.Context(), "anon_x"))
	assert.Equal(t, "anon_x", ClientKey(req))
}
