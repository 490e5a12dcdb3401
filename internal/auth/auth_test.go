package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProtectedRouter builds a router with one route behind RequireAuth that echoes the resolved
// user id.
func newProtectedRouter(a *Authenticator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/whoami", a.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": CurrentUserId(c)})
	})
	return router
}

// runRequest executes a GET against the protected route with the given Authorization header.
func runRequest(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/whoami", nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(recorder, request)
	return recorder
}

// TestRequireAuthValidToken expects that a freshly issued token passes the gate and resolves to
// the user it was issued for.
func TestRequireAuthValidToken(t *testing.T) {
	a := New("test-secret")
	token, err := a.IssueToken(7, time.Hour)
	require.NoError(t, err)

	recorder := runRequest(newProtectedRouter(a), "Bearer "+token)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"user_id":7`)
}

// TestRequireAuthMissingHeader expects UNAUTHORIZED without an Authorization header.
func TestRequireAuthMissingHeader(t *testing.T) {
	a := New("test-secret")
	recorder := runRequest(newProtectedRouter(a), "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// TestRequireAuthMalformedHeader expects UNAUTHORIZED for headers that are not bearer tokens.
func TestRequireAuthMalformedHeader(t *testing.T) {
	a := New("test-secret")
	for _, header := range []string{"Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "garbage"} {
		recorder := runRequest(newProtectedRouter(a), header)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, "header: "+header)
	}
}

// TestRequireAuthWrongSecret expects UNAUTHORIZED for a token signed with a different secret.
func TestRequireAuthWrongSecret(t *testing.T) {
	other := New("other-secret")
	token, err := other.IssueToken(7, time.Hour)
	require.NoError(t, err)

	a := New("test-secret")
	recorder := runRequest(newProtectedRouter(a), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

// TestRequireAuthExpiredToken expects UNAUTHORIZED once the token's lifetime is over.
func TestRequireAuthExpiredToken(t *testing.T) {
	a := New("test-secret")
	token, err := a.IssueToken(7, -time.Minute)
	require.NoError(t, err)

	recorder := runRequest(newProtectedRouter(a), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
