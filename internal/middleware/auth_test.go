package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/roster/internal/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "roster"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", Auth(jwtSvc), func(c *gin.Context) {
		c.String(http.StatusOK, "%v", c.MustGet(ContextUserIDKey))
	})
	return r, jwtSvc
}

func getProtected(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAcceptsValidBearerToken(t *testing.T) {
	r, jwtSvc := newAuthRouter(t)

	token, err := jwtSvc.GenerateSignInToken(auth.SignInTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	w := getProtected(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-1", w.Body.String())
}

func TestAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	r, _ := newAuthRouter(t)

	require.Equal(t, http.StatusUnauthorized, getProtected(r, "").Code)
	require.Equal(t, http.StatusUnauthorized, getProtected(r, "Basic abc").Code)
	require.Equal(t, http.StatusUnauthorized, getProtected(r, "Bearer garbage").Code)

	// A token signed with another secret is rejected.
	other, err := auth.NewJWTService(auth.JWTConfig{Secret: "different", Issuer: "roster"})
	require.NoError(t, err)
	token, err := other.GenerateSignInToken(auth.SignInTokenInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, getProtected(r, "Bearer "+token).Code)
}
