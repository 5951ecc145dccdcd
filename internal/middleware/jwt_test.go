package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		principal, _ := PrincipalFrom(c)
		return c.JSON(principal)
	})
	return app
}

func whoami(t *testing.T, app *fiber.App, header string) (*http.Response, Principal) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var principal Principal
	if resp.StatusCode == fiber.StatusOK {
		defer resp.Body.Close()
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&principal))
	}
	return resp, principal
}

func TestJWTProtectedStoresPrincipal(t *testing.T) {
	app := newProtectedApp()
	exp := time.Now().Add(time.Hour).Unix()

	single := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": " ops-7 ", "role": "Admin", "exp": exp})
	resp, principal := whoami(t, app, "Bearer "+single)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "ops-7", principal.Subject)
	require.Equal(t, []string{"admin"}, principal.Roles)

	list := signToken(t, jwt.SigningMethodHS512, jwt.MapClaims{"sub": "ops-8", "roles": []string{"", "Analyst", "ADMIN"}, "exp": exp})
	resp, principal = whoami(t, app, "bearer "+list)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"analyst", "admin"}, principal.Roles)
	require.True(t, principal.HasRole("admin"))
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := newProtectedApp()
	exp := time.Now().Add(time.Hour).Unix()

	expired := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops-7", "exp": time.Now().Add(-time.Hour).Unix()})
	noExpiry := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops-7"})
	noSubject := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin", "exp": exp})
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "ops-7", "exp": exp}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"empty token":    "Bearer ",
		"garbage token":  "Bearer not-a-token",
		"expired token":  "Bearer " + expired,
		"no expiry":      "Bearer " + noExpiry,
		"no subject":     "Bearer " + noSubject,
		"alg none":       "Bearer " + unsigned,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := whoami(t, app, header)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestRateLimitReturnsEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit("evaluate", 1, time.Minute))
	app.Post("/evaluate", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	first, err := app.Test(httptest.NewRequest(http.MethodPost, "/evaluate", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, first.StatusCode)

	second, err := app.Test(httptest.NewRequest(http.MethodPost, "/evaluate", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, second.StatusCode)
}
