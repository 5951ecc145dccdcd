package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func roleApp(principal *Principal) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if principal != nil {
			c.Locals(principalKey, *principal)
		}
		return c.Next()
	})
	app.Post("/analytics/run", RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})
	return app
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name      string
		principal *Principal
		status    int
	}{
		{name: "admin", principal: &Principal{Subject: "ops-1", Roles: []string{"analyst", "admin"}}, status: fiber.StatusAccepted},
		{name: "role match ignores case", principal: &Principal{Subject: "ops-1", Roles: []string{"ADMIN"}}, status: fiber.StatusAccepted},
		{name: "analyst only", principal: &Principal{Subject: "ops-2", Roles: []string{"analyst"}}, status: fiber.StatusForbidden},
		{name: "no roles", principal: &Principal{Subject: "ops-3"}, status: fiber.StatusForbidden},
		{name: "unauthenticated", status: fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := roleApp(tc.principal).Test(httptest.NewRequest(http.MethodPost, "/analytics/run", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
