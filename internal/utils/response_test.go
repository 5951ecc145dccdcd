package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorq-api/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func call(t *testing.T, handler fiber.Handler) (int, envelope) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestSuccessResponses(t *testing.T) {
	status, payload := call(t, func(c *fiber.Ctx) error {
		return utils.OK(c, []string{"tutor_0001"}, "", map[string]interface{}{"total": 1, "has_more": false})
	})
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.JSONEq(t, `["tutor_0001"]`, string(payload.Data))
	require.JSONEq(t, `{"total":1,"has_more":false}`, string(payload.Meta))

	status, payload = call(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "dataset seeded", map[string]int{"tutors": 3})
	})
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, "dataset seeded", payload.Message)
	require.Empty(t, payload.Meta)
}

func TestFailureResponses(t *testing.T) {
	status, payload := call(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid query", []map[string]string{{"field": "limit", "rule": "max"}})
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.False(t, payload.Success)
	require.Equal(t, "invalid query", payload.Message)
	require.JSONEq(t, `[{"field":"limit","rule":"max"}]`, string(payload.Details))
	require.Empty(t, payload.Data)

	status, payload = call(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "")
	})
	require.Equal(t, fiber.StatusServiceUnavailable, status)
	require.Equal(t, "error", payload.Message)
	require.Empty(t, payload.Details)
}
