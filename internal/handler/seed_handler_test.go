package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/handler"
	"github.com/noah-isme/tutorq-api/internal/service"
)

type mockSeedService struct {
	err       error
	lastToken string
	lastReq   dto.SeedRequest
}

func (m *mockSeedService) Seed(ctx context.Context, token string, req dto.SeedRequest) (dto.SeedSummary, error) {
	m.lastToken = token
	m.lastReq = req
	if m.err != nil {
		return dto.SeedSummary{}, m.err
	}
	if err := validator.New().Struct(req); err != nil {
		return dto.SeedSummary{}, err
	}
	return m.Generate(ctx, req)
}

func (m *mockSeedService) Generate(_ context.Context, req dto.SeedRequest) (dto.SeedSummary, error) {
	return dto.SeedSummary{Tutors: req.Tutors, Sessions: req.Sessions, Seed: req.Seed}, nil
}

func newSeedApp(svc service.SeedService) *fiber.App {
	app := fiber.New()
	handler.NewSeedHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/admin/seed"))
	return app
}

func TestSeedHandlerSuccess(t *testing.T) {
	svc := &mockSeedService{}
	app := newSeedApp(svc)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/seed", map[string]interface{}{"tutors": 10, "sessions": 200, "seed": 7}, map[string]string{"X-Seed-Token": "secret"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "secret", svc.lastToken)
	require.Equal(t, int64(7), svc.lastReq.Seed)

	var summary dto.SeedSummary
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	require.Equal(t, 200, summary.Sessions)
}

func TestSeedHandlerAcceptsEmptyBody(t *testing.T) {
	svc := &mockSeedService{}
	resp, _ := doJSON(t, newSeedApp(svc), http.MethodPost, "/api/v1/admin/seed", nil, map[string]string{"X-Seed-Token": "secret"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, dto.SeedRequest{}, svc.lastReq)
}

func TestSeedHandlerErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		payload interface{}
		status  int
		message string
	}{
		{name: "disabled", err: service.ErrSeedDisabled, status: fiber.StatusForbidden, message: "seeding disabled"},
		{name: "bad token", err: service.ErrSeedUnauthorized, status: fiber.StatusForbidden, message: "invalid token"},
		{name: "too large", payload: map[string]int{"tutors": 5000}, status: fiber.StatusBadRequest, message: "invalid seed request"},
		{name: "write failure", err: errors.New("deadlock"), status: fiber.StatusInternalServerError, message: "seed operation failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newSeedApp(&mockSeedService{err: tc.err})
			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/seed", tc.payload, nil)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, body.Message)
		})
	}
}
