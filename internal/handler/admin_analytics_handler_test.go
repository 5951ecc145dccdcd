package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/handler"
	"github.com/noah-isme/tutorq-api/internal/riskmetrics"
	"github.com/noah-isme/tutorq-api/internal/service"
)

type stubPipeline struct {
	summary dto.AnalyticsRunSummary
	err     error
	calls   int
}

func (s *stubPipeline) Run(context.Context) (dto.AnalyticsRunSummary, error) {
	s.calls++
	return s.summary, s.err
}

func newAdminApp(pipeline service.AnalyticsPipelineService, evaluations service.EvaluationService) *fiber.App {
	app := fiber.New()
	handler.NewAdminAnalyticsHandler(pipeline, evaluations, zerolog.Nop()).Register(app.Group("/api/v1/admin"))
	return app
}

func TestAdminAnalyticsRun(t *testing.T) {
	pipeline := &stubPipeline{summary: dto.AnalyticsRunSummary{
		TutorsScanned:   3,
		TutorsUpdated:   2,
		TutorsSkipped:   1,
		ChurnRiskLabels: map[string]int{"low": 1, "medium": 1, "high": 0},
	}}
	app := newAdminApp(pipeline, &stubEvaluationService{})

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/analytics/run", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, pipeline.calls)

	var summary dto.AnalyticsRunSummary
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	require.Equal(t, 2, summary.TutorsUpdated)
	require.Equal(t, 1, summary.ChurnRiskLabels["medium"])
}

func TestAdminAnalyticsRunErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid thresholds", err: fmt.Errorf("%w: window", riskmetrics.ErrInvalidThresholds), status: fiber.StatusInternalServerError},
		{name: "cancelled", err: fmt.Errorf("analytics run interrupted: %w", context.Canceled), status: fiber.StatusServiceUnavailable},
		{name: "listing failed", err: errors.New("list tutors: boom"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAdminApp(&stubPipeline{err: tc.err, summary: dto.AnalyticsRunSummary{Cancelled: true}}, &stubEvaluationService{})
			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/analytics/run", nil, nil)
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, body.Success)
		})
	}
}

func TestAdminEvaluationsRun(t *testing.T) {
	evaluations := &stubEvaluationService{summary: dto.EvaluationRunSummary{Pending: 4, Evaluated: 3, Failed: 1, Batches: 1}}
	app := newAdminApp(&stubPipeline{}, evaluations)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/admin/evaluations/run", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary dto.EvaluationRunSummary
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	require.Equal(t, 3, summary.Evaluated)

	unavailable := newAdminApp(&stubPipeline{}, &stubEvaluationService{runErr: service.ErrEvaluatorUnavailable})
	resp, _ = doJSON(t, unavailable, http.MethodPost, "/api/v1/admin/evaluations/run", nil, nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
