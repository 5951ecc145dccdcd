package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/tutorq-api/internal/models"
)

func seedTutorListing(t *testing.T, db *gorm.DB) {
	t.Helper()
	createTutor(t, db, "tutor_a", "Ada Park", "AP Calculus", "Physics")
	createTutor(t, db, "tutor_b", "Ben Ortiz", "SAT Math")
	createTutor(t, db, "tutor_c", "Cora Diaz", "AP Chemistry")
	createTutor(t, db, "tutor_d", "Dev Rao", "Writing")

	createMetric(t, db, models.TutorMetric{TutorID: "tutor_a", ChurnRiskLabel: models.RiskLabelLow, NoShowRiskLabel: models.RiskLabelLow, TutorNoShowRate: 0.01, AvgStudentRatingLast30d: floatPtr(4.8)})
	createMetric(t, db, models.TutorMetric{TutorID: "tutor_b", ChurnRiskLabel: models.RiskLabelHigh, NoShowRiskLabel: models.RiskLabelHigh, TutorNoShowRate: 0.2, AvgStudentRatingLast30d: floatPtr(2.9)})
	createMetric(t, db, models.TutorMetric{TutorID: "tutor_c", ChurnRiskLabel: models.RiskLabelMedium, NoShowRiskLabel: models.RiskLabelLow, TutorNoShowRate: 0.05, AvgStudentRatingLast30d: floatPtr(3.6)})
}

func TestTutorRepositoryListSortsByChurnRisk(t *testing.T) {
	db := newTestDB(t)
	seedTutorListing(t, db)
	repo := NewTutorRepository(db)

	rows, total, err := repo.List(context.Background(), TutorListFilter{SortBy: TutorSortChurnRisk, Desc: true, Limit: 50})
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"tutor_b", "tutor_c", "tutor_a", "tutor_d"}, summaryIDs(rows))

	require.Equal(t, []string{"AP Calculus", "Physics"}, []string(rows[2].Subjects))
	require.NotNil(t, rows[0].ChurnRiskLabel)
	require.Equal(t, models.RiskLabelHigh, *rows[0].ChurnRiskLabel)
	require.Nil(t, rows[3].ChurnRiskLabel, "unscored tutor has no metrics")
	require.Nil(t, rows[3].MetricsUpdatedAt)
}

func TestTutorRepositoryListFiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	seedTutorListing(t, db)
	repo := NewTutorRepository(db)

	rows, total, err := repo.List(context.Background(), TutorListFilter{Subject: "ap c", SortBy: TutorSortName, Limit: 50})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, []string{"tutor_a", "tutor_c"}, summaryIDs(rows))

	rows, total, err = repo.List(context.Background(), TutorListFilter{RiskLevel: models.RiskLabelHigh, Limit: 50})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, []string{"tutor_b"}, summaryIDs(rows))

	rows, total, err = repo.List(context.Background(), TutorListFilter{SortBy: TutorSortRating, Desc: true, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, int64(4), total)
	require.Equal(t, []string{"tutor_c", "tutor_b"}, summaryIDs(rows))
}

func TestTutorRepositoryGetByIDAndListIDs(t *testing.T) {
	db := newTestDB(t)
	createTutor(t, db, "tutor_z", "Zed")
	createTutor(t, db, "tutor_m", "Mia")
	repo := NewTutorRepository(db)

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"tutor_m", "tutor_z"}, ids)

	tutor, err := repo.GetByID(context.Background(), "tutor_m")
	require.NoError(t, err)
	require.Equal(t, "Mia", tutor.Name)

	_, err = repo.GetByID(context.Background(), "missing")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestIsValidTutorSort(t *testing.T) {
	require.True(t, IsValidTutorSort(TutorSortAIScore))
	require.False(t, IsValidTutorSort("tutor_id; DROP TABLE tutors"))
}

func summaryIDs(rows []TutorSummary) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.TutorID)
	}
	return ids
}
