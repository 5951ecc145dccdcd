package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/tutorq-api/internal/models"
)

var fixtureNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func createTutor(t *testing.T, db *gorm.DB, id, name string, subjects ...string) models.Tutor {
	t.Helper()
	tutor := models.Tutor{ID: id, Name: name, Subjects: subjects, Timezone: "America/New_York"}
	require.NoError(t, db.Create(&tutor).Error)
	return tutor
}

func createSession(t *testing.T, db *gorm.DB, session models.Session) models.Session {
	t.Helper()
	if session.StudentID == "" {
		session.StudentID = "student_1"
	}
	if session.Subject == "" {
		session.Subject = "Algebra 1"
	}
	if session.Status == "" {
		session.Status = models.SessionStatusCompleted
	}
	if session.DurationMinutes == 0 && session.Status == models.SessionStatusCompleted {
		session.DurationMinutes = 60
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}

func createMetric(t *testing.T, db *gorm.DB, metric models.TutorMetric) {
	t.Helper()
	if metric.UpdatedAt.IsZero() {
		metric.UpdatedAt = fixtureNow
	}
	require.NoError(t, NewTutorMetricRepository(db).Upsert(context.Background(), &metric))
}
