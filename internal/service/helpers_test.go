package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/tutorq-api/internal/models"
)

var serviceNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func fixedNow() time.Time { return serviceNow }

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestCache(t *testing.T) (*DashboardCache, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDashboardCache(client, time.Minute, testLogger()), server
}

func newValidator() *validator.Validate {
	return validator.New()
}

func ptr[T any](v T) *T { return &v }

func insertTutor(t *testing.T, db *gorm.DB, id string, subjects ...string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Tutor{ID: id, Name: "Tutor " + id, Subjects: subjects, Timezone: "America/Chicago"}).Error)
}

func insertSession(t *testing.T, db *gorm.DB, session models.Session) models.Session {
	t.Helper()
	if session.StudentID == "" {
		session.StudentID = "student_1"
	}
	if session.Subject == "" {
		session.Subject = "Geometry"
	}
	if session.Status == "" {
		session.Status = models.SessionStatusCompleted
	}
	if session.ScheduledStartAt.IsZero() {
		session.ScheduledStartAt = serviceNow.AddDate(0, 0, -2)
	}
	require.NoError(t, db.Create(&session).Error)
	return session
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}
