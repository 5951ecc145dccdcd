package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/models"
	"github.com/noah-isme/tutorq-api/internal/repository"
)

func TestGenerateDatasetIsDeterministic(t *testing.T) {
	req := dto.SeedRequest{Tutors: 12, Students: 40, Sessions: 300, Days: 30, Seed: 42}

	first, firstSummary := GenerateDataset(req, serviceNow)
	second, secondSummary := GenerateDataset(req, serviceNow)

	require.Equal(t, firstSummary, secondSummary)
	require.Equal(t, first.Sessions, second.Sessions)
	require.Equal(t, first.Tutors, second.Tutors)

	other, _ := GenerateDataset(dto.SeedRequest{Tutors: 12, Students: 40, Sessions: 300, Days: 30, Seed: 7}, serviceNow)
	require.NotEqual(t, first.Sessions[0].ID, other.Sessions[0].ID)
}

func TestGenerateDatasetShape(t *testing.T) {
	dataset, summary := GenerateDataset(dto.SeedRequest{Tutors: 20, Students: 100, Sessions: 800, Days: 30, Seed: 1}, serviceNow)

	require.Equal(t, 20, summary.Tutors)
	require.Equal(t, 100, summary.Students)
	require.Equal(t, 800, summary.Sessions)
	require.Equal(t, summary.Sessions, summary.Completed+summary.NoShows+summary.Rescheduled)
	require.Len(t, dataset.Transcripts, summary.Transcripts)
	require.Positive(t, summary.NoShows)
	require.Positive(t, summary.Rescheduled)

	windowStart := serviceNow.AddDate(0, 0, -30)
	firstSeen := map[string]bool{}
	transcribed := map[string]bool{}
	for _, transcript := range dataset.Transcripts {
		transcribed[transcript.SessionID] = true
	}

	for i, session := range dataset.Sessions {
		require.False(t, session.ScheduledStartAt.Before(windowStart))
		require.False(t, session.ScheduledStartAt.After(serviceNow))
		if i > 0 {
			require.False(t, session.ScheduledStartAt.Before(dataset.Sessions[i-1].ScheduledStartAt))
		}

		require.Equal(t, !firstSeen[session.StudentID], session.IsFirstSessionForStudent)
		firstSeen[session.StudentID] = true
		require.Equal(t, transcribed[session.ID], session.HasTranscript)

		switch session.Status {
		case models.SessionStatusCompleted:
			require.NotNil(t, session.StudentRating)
			require.GreaterOrEqual(t, *session.StudentRating, 1)
			require.LessOrEqual(t, *session.StudentRating, 5)
			require.Contains(t, []int{30, 45, 60, 90}, session.DurationMinutes)
			require.NotNil(t, session.ActualStartAt)
		case models.SessionStatusRescheduled:
			require.NotNil(t, session.RescheduleInitiator)
			require.Nil(t, session.StudentRating)
			require.False(t, session.HasTranscript)
		case models.SessionStatusNoShow:
			require.Nil(t, session.StudentRating)
		}
	}
}

func TestGenerateDatasetAppliesDefaults(t *testing.T) {
	_, summary := GenerateDataset(dto.SeedRequest{Seed: 3}, serviceNow)
	require.Equal(t, 100, summary.Tutors)
	require.Equal(t, 2500, summary.Students)
	require.Equal(t, 3000, summary.Sessions)
	require.Equal(t, 60, summary.WindowDays)
}

func TestSeedServiceTokenGuard(t *testing.T) {
	db := newServiceDB(t)
	repo := repository.NewSeedRepository(db)

	disabled := NewSeedService(repo, newValidator(), nil, false, "secret", testLogger())
	_, err := disabled.Seed(context.Background(), "secret", dto.SeedRequest{})
	require.ErrorIs(t, err, ErrSeedDisabled)

	svc := NewSeedService(repo, newValidator(), nil, true, "secret", testLogger())
	_, err = svc.Seed(context.Background(), "wrong", dto.SeedRequest{})
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	unset := NewSeedService(repo, newValidator(), nil, true, "", testLogger())
	_, err = unset.Seed(context.Background(), "", dto.SeedRequest{})
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	summary, err := svc.Seed(context.Background(), " secret ", dto.SeedRequest{Tutors: 5, Students: 20, Sessions: 60, Days: 14, Seed: 9})
	require.NoError(t, err)
	require.Equal(t, 60, summary.Sessions)

	var sessions int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessions).Error)
	require.Equal(t, int64(60), sessions)
}

func TestSeedServiceGenerateReplacesDataAndClearsCache(t *testing.T) {
	db := newServiceDB(t)
	cache, server := newTestCache(t)
	require.NoError(t, server.Set("dashboard:first-sessions:30:", "{}"))
	svc := NewSeedService(repository.NewSeedRepository(db), newValidator(), cache, false, "", testLogger())

	_, err := svc.Generate(context.Background(), dto.SeedRequest{Tutors: 3, Students: 10, Sessions: 30, Days: 10, Seed: 5})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), dto.SeedRequest{Tutors: 2, Students: 10, Sessions: 15, Days: 10, Seed: 6})
	require.NoError(t, err)

	var tutors, sessions int64
	require.NoError(t, db.Model(&models.Tutor{}).Count(&tutors).Error)
	require.NoError(t, db.Model(&models.Session{}).Count(&sessions).Error)
	require.Equal(t, int64(2), tutors)
	require.Equal(t, int64(15), sessions)
	require.False(t, server.Exists("dashboard:first-sessions:30:"))

	_, err = svc.Generate(context.Background(), dto.SeedRequest{Tutors: 5000})
	require.Error(t, err)
}
