package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tutorq-api/internal/dto"
	"github.com/noah-isme/tutorq-api/internal/models"
	"github.com/noah-isme/tutorq-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

const (
	defaultSeedTutors   = 100
	defaultSeedStudents = 2500
	defaultSeedSessions = 3000
	defaultSeedDays     = 60
	transcriptShare     = 0.1
)

// SeedService writes deterministic synthetic datasets.
type SeedService interface {
	// Seed checks the operator token before generating.
	Seed(ctx context.Context, token string, req dto.SeedRequest) (dto.SeedSummary, error)
	Generate(ctx context.Context, req dto.SeedRequest) (dto.SeedSummary, error)
}

type seedService struct {
	repo      repository.SeedRepository
	validator *validator.Validate
	cache     *DashboardCache
	enabled   bool
	token     string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.SeedRepository, validate *validator.Validate, cache *DashboardCache, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
		now:       time.Now,
	}
}

func (s *seedService) Seed(ctx context.Context, token string, req dto.SeedRequest) (dto.SeedSummary, error) {
	if !s.enabled {
		return dto.SeedSummary{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.SeedSummary{}, ErrSeedUnauthorized
	}
	return s.Generate(ctx, req)
}

func (s *seedService) Generate(ctx context.Context, req dto.SeedRequest) (dto.SeedSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SeedSummary{}, err
	}

	started := s.now()
	dataset, summary := GenerateDataset(req, started.UTC())

	if err := s.repo.Replace(ctx, dataset); err != nil {
		return dto.SeedSummary{}, fmt.Errorf("write seed dataset: %w", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}

	summary.DurationMS = s.now().Sub(started).Milliseconds()
	s.logger.Info().
		Int("tutors", summary.Tutors).
		Int("students", summary.Students).
		Int("sessions", summary.Sessions).
		Int("transcripts", summary.Transcripts).
		Int("no_shows", summary.NoShows).
		Int("rescheduled", summary.Rescheduled).
		Int("first_sessions", summary.FirstSessions).
		Int("student_churns", summary.StudentChurns).
		Int64("seed", summary.Seed).
		Msg("synthetic dataset written")

	return summary, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

// tutorProfile skews session outcomes for a tutor.
type tutorProfile struct {
	name          string
	ratingBias    float64
	noShowRate    float64
	rescheduleRat float64
}

var (
	profileGood    = tutorProfile{name: "good", ratingBias: 0.3, noShowRate: 0.01, rescheduleRat: 0.04}
	profileAverage = tutorProfile{name: "average", ratingBias: 0, noShowRate: 0.03, rescheduleRat: 0.10}
	profilePoor    = tutorProfile{name: "poor", ratingBias: -0.3, noShowRate: 0.12, rescheduleRat: 0.18}

	seedSubjects = []string{
		"SAT Math", "SAT Reading", "SAT Writing", "ACT Math", "ACT English",
		"AP Calculus", "AP Physics", "AP Chemistry", "AP Biology", "AP History",
		"Algebra 1", "Algebra 2", "Geometry", "Pre-Calculus", "Statistics",
		"Chemistry", "Physics", "Biology", "English", "Writing",
	}
	seedSegments  = []string{"SAT", "ACT", "AP", "Homework Help", "Test Prep", "College Prep"}
	seedTimezones = []string{"America/New_York", "America/Chicago", "America/Denver", "America/Los_Angeles", "America/Phoenix"}
	seedFirst     = []string{"Avery", "Jordan", "Priya", "Mateo", "Hannah", "Kenji", "Sofia", "Malik", "Elena", "Noah", "Grace", "Omar", "Lucia", "Ethan", "Zara", "Samuel"}
	seedLast      = []string{"Nguyen", "Patel", "Garcia", "Kim", "Okafor", "Schmidt", "Rossi", "Haddad", "Silva", "Cohen", "Ivanova", "Brooks", "Tanaka", "Mensah", "Lopez", "Walsh"}
	seedDurations = []int{30, 45, 60, 60, 60, 90}

	positiveFeedback = []string{
		"Great session! Really helpful explanations.",
		"My tutor was excellent at explaining %s concepts.",
		"Very patient and knowledgeable tutor.",
		"Helped me understand topics I was struggling with.",
		"Clear explanations and good practice problems.",
	}
	neutralFeedback = []string{
		"Session was okay, covered the basics.",
		"Decent session but could have gone deeper.",
		"Tutor was helpful but a bit rushed.",
		"Learned some things, but still have questions.",
	}
	negativeFeedback = []string{
		"Tutor seemed unprepared.",
		"Session felt rushed and confusing.",
		"Didn't really understand the explanations.",
		"Hard to follow the tutor's explanations.",
	}
)

// GenerateDataset builds a synthetic dataset. The same request and now always
// produce the same dataset.
func GenerateDataset(req dto.SeedRequest, now time.Time) (repository.SeedDataset, dto.SeedSummary) {
	req = withSeedDefaults(req)
	r := rand.New(rand.NewSource(req.Seed))

	dataset := repository.SeedDataset{
		Tutors:   make([]models.Tutor, 0, req.Tutors),
		Students: make([]models.Student, 0, req.Students),
	}
	profiles := make([]tutorProfile, 0, req.Tutors)

	for i := 0; i < req.Tutors; i++ {
		profile := profileAverage
		switch roll := r.Float64(); {
		case roll < 0.15:
			profile = profilePoor
		case roll > 0.85:
			profile = profileGood
		}
		profiles = append(profiles, profile)

		maxSubjects := 3
		if profile == profileGood {
			maxSubjects = 5
		}
		years := r.Intn(16)
		hired := now.AddDate(0, 0, -r.Intn(3*365)).Truncate(24 * time.Hour)
		dataset.Tutors = append(dataset.Tutors, models.Tutor{
			ID:              fmt.Sprintf("tutor_%04d", i+1),
			Name:            pick(r, seedFirst) + " " + pick(r, seedLast),
			Subjects:        pickSubset(r, seedSubjects, 1+r.Intn(maxSubjects)),
			YearsExperience: &years,
			Timezone:        pick(r, seedTimezones),
			HireDate:        &hired,
		})
	}

	for i := 0; i < req.Students; i++ {
		grade := 6 + r.Intn(7)
		dataset.Students = append(dataset.Students, models.Student{
			ID:         fmt.Sprintf("student_%05d", i+1),
			GradeLevel: &grade,
			Segment:    pick(r, seedSegments),
		})
	}

	summary := dto.SeedSummary{
		Tutors:     len(dataset.Tutors),
		Students:   len(dataset.Students),
		Seed:       req.Seed,
		WindowDays: req.Days,
	}
	if req.Tutors == 0 || req.Students == 0 {
		return dataset, summary
	}

	window := time.Duration(req.Days) * 24 * time.Hour
	type plannedSession struct {
		tutor   int
		student int
		at      time.Time
	}
	plan := make([]plannedSession, 0, req.Sessions)
	for i := 0; i < req.Sessions; i++ {
		offset := time.Duration(r.Int63n(int64(window)))
		plan = append(plan, plannedSession{
			tutor:   r.Intn(req.Tutors),
			student: r.Intn(req.Students),
			at:      now.Add(-offset).Truncate(time.Minute),
		})
	}
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].at.Before(plan[j].at) })

	seen := make(map[int]struct{}, req.Students)
	dataset.Sessions = make([]models.Session, 0, len(plan))
	for _, planned := range plan {
		tutor := dataset.Tutors[planned.tutor]
		profile := profiles[planned.tutor]
		_, returning := seen[planned.student]
		seen[planned.student] = struct{}{}

		id, _ := uuid.NewRandomFromReader(r)
		session := models.Session{
			ID:                       "session_" + id.String(),
			TutorID:                  tutor.ID,
			StudentID:                dataset.Students[planned.student].ID,
			Subject:                  pick(r, []string(tutor.Subjects)),
			ScheduledStartAt:         planned.at,
			IsFirstSessionForStudent: !returning,
			TutorChurnedWithin30d:    r.Float64() < 0.05,
			CreatedAt:                planned.at,
		}
		fillOutcome(r, &session, profile)
		dataset.Sessions = append(dataset.Sessions, session)

		switch session.Status {
		case models.SessionStatusCompleted:
			summary.Completed++
		case models.SessionStatusNoShow:
			summary.NoShows++
		case models.SessionStatusRescheduled:
			summary.Rescheduled++
		}
		if session.IsFirstSessionForStudent {
			summary.FirstSessions++
		}
		if session.StudentChurnedAfterSession {
			summary.StudentChurns++
		}
	}

	for i := range dataset.Sessions {
		session := &dataset.Sessions[i]
		if session.Status == models.SessionStatusRescheduled || r.Float64() >= transcriptShare {
			continue
		}
		session.HasTranscript = true
		dataset.Transcripts = append(dataset.Transcripts, models.SessionTranscript{
			SessionID:      session.ID,
			TranscriptText: templateTranscript(r, *session),
		})
	}

	summary.Sessions = len(dataset.Sessions)
	summary.Transcripts = len(dataset.Transcripts)
	return dataset, summary
}

func withSeedDefaults(req dto.SeedRequest) dto.SeedRequest {
	if req.Tutors == 0 {
		req.Tutors = defaultSeedTutors
	}
	if req.Students == 0 {
		req.Students = defaultSeedStudents
	}
	if req.Sessions == 0 {
		req.Sessions = defaultSeedSessions
	}
	if req.Days == 0 {
		req.Days = defaultSeedDays
	}
	return req
}

func fillOutcome(r *rand.Rand, session *models.Session, profile tutorProfile) {
	roll := r.Float64()
	switch {
	case roll < profile.noShowRate:
		session.Status = models.SessionStatusNoShow
		session.StudentChurnedAfterSession = r.Float64() < 0.4
		return
	case roll < profile.noShowRate+profile.rescheduleRat:
		session.Status = models.SessionStatusRescheduled
		initiator := models.RescheduleInitiatorStudent
		if r.Float64() < 0.9 {
			initiator = models.RescheduleInitiatorTutor
		}
		session.RescheduleInitiator = &initiator
		session.StudentChurnedAfterSession = r.Float64() < 0.15
		return
	}

	session.Status = models.SessionStatusCompleted
	session.DurationMinutes = pick(r, seedDurations)
	actual := session.ScheduledStartAt.Add(time.Duration(r.Intn(16)-5) * time.Minute)
	session.ActualStartAt = &actual

	raw := 3.5 + profile.ratingBias*2 + (r.Float64()*3 - 1.5)
	rating := int(math.Max(1, math.Min(5, math.Round(raw))))
	session.StudentRating = &rating

	if r.Float64() < 0.4 {
		feedback := feedbackFor(r, rating, session.Subject)
		session.StudentFeedback = &feedback
	}

	var churnChance float64
	switch {
	case session.IsFirstSessionForStudent && rating <= 2:
		churnChance = 0.5
	case session.IsFirstSessionForStudent && rating == 3:
		churnChance = 0.2
	case session.IsFirstSessionForStudent:
		churnChance = 0.05
	case rating <= 2:
		churnChance = 0.3
	default:
		churnChance = 0.08
	}
	session.StudentChurnedAfterSession = r.Float64() < churnChance
}

func feedbackFor(r *rand.Rand, rating int, subject string) string {
	switch {
	case rating >= 4:
		text := pick(r, positiveFeedback)
		if strings.Contains(text, "%s") {
			return fmt.Sprintf(text, subject)
		}
		return text
	case rating == 3:
		return pick(r, neutralFeedback)
	default:
		return pick(r, negativeFeedback)
	}
}

func templateTranscript(r *rand.Rand, session models.Session) string {
	subject := session.Subject
	if session.Status == models.SessionStatusNoShow {
		return strings.Join([]string{
			fmt.Sprintf("Student: Hi, I'm here for my %s session.", subject),
			"Student: Hello? Is anyone there?",
			"Student: I'll wait a few more minutes.",
			"[Tutor did not join the session]",
		}, "\n")
	}

	rating := 3
	if session.StudentRating != nil {
		rating = *session.StudentRating
	}

	var lines []string
	switch {
	case rating >= 4:
		lines = []string{
			fmt.Sprintf("Tutor: Hi! Ready to work on %s today? What feels hardest right now?", subject),
			"Student: I keep getting stuck on the multi-step problems.",
			"Tutor: That's really common. Let's break one down together. What would you do first?",
			"Student: Maybe write down what we know?",
			"Tutor: Exactly right. Now which piece connects what we know to what we want?",
			"Student: Oh, I think I see it now.",
			"Tutor: Great, try the next one on your own and talk me through it.",
			"Student: That makes so much more sense than in class.",
		}
	case rating == 3:
		lines = []string{
			fmt.Sprintf("Tutor: Hey there, we're doing %s today.", subject),
			"Student: Yeah, I had trouble with the homework.",
			"Tutor: Okay, let's look at the first problem. Here's how you set it up.",
			"Student: Okay.",
			"Tutor: Does that make sense?",
			"Student: Kind of. Can we do another one?",
			"Tutor: Sure, this one follows the same steps.",
		}
	default:
		lines = []string{
			fmt.Sprintf("Tutor: Okay so we're doing %s. What do you need?", subject),
			"Student: I don't really understand the last unit.",
			"Tutor: It's pretty straightforward, you just apply the formula.",
			"Student: But how do I know which formula to use?",
			"Tutor: You just look at the problem. Let's move on to the next one.",
			"Student: Can we go back to the first one?",
			"Tutor: We don't have time, we need to cover more material.",
		}
	}
	if session.IsFirstSessionForStudent && r.Float64() < 0.5 {
		lines = append([]string{"Tutor: Since this is our first session, tell me a bit about your class."}, lines...)
	}
	return strings.Join(lines, "\n")
}

func pick[T any](r *rand.Rand, items []T) T {
	return items[r.Intn(len(items))]
}

func pickSubset(r *rand.Rand, items []string, count int) []string {
	if count > len(items) {
		count = len(items)
	}
	order := r.Perm(len(items))
	result := make([]string, 0, count)
	for _, idx := range order[:count] {
		result = append(result, items[idx])
	}
	return result
}
