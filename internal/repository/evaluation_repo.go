package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/tutorq-api/internal/models"
)

// ScoreBucket counts evaluations that share a quality score.
type ScoreBucket struct {
	QualityScore int   `gorm:"column:quality_score"`
	Count        int64 `gorm:"column:count"`
}

// EvaluationRepository persists AI session evaluations.
type EvaluationRepository interface {
	GetBySessionID(ctx context.Context, sessionID string) (models.SessionEvaluation, error)
	ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]models.SessionEvaluation, error)
	Create(ctx context.Context, evaluation *models.SessionEvaluation) (bool, error)
	ScoreDistribution(ctx context.Context) ([]ScoreBucket, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs an evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) GetBySessionID(ctx context.Context, sessionID string) (models.SessionEvaluation, error) {
	var evaluation models.SessionEvaluation
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&evaluation).Error; err != nil {
		return models.SessionEvaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) ListBySessionIDs(ctx context.Context, sessionIDs []string) ([]models.SessionEvaluation, error) {
	if len(sessionIDs) == 0 {
		return []models.SessionEvaluation{}, nil
	}

	var evaluations []models.SessionEvaluation
	err := r.db.WithContext(ctx).
		Select("session_id", "quality_score").
		Where("session_id IN ?", sessionIDs).
		Find(&evaluations).Error
	if err != nil {
		return nil, err
	}

	return evaluations, nil
}

// Create stores the evaluation unless one already exists for the session. The
// returned flag reports whether a row was written.
func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.SessionEvaluation) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_id"}}, DoNothing: true}).
		Create(evaluation)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *evaluationRepository) ScoreDistribution(ctx context.Context) ([]ScoreBucket, error) {
	var buckets []ScoreBucket
	err := r.db.WithContext(ctx).
		Model(&models.SessionEvaluation{}).
		Select("quality_score, COUNT(*) AS count").
		Group("quality_score").
		Order("quality_score ASC").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}

	return buckets, nil
}
