package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/tutorq-api/internal/models"
)

const seedBatchSize = 100

// SeedDataset is a complete synthetic dataset written by the seeder.
type SeedDataset struct {
	Tutors      []models.Tutor
	Students    []models.Student
	Sessions    []models.Session
	Transcripts []models.SessionTranscript
}

// SeedRepository replaces the dataset used by analytics and the dashboard.
type SeedRepository interface {
	Replace(ctx context.Context, dataset SeedDataset) error
}

type seedRepository struct {
	db *gorm.DB
}

// NewSeedRepository constructs a seed repository.
func NewSeedRepository(db *gorm.DB) SeedRepository {
	return &seedRepository{db: db}
}

// Replace clears every domain table and inserts the dataset in one transaction.
func (r *seedRepository) Replace(ctx context.Context, dataset SeedDataset) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tables := []interface{}{
			&models.SessionEvaluation{},
			&models.SessionTranscript{},
			&models.TutorMetric{},
			&models.Session{},
			&models.Student{},
			&models.Tutor{},
		}
		for _, model := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}

		if len(dataset.Tutors) > 0 {
			if err := tx.CreateInBatches(dataset.Tutors, seedBatchSize).Error; err != nil {
				return err
			}
		}
		if len(dataset.Students) > 0 {
			if err := tx.CreateInBatches(dataset.Students, seedBatchSize).Error; err != nil {
				return err
			}
		}
		if len(dataset.Sessions) > 0 {
			if err := tx.Omit(clause.Associations).CreateInBatches(dataset.Sessions, seedBatchSize).Error; err != nil {
				return err
			}
		}
		if len(dataset.Transcripts) > 0 {
			if err := tx.CreateInBatches(dataset.Transcripts, seedBatchSize).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
