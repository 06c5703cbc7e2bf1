package database

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"scrape-portal/internal/models"
)

// MaxHistory caps how many ledger rows one history request returns.
const MaxHistory = 50

// SubmissionStore is the ledger of submission attempts.
type SubmissionStore struct {
	db *gorm.DB
}

func NewSubmissionStore(db *gorm.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// RecordSubmission inserts s and fills in its ID.
func (s *SubmissionStore) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return errors.Wrapf(err, "record submission %s", sub.JobID)
	}
	return nil
}

// ListForUser returns the user's most recent submissions, newest first.
func (s *SubmissionStore) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Submission, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	subs := make([]models.Submission, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list submissions for user %d", userID)
	}
	return subs, nil
}
