package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/codecoach/codecoach/internal/core"
)

type postgresFeedbackStore struct {
	db *sqlx.DB
}

// NewFeedbackStore creates the PostgreSQL-backed structured feedback history.
func NewFeedbackStore(db *sqlx.DB) FeedbackStore {
	return &postgresFeedbackStore{db: db}
}

func (s *postgresFeedbackStore) SaveReviewFeedback(ctx context.Context, owner, repo string, prNumber int, commentID int64, items []core.ExtractedFeedback) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode feedback items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback_history (owner, repo, pr_number, comment_id, feedback)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner, repo, pr_number, comment_id) DO UPDATE SET feedback = EXCLUDED.feedback`,
		owner, repo, prNumber, commentID, payload)
	if err != nil {
		return fmt.Errorf("failed to save review feedback: %w", err)
	}
	return nil
}

func (s *postgresFeedbackStore) LatestForPR(ctx context.Context, owner, repo string, prNumber int) ([]core.ExtractedFeedback, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `
		SELECT feedback FROM feedback_history
		WHERE owner = $1 AND repo = $2 AND pr_number = $3
		ORDER BY id DESC
		LIMIT 1`,
		owner, repo, prNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback history: %w", err)
	}

	var items []core.ExtractedFeedback
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("failed to decode feedback history: %w", err)
	}
	return items, nil
}
