package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/codecoach/codecoach/internal/core"
)

type postgresTracker struct {
	db *sqlx.DB
}

// NewTracker creates the PostgreSQL-backed processing tracker.
func NewTracker(db *sqlx.DB) Tracker {
	return &postgresTracker{db: db}
}

type trackerRow struct {
	ID                   int64        `db:"id"`
	Owner                string       `db:"owner"`
	Repo                 string       `db:"repo"`
	PRNumber             int          `db:"pr_number"`
	DescriptionProcessed bool         `db:"description_processed"`
	ReviewCount          int          `db:"review_count"`
	LastReviewAt         sql.NullTime `db:"last_review_at"`
}

func (t *postgresTracker) Get(ctx context.Context, owner, repo string, prNumber int) (*core.TrackerRecord, error) {
	var row trackerRow
	err := t.db.GetContext(ctx, &row, `
		SELECT id, owner, repo, pr_number, description_processed, review_count, last_review_at
		FROM review_trackers
		WHERE owner = $1 AND repo = $2 AND pr_number = $3`,
		owner, repo, prNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tracker record: %w", err)
	}

	record := &core.TrackerRecord{
		ID:                   row.ID,
		Owner:                row.Owner,
		Repo:                 row.Repo,
		PRNumber:             row.PRNumber,
		DescriptionProcessed: row.DescriptionProcessed,
		ReviewCount:          row.ReviewCount,
	}
	if row.LastReviewAt.Valid {
		last := row.LastReviewAt.Time
		record.LastReviewAt = &last
	}

	if err := t.db.SelectContext(ctx, &record.ProcessedCommentIDs, `
		SELECT comment_id FROM processed_comments WHERE tracker_id = $1 ORDER BY id`,
		row.ID); err != nil {
		return nil, fmt.Errorf("failed to load processed comments: %w", err)
	}

	if err := t.db.SelectContext(ctx, &record.PostedCommentIDs, `
		SELECT comment_id FROM posted_review_comments WHERE tracker_id = $1 ORDER BY id`,
		row.ID); err != nil {
		return nil, fmt.Errorf("failed to load posted review comments: %w", err)
	}

	type historyRow struct {
		Trigger   string        `db:"trigger"`
		CommentID sql.NullInt64 `db:"comment_id"`
		CreatedAt sql.NullTime  `db:"created_at"`
	}
	var history []historyRow
	if err := t.db.SelectContext(ctx, &history, `
		SELECT trigger, comment_id, created_at FROM review_history WHERE tracker_id = $1 ORDER BY id`,
		row.ID); err != nil {
		return nil, fmt.Errorf("failed to load review history: %w", err)
	}
	for _, h := range history {
		entry := core.HistoryEntry{Trigger: core.TriggerKind(h.Trigger)}
		if h.CommentID.Valid {
			entry.CommentID = h.CommentID.Int64
		}
		if h.CreatedAt.Valid {
			entry.CreatedAt = h.CreatedAt.Time
		}
		record.History = append(record.History, entry)
	}

	return record, nil
}

func (t *postgresTracker) IsDescriptionProcessed(ctx context.Context, owner, repo string, prNumber int) (bool, error) {
	var processed bool
	err := t.db.GetContext(ctx, &processed, `
		SELECT COALESCE((
			SELECT description_processed FROM review_trackers
			WHERE owner = $1 AND repo = $2 AND pr_number = $3
		), FALSE)`,
		owner, repo, prNumber)
	if err != nil {
		return false, fmt.Errorf("failed to check description state: %w", err)
	}
	return processed, nil
}

func (t *postgresTracker) IsCommentProcessed(ctx context.Context, owner, repo string, prNumber int, commentID int64) (bool, error) {
	var processed bool
	err := t.db.GetContext(ctx, &processed, `
		SELECT EXISTS (
			SELECT 1 FROM processed_comments pc
			JOIN review_trackers rt ON rt.id = pc.tracker_id
			WHERE rt.owner = $1 AND rt.repo = $2 AND rt.pr_number = $3 AND pc.comment_id = $4
		)`,
		owner, repo, prNumber, commentID)
	if err != nil {
		return false, fmt.Errorf("failed to check comment state: %w", err)
	}
	return processed, nil
}

// MarkDescriptionProcessed upserts the tracker row and records one completed
// description-triggered review cycle. The whole mutation is one transaction:
// the ON CONFLICT upsert takes the row lock, then the counter bump and the
// history append commit together, keeping review_count equal to the history
// length. An already-processed description makes the whole call a no-op, so
// a webhook racing the poll across processes cannot double-count the trigger.
func (t *postgresTracker) MarkDescriptionProcessed(ctx context.Context, owner, repo string, prNumber int) error {
	return t.inTx(ctx, func(tx *sqlx.Tx) error {
		trackerID, err := upsertTracker(ctx, tx, owner, repo, prNumber)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE review_trackers
			SET description_processed = TRUE,
			    review_count = review_count + 1,
			    last_review_at = NOW(),
			    updated_at = NOW()
			WHERE id = $1 AND description_processed = FALSE`,
			trackerID)
		if err != nil {
			return fmt.Errorf("failed to mark description processed: %w", err)
		}
		updated, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if updated == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO review_history (tracker_id, trigger) VALUES ($1, $2)`,
			trackerID, core.TriggerDescription); err != nil {
			return fmt.Errorf("failed to append review history: %w", err)
		}
		return nil
	})
}

// MarkCommentProcessed adds commentID to the processed set and records one
// completed comment-triggered cycle. A comment already in the set makes the
// whole call a no-op, which is what de-duplicates a webhook racing the poll:
// the second writer's ON CONFLICT DO NOTHING inserts zero rows and neither
// the counter nor the history moves.
func (t *postgresTracker) MarkCommentProcessed(ctx context.Context, owner, repo string, prNumber int, commentID int64) error {
	return t.inTx(ctx, func(tx *sqlx.Tx) error {
		trackerID, err := upsertTracker(ctx, tx, owner, repo, prNumber)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO processed_comments (tracker_id, comment_id)
			VALUES ($1, $2)
			ON CONFLICT (tracker_id, comment_id) DO NOTHING`,
			trackerID, commentID)
		if err != nil {
			return fmt.Errorf("failed to record processed comment: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read insert result: %w", err)
		}
		if inserted == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE review_trackers
			SET review_count = review_count + 1,
			    last_review_at = NOW(),
			    updated_at = NOW()
			WHERE id = $1`,
			trackerID); err != nil {
			return fmt.Errorf("failed to bump review count: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO review_history (tracker_id, trigger, comment_id) VALUES ($1, $2, $3)`,
			trackerID, core.TriggerComment, commentID); err != nil {
			return fmt.Errorf("failed to append review history: %w", err)
		}
		return nil
	})
}

func (t *postgresTracker) RecordPostedReviewComment(ctx context.Context, owner, repo string, prNumber int, commentID int64) error {
	return t.inTx(ctx, func(tx *sqlx.Tx) error {
		trackerID, err := upsertTracker(ctx, tx, owner, repo, prNumber)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO posted_review_comments (tracker_id, comment_id) VALUES ($1, $2)`,
			trackerID, commentID); err != nil {
			return fmt.Errorf("failed to record posted review comment: %w", err)
		}
		return nil
	})
}

// upsertTracker creates the tracker row if missing and returns its ID. The
// ON CONFLICT DO UPDATE arm makes concurrent creates safe and acquires the
// row lock for the rest of the transaction.
func upsertTracker(ctx context.Context, tx *sqlx.Tx, owner, repo string, prNumber int) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO review_trackers (owner, repo, pr_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner, repo, pr_number) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		owner, repo, prNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert tracker record: %w", err)
	}
	return id, nil
}

func (t *postgresTracker) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
