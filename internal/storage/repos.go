package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/codecoach/codecoach/internal/core"
)

type postgresRegistry struct {
	db *sqlx.DB
}

// NewRepoRegistry creates the PostgreSQL-backed repository registry.
func NewRepoRegistry(db *sqlx.DB) RepoRegistry {
	return &postgresRegistry{db: db}
}

type repoRow struct {
	ID              int64        `db:"id"`
	Owner           string       `db:"owner"`
	Name            string       `db:"name"`
	AccessToken     string       `db:"access_token"`
	InstallationID  int64        `db:"installation_id"`
	WebhookSecret   string       `db:"webhook_secret"`
	IsActive        bool         `db:"is_active"`
	AllowAutoReview bool         `db:"allow_auto_review"`
	CreatedAt       sql.NullTime `db:"created_at"`
	UpdatedAt       sql.NullTime `db:"updated_at"`
}

func (r repoRow) toConfig() *core.RepositoryConfig {
	cfg := &core.RepositoryConfig{
		ID:              r.ID,
		Owner:           r.Owner,
		Name:            r.Name,
		AccessToken:     r.AccessToken,
		InstallationID:  r.InstallationID,
		WebhookSecret:   r.WebhookSecret,
		IsActive:        r.IsActive,
		AllowAutoReview: r.AllowAutoReview,
	}
	if r.CreatedAt.Valid {
		cfg.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		cfg.UpdatedAt = r.UpdatedAt.Time
	}
	return cfg
}

const repoColumns = `id, owner, name, access_token, installation_id, webhook_secret, is_active, allow_auto_review, created_at, updated_at`

func (r *postgresRegistry) Get(ctx context.Context, owner, name string) (*core.RepositoryConfig, error) {
	var row repoRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+repoColumns+` FROM repositories WHERE owner = $1 AND name = $2`,
		owner, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load repository %s/%s: %w", owner, name, err)
	}
	return row.toConfig(), nil
}

func (r *postgresRegistry) List(ctx context.Context) ([]*core.RepositoryConfig, error) {
	return r.selectRepos(ctx, `SELECT `+repoColumns+` FROM repositories ORDER BY owner, name`)
}

func (r *postgresRegistry) ListReviewable(ctx context.Context) ([]*core.RepositoryConfig, error) {
	return r.selectRepos(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE is_active AND allow_auto_review ORDER BY owner, name`)
}

func (r *postgresRegistry) selectRepos(ctx context.Context, query string) ([]*core.RepositoryConfig, error) {
	var rows []repoRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	repos := make([]*core.RepositoryConfig, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, row.toConfig())
	}
	return repos, nil
}

func (r *postgresRegistry) Create(ctx context.Context, repo *core.RepositoryConfig) error {
	err := r.db.GetContext(ctx, &repo.ID, `
		INSERT INTO repositories (owner, name, access_token, installation_id, webhook_secret, is_active, allow_auto_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		repo.Owner, repo.Name, repo.AccessToken, repo.InstallationID,
		repo.WebhookSecret, repo.IsActive, repo.AllowAutoReview)
	if err != nil {
		return fmt.Errorf("failed to create repository %s: %w", repo.FullName(), err)
	}
	return nil
}

func (r *postgresRegistry) Update(ctx context.Context, repo *core.RepositoryConfig) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE repositories
		SET access_token = $1, installation_id = $2, webhook_secret = $3,
		    is_active = $4, allow_auto_review = $5, updated_at = NOW()
		WHERE owner = $6 AND name = $7`,
		repo.AccessToken, repo.InstallationID, repo.WebhookSecret,
		repo.IsActive, repo.AllowAutoReview, repo.Owner, repo.Name)
	if err != nil {
		return fmt.Errorf("failed to update repository %s: %w", repo.FullName(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
