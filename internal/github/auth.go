package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/codecoach/codecoach/internal/core"
)

// ClientFactory builds an authenticated API client for one repository.
// A fresh client value is created per repository and passed explicitly to
// the orchestrator; no shared mutable client state is held between calls.
type ClientFactory interface {
	ClientFor(ctx context.Context, repo *core.RepositoryConfig) (Client, error)
}

// AppConfig carries the GitHub App identity used for installation-based
// credentials. Both fields may be empty when every registered repository
// uses a personal access token.
type AppConfig struct {
	AppID          int64
	PrivateKeyPath string
}

type clientFactory struct {
	app          AppConfig
	logger       *slog.Logger
	commentLimit int
}

// NewClientFactory creates the production client factory.
func NewClientFactory(app AppConfig, commentLimit int, logger *slog.Logger) ClientFactory {
	return &clientFactory{app: app, logger: logger, commentLimit: commentLimit}
}

// ClientFor authenticates with the repository's personal access token when
// present, otherwise through its GitHub App installation. A repository with
// no credential can never trigger an API call.
func (f *clientFactory) ClientFor(ctx context.Context, repo *core.RepositoryConfig) (Client, error) {
	switch {
	case repo.AccessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: repo.AccessToken})
		tc := oauth2.NewClient(ctx, ts)
		return NewClient(github.NewClient(tc), f.logger, WithCommentSizeLimit(f.commentLimit)), nil

	case repo.InstallationID > 0:
		return f.installationClient(ctx, repo.InstallationID)

	default:
		return nil, fmt.Errorf("repository %s has no API credential", repo.FullName())
	}
}

func (f *clientFactory) installationClient(ctx context.Context, installationID int64) (Client, error) {
	if f.app.AppID == 0 || f.app.PrivateKeyPath == "" {
		return nil, fmt.Errorf("GitHub App credentials are not configured")
	}

	privateKey, err := os.ReadFile(f.app.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", f.app.PrivateKeyPath, err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, f.app.AppID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token for installation %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return nil, fmt.Errorf("received an empty installation token")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.GetToken()})
	tc := oauth2.NewClient(ctx, ts)
	return NewClient(github.NewClient(tc), f.logger, WithCommentSizeLimit(f.commentLimit)), nil
}
