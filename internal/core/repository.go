package core

import "time"

// RepositoryConfig is one monitored repository from the registry. The
// orchestrator treats it as read-only; creation and updates are admin
// operations exposed through the CLI.
type RepositoryConfig struct {
	ID    int64
	Owner string
	Name  string

	// AccessToken is a personal access token; InstallationID selects GitHub
	// App installation auth instead. At least one must be present before
	// any API call is made on the repository's behalf.
	AccessToken    string
	InstallationID int64

	// WebhookSecret signs inbound webhook deliveries. A repository without
	// a secret fails signature verification closed.
	WebhookSecret string

	IsActive        bool
	AllowAutoReview bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns the owner/name form used in logs and API paths.
func (r *RepositoryConfig) FullName() string {
	return r.Owner + "/" + r.Name
}

// HasCredential reports whether the repository holds a usable API credential.
func (r *RepositoryConfig) HasCredential() bool {
	return r.AccessToken != "" || r.InstallationID > 0
}

// Reviewable reports whether the orchestrator may run reviews for this
// repository: active, auto-review enabled, and a credential on file.
func (r *RepositoryConfig) Reviewable() bool {
	return r.IsActive && r.AllowAutoReview && r.HasCredential()
}
