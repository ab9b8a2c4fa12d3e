package service

import (
	"context"
	"log/slog"
)

type Status string

const (
	StatusCopied  Status = "copied"
	StatusPlanned Status = "planned"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

const (
	ReasonNoSourceVersion   = "no_source_version"
	ReasonNoTargetVersion   = "no_target_version"
	ReasonCredentialExpired = "credential_expired"
	ReasonNoLocalizations   = "no_localizations"
)

// AppResult is the outcome of copying one app.
type AppResult struct {
	AppID           string
	AppName         string
	SourceVersionID string
	TargetVersionID string
	Status          Status
	Reason          string
	Updated         []string
	Created         []string
	Unchanged       []string
	Err             error
}

// Report collects every per-app result of a run plus the raw apps response.
type Report struct {
	DryRun  bool
	Apps    []AppResult
	RawApps []byte
}

func (r *Report) Count(status Status) int {
	n := 0
	for _, app := range r.Apps {
		if app.Status == status {
			n++
		}
	}
	return n
}

func (r *Report) HasFailures() bool {
	return r.Count(StatusFailed) > 0
}

func (r *Report) LogSummary(ctx context.Context, logger *slog.Logger) {
	updated, created := 0, 0
	for _, app := range r.Apps {
		updated += len(app.Updated)
		created += len(app.Created)
	}

	logger.InfoContext(ctx, "run complete",
		"apps", len(r.Apps),
		"copied", r.Count(StatusCopied),
		"planned", r.Count(StatusPlanned),
		"skipped", r.Count(StatusSkipped),
		"failed", r.Count(StatusFailed),
		"localizations_updated", updated,
		"localizations_created", created,
		"dry_run", r.DryRun,
	)
}
