package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/appstore"
	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/pkg/execution"
)

const notSet = "Not set"

// AppStoreAPI is the resource surface the copy job drives.
type AppStoreAPI interface {
	ListApps(ctx context.Context, limit int) ([]appstore.App, []byte, error)
	ListVersions(ctx context.Context, appID string) ([]appstore.Version, error)
	ListLocalizations(ctx context.Context, versionID string) ([]appstore.Localization, error)
	UpdateLocalization(ctx context.Context, localizationID string, fields appstore.LocalizationFields) (appstore.Localization, error)
	CreateLocalization(ctx context.Context, versionID, locale string, fields appstore.LocalizationFields) (appstore.Localization, error)
}

type CopyOptions struct {
	SourceState string
	TargetState string
	Locales     []string
	DryRun      bool
	AppsLimit   int
	AppTimeout  time.Duration

	// CredentialExpiry stops new apps from starting once the single run
	// credential is within ExpiryMargin of expiring. Zero disables the check.
	CredentialExpiry time.Time
	ExpiryMargin     time.Duration
	Now              func() time.Time
}

type CopyService struct {
	api        AppStoreAPI
	opts       CopyOptions
	locales    map[string]struct{}
	logger     *slog.Logger
	classifier *app_errors.ErrorClassifier
}

func NewCopyService(api AppStoreAPI, opts CopyOptions, logger *slog.Logger, classifier *app_errors.ErrorClassifier) *CopyService {
	if opts.SourceState == "" {
		opts.SourceState = appstore.StateReadyForSale
	}
	if opts.TargetState == "" {
		opts.TargetState = appstore.StatePrepareForSubmission
	}
	if opts.AppsLimit <= 0 {
		opts.AppsLimit = 50
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var locales map[string]struct{}
	if len(opts.Locales) > 0 {
		locales = make(map[string]struct{}, len(opts.Locales))
		for _, l := range opts.Locales {
			locales[l] = struct{}{}
		}
	}

	return &CopyService{
		api:        api,
		opts:       opts,
		locales:    locales,
		logger:     logger,
		classifier: classifier,
	}
}

// Run copies descriptions for every listed app. A failure on one app is
// logged and recorded; only failing to list apps aborts the run.
func (s *CopyService) Run(ctx context.Context) (*Report, error) {
	s.logger.InfoContext(ctx, "fetching apps", "limit", s.opts.AppsLimit)

	apps, raw, err := s.api.ListApps(ctx, s.opts.AppsLimit)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}

	report := &Report{DryRun: s.opts.DryRun, RawApps: raw}
	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if s.credentialExpiring() {
			s.logger.WarnContext(ctx, "credential about to expire, skipping remaining app",
				"app_id", app.ID, "expires_at", s.opts.CredentialExpiry)
			report.Apps = append(report.Apps, AppResult{
				AppID:   app.ID,
				AppName: app.Attributes.Name,
				Status:  StatusSkipped,
				Reason:  ReasonCredentialExpired,
			})
			continue
		}

		result, err := execution.WithTimeout(ctx, s.opts.AppTimeout, func(ctx context.Context) (AppResult, error) {
			return s.copyApp(ctx, app)
		})
		if err != nil {
			result.Status = StatusFailed
			result.Err = err
			_ = s.classifier.Log(ctx, s.classifier.Classify(err, "copy_app"), "app_id", app.ID, "app_name", app.Attributes.Name)
		}
		report.Apps = append(report.Apps, result)
	}

	return report, nil
}

func (s *CopyService) credentialExpiring() bool {
	if s.opts.CredentialExpiry.IsZero() {
		return false
	}
	return !s.opts.Now().Add(s.opts.ExpiryMargin).Before(s.opts.CredentialExpiry)
}

func (s *CopyService) copyApp(ctx context.Context, app appstore.App) (AppResult, error) {
	result := AppResult{AppID: app.ID, AppName: app.Attributes.Name}
	logger := s.logger.With("app_id", app.ID, "app_name", app.Attributes.Name)

	versions, err := s.api.ListVersions(ctx, app.ID)
	if err != nil {
		return result, fmt.Errorf("list versions: %w", err)
	}

	source, ok := appstore.FindVersionByState(versions, s.opts.SourceState)
	if !ok {
		logger.InfoContext(ctx, "no source version, skipping", "state", s.opts.SourceState)
		result.Status, result.Reason = StatusSkipped, ReasonNoSourceVersion
		return result, nil
	}
	result.SourceVersionID = source.ID

	sourceLocs, err := s.api.ListLocalizations(ctx, source.ID)
	if err != nil {
		return result, fmt.Errorf("list source localizations: %w", err)
	}
	sourceLocs = s.filterLocales(sourceLocs)
	for _, loc := range sourceLocs {
		logger.InfoContext(ctx, "source localization",
			"version_id", source.ID,
			"locale", loc.Attributes.Locale,
			"promotional_text", display(loc.Attributes.PromotionalText),
			"whats_new", display(loc.Attributes.WhatsNew),
		)
	}

	target, ok := appstore.FindVersionByState(versions, s.opts.TargetState)
	if !ok {
		logger.InfoContext(ctx, "no target version, skipping", "state", s.opts.TargetState)
		result.Status, result.Reason = StatusSkipped, ReasonNoTargetVersion
		return result, nil
	}
	result.TargetVersionID = target.ID

	if len(sourceLocs) == 0 {
		logger.InfoContext(ctx, "source version has no matching localizations, skipping", "version_id", source.ID)
		result.Status, result.Reason = StatusSkipped, ReasonNoLocalizations
		return result, nil
	}

	targetLocs, err := s.api.ListLocalizations(ctx, target.ID)
	if err != nil {
		return result, fmt.Errorf("list target localizations: %w", err)
	}
	existing := make(map[string]appstore.Localization, len(targetLocs))
	for _, loc := range targetLocs {
		existing[loc.Attributes.Locale] = loc
	}

	logger.InfoContext(ctx, "copying descriptions", "source_version_id", source.ID, "target_version_id", target.ID, "dry_run", s.opts.DryRun)

	for _, loc := range sourceLocs {
		locale := loc.Attributes.Locale
		fields := loc.Attributes.Fields()

		current, found := existing[locale]
		if fields.Empty() || (found && sameFields(fields, current.Attributes)) {
			result.Unchanged = append(result.Unchanged, locale)
			logger.DebugContext(ctx, "localization unchanged", "locale", locale)
			continue
		}

		if found {
			if !s.opts.DryRun {
				if _, err := s.api.UpdateLocalization(ctx, current.ID, fields); err != nil {
					return result, fmt.Errorf("update localization %s: %w", locale, err)
				}
			}
			result.Updated = append(result.Updated, locale)
			logger.InfoContext(ctx, "updated localization", "locale", locale, "localization_id", current.ID, "dry_run", s.opts.DryRun)
			continue
		}

		if !s.opts.DryRun {
			if _, err := s.api.CreateLocalization(ctx, target.ID, locale, fields); err != nil {
				return result, fmt.Errorf("create localization %s: %w", locale, err)
			}
		}
		result.Created = append(result.Created, locale)
		logger.InfoContext(ctx, "created localization", "locale", locale, "dry_run", s.opts.DryRun)
	}

	result.Status = StatusCopied
	if s.opts.DryRun {
		result.Status = StatusPlanned
	}
	return result, nil
}

func (s *CopyService) filterLocales(locs []appstore.Localization) []appstore.Localization {
	if s.locales == nil {
		return locs
	}
	kept := make([]appstore.Localization, 0, len(locs))
	for _, loc := range locs {
		if _, ok := s.locales[loc.Attributes.Locale]; ok {
			kept = append(kept, loc)
		}
	}
	return kept
}

// sameFields reports whether every set source field already matches target.
func sameFields(src appstore.LocalizationFields, target appstore.LocalizationAttributes) bool {
	return matches(src.PromotionalText, target.PromotionalText) && matches(src.WhatsNew, target.WhatsNew)
}

func matches(src, target *string) bool {
	if src == nil {
		return true
	}
	return target != nil && *src == *target
}

func display(v *string) string {
	if v == nil {
		return notSet
	}
	return *v
}
