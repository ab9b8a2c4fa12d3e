package service_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/appstore"
	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/service"
)

type update struct {
	id     string
	fields appstore.LocalizationFields
}

type create struct {
	versionID string
	locale    string
	fields    appstore.LocalizationFields
}

// fakeAPI is an in-memory App Store Connect.
type fakeAPI struct {
	apps          []appstore.App
	listAppsErr   error
	versions      map[string][]appstore.Version
	versionErrs   map[string]error
	localizations map[string][]appstore.Localization
	updateErr     error

	updates []update
	creates []create
}

func (f *fakeAPI) ListApps(_ context.Context, limit int) ([]appstore.App, []byte, error) {
	if f.listAppsErr != nil {
		return nil, nil, f.listAppsErr
	}
	return f.apps, []byte(`{"data":[]}`), nil
}

func (f *fakeAPI) ListVersions(_ context.Context, appID string) ([]appstore.Version, error) {
	if err := f.versionErrs[appID]; err != nil {
		return nil, err
	}
	return f.versions[appID], nil
}

func (f *fakeAPI) ListLocalizations(_ context.Context, versionID string) ([]appstore.Localization, error) {
	return f.localizations[versionID], nil
}

func (f *fakeAPI) UpdateLocalization(_ context.Context, id string, fields appstore.LocalizationFields) (appstore.Localization, error) {
	if f.updateErr != nil {
		return appstore.Localization{}, f.updateErr
	}
	f.updates = append(f.updates, update{id: id, fields: fields})
	return appstore.Localization{ID: id}, nil
}

func (f *fakeAPI) CreateLocalization(_ context.Context, versionID, locale string, fields appstore.LocalizationFields) (appstore.Localization, error) {
	f.creates = append(f.creates, create{versionID: versionID, locale: locale, fields: fields})
	return appstore.Localization{ID: "new-" + locale}, nil
}

func ptr(s string) *string { return &s }

func app(id, name string) appstore.App {
	return appstore.App{ID: id, Attributes: appstore.AppAttributes{Name: name}}
}

func version(id, state string) appstore.Version {
	return appstore.Version{ID: id, Attributes: appstore.VersionAttributes{AppStoreState: state}}
}

func localization(id, locale string, promo, whatsNew *string) appstore.Localization {
	return appstore.Localization{ID: id, Attributes: appstore.LocalizationAttributes{
		Locale:          locale,
		PromotionalText: promo,
		WhatsNew:        whatsNew,
	}}
}

func newService(api service.AppStoreAPI, opts service.CopyOptions) (*service.CopyService, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return service.NewCopyService(api, opts, logger, app_errors.NewErrorClassifier(logger)), &buf
}

func standardAPI() *fakeAPI {
	return &fakeAPI{
		apps: []appstore.App{app("1", "Foo")},
		versions: map[string][]appstore.Version{
			"1": {version("v-new", appstore.StatePrepareForSubmission), version("v-old", appstore.StateReadyForSale)},
		},
		localizations: map[string][]appstore.Localization{
			"v-old": {
				localization("s-en", "en-US", ptr("Try it"), ptr("Bug fixes")),
				localization("s-de", "de-DE", ptr("Probier es"), ptr("Fehler behoben")),
			},
			"v-new": {
				localization("t-en", "en-US", nil, nil),
			},
		},
	}
}

func TestRun_UpdatesExistingAndCreatesMissing(t *testing.T) {
	api := standardAPI()
	svc, _ := newService(api, service.CopyOptions{})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Apps, 1)

	result := report.Apps[0]
	assert.Equal(t, service.StatusCopied, result.Status)
	assert.Equal(t, "v-old", result.SourceVersionID)
	assert.Equal(t, "v-new", result.TargetVersionID)
	assert.Equal(t, []string{"en-US"}, result.Updated)
	assert.Equal(t, []string{"de-DE"}, result.Created)
	assert.JSONEq(t, `{"data":[]}`, string(report.RawApps))

	require.Len(t, api.updates, 1)
	assert.Equal(t, "t-en", api.updates[0].id)
	assert.Equal(t, "Try it", *api.updates[0].fields.PromotionalText)
	assert.Equal(t, "Bug fixes", *api.updates[0].fields.WhatsNew)

	require.Len(t, api.creates, 1)
	assert.Equal(t, "v-new", api.creates[0].versionID)
	assert.Equal(t, "de-DE", api.creates[0].locale)
	assert.Equal(t, "Fehler behoben", *api.creates[0].fields.WhatsNew)
}

func TestRun_SkipsWithoutSourceOrTarget(t *testing.T) {
	api := &fakeAPI{
		apps: []appstore.App{app("1", "NoRelease"), app("2", "NoDraft")},
		versions: map[string][]appstore.Version{
			"1": {version("a", appstore.StatePrepareForSubmission)},
			"2": {version("b", appstore.StateReadyForSale)},
		},
		localizations: map[string][]appstore.Localization{
			"b": {localization("s", "en-US", ptr("x"), nil)},
		},
	}
	svc, _ := newService(api, service.CopyOptions{})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Apps, 2)

	assert.Equal(t, service.StatusSkipped, report.Apps[0].Status)
	assert.Equal(t, service.ReasonNoSourceVersion, report.Apps[0].Reason)
	assert.Equal(t, service.StatusSkipped, report.Apps[1].Status)
	assert.Equal(t, service.ReasonNoTargetVersion, report.Apps[1].Reason)
	assert.Empty(t, api.updates)
	assert.Empty(t, api.creates)
}

func TestRun_FailureOnOneAppContinues(t *testing.T) {
	api := standardAPI()
	api.apps = append([]appstore.App{app("bad", "Broken")}, api.apps...)
	api.versionErrs = map[string]error{
		"bad": &app_errors.PermanentHTTPError{Method: "GET", URL: "/v1/apps/bad/appStoreVersions", StatusCode: 404},
	}
	svc, logs := newService(api, service.CopyOptions{})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Apps, 2)

	assert.Equal(t, service.StatusFailed, report.Apps[0].Status)
	assert.ErrorIs(t, report.Apps[0].Err, app_errors.ErrNotFound)
	assert.Equal(t, service.StatusCopied, report.Apps[1].Status)
	assert.True(t, report.HasFailures())
	assert.Equal(t, 1, report.Count(service.StatusCopied))

	assert.Contains(t, logs.String(), "error_class=not_found")
	assert.Contains(t, logs.String(), "app_id=bad")
}

func TestRun_PartialProgressIsKeptOnWriteFailure(t *testing.T) {
	api := standardAPI()
	api.updateErr = &app_errors.TransientHTTPError{StatusCode: 503, Attempts: 3}
	svc, _ := newService(api, service.CopyOptions{})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	result := report.Apps[0]
	assert.Equal(t, service.StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, app_errors.ErrTransientHTTP)
	assert.Equal(t, "v-new", result.TargetVersionID)
	assert.Empty(t, result.Updated)
}

func TestRun_ListAppsFailureAborts(t *testing.T) {
	api := &fakeAPI{listAppsErr: &app_errors.PermanentHTTPError{StatusCode: 401}}
	svc, _ := newService(api, service.CopyOptions{})

	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, app_errors.ErrPermanentHTTP)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	api := standardAPI()
	svc, _ := newService(api, service.CopyOptions{DryRun: true})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, service.StatusPlanned, report.Apps[0].Status)
	assert.Equal(t, []string{"en-US"}, report.Apps[0].Updated)
	assert.Equal(t, []string{"de-DE"}, report.Apps[0].Created)
	assert.Empty(t, api.updates)
	assert.Empty(t, api.creates)
}

func TestRun_LocaleFilter(t *testing.T) {
	api := standardAPI()
	svc, _ := newService(api, service.CopyOptions{Locales: []string{"de-DE"}})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Apps[0].Updated)
	assert.Equal(t, []string{"de-DE"}, report.Apps[0].Created)
	assert.Empty(t, api.updates)
}

func TestRun_LocaleFilterMatchingNothingSkips(t *testing.T) {
	api := standardAPI()
	svc, _ := newService(api, service.CopyOptions{Locales: []string{"ja"}})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, service.StatusSkipped, report.Apps[0].Status)
	assert.Equal(t, service.ReasonNoLocalizations, report.Apps[0].Reason)
}

func TestRun_UnsetSourceFieldsAreNotWritten(t *testing.T) {
	api := standardAPI()
	api.localizations["v-old"] = []appstore.Localization{
		localization("s-en", "en-US", nil, ptr("Bug fixes")),
		localization("s-fr", "fr-FR", nil, nil),
	}
	svc, logs := newService(api, service.CopyOptions{})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, api.updates, 1)
	assert.Nil(t, api.updates[0].fields.PromotionalText)
	assert.Equal(t, "Bug fixes", *api.updates[0].fields.WhatsNew)
	assert.Empty(t, api.creates)
	assert.Equal(t, []string{"fr-FR"}, report.Apps[0].Unchanged)
	assert.Contains(t, logs.String(), `promotional_text="Not set"`)
}

func TestRun_IdenticalTargetIsUnchanged(t *testing.T) {
	api := standardAPI()
	api.localizations["v-new"] = []appstore.Localization{
		localization("t-en", "en-US", ptr("Try it"), ptr("Bug fixes")),
	}
	svc, _ := newService(api, service.CopyOptions{})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, api.updates)
	assert.Equal(t, []string{"en-US"}, report.Apps[0].Unchanged)
	assert.Equal(t, []string{"de-DE"}, report.Apps[0].Created)
}

func TestRun_StopsStartingAppsNearCredentialExpiry(t *testing.T) {
	api := standardAPI()
	api.apps = append(api.apps, app("2", "Late"))

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	now := func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(14 * time.Minute)
	}

	svc, _ := newService(api, service.CopyOptions{
		CredentialExpiry: start.Add(15 * time.Minute),
		ExpiryMargin:     time.Minute,
		Now:              now,
	})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Apps, 2)

	assert.Equal(t, service.StatusCopied, report.Apps[0].Status)
	assert.Equal(t, service.StatusSkipped, report.Apps[1].Status)
	assert.Equal(t, service.ReasonCredentialExpired, report.Apps[1].Reason)
}

func TestRun_AppTimeout(t *testing.T) {
	api := &slowAPI{fakeAPI: standardAPI()}
	svc, _ := newService(api, service.CopyOptions{AppTimeout: 10 * time.Millisecond})

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, service.StatusFailed, report.Apps[0].Status)
	assert.True(t, errors.Is(report.Apps[0].Err, context.DeadlineExceeded))
}

func TestRun_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc, _ := newService(standardAPI(), service.CopyOptions{})
	report, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Apps)
}

type slowAPI struct {
	*fakeAPI
}

func (s *slowAPI) ListVersions(ctx context.Context, appID string) ([]appstore.Version, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return s.fakeAPI.ListVersions(ctx, appID)
	}
}
