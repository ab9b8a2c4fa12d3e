package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/afero"

	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/appstore"
	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
	infra_auth "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/auth"
	infra_config "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/config"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/dump"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/httpclient"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/ratelimit"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/infra/secrets"
	"github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/service"
)

// expiryMargin leaves room for the requests of the app in flight.
const expiryMargin = time.Minute

// Dependencies is everything a run needs, built once at program entry.
type Dependencies struct {
	Credential infra_auth.Credential
	HTTP       *httpclient.Client
	AppStore   *appstore.Client
	Copier     *service.CopyService
	Dump       *dump.Writer
}

type Option func(*providers)

// WithFS replaces the OS filesystem used for the key file and the dump.
func WithFS(fs afero.Fs) Option {
	return func(p *providers) { p.fs = fs }
}

// WithHTTPClient replaces the pooled transport client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *providers) { p.httpClient = client }
}

// WithSecretProvider replaces the SSM parameter store.
func WithSecretProvider(provider secrets.Provider) Option {
	return func(p *providers) { p.secretStore = provider }
}

// WithUploader replaces the S3 dump uploader.
func WithUploader(uploader dump.Uploader) Option {
	return func(p *providers) { p.uploader = uploader }
}

// WithClock sets the time source for credential issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *providers) { p.now = now }
}

type providers struct {
	fs          afero.Fs
	httpClient  *http.Client
	secretStore secrets.Provider
	uploader    dump.Uploader
	now         func() time.Time

	awsOnce sync.Once
	awsCfg  aws.Config
	awsErr  error
}

// ProvideDependencies resolves the key material, mints the single run
// credential and builds the clients around it. A SigningError is returned
// before any API request is possible.
func ProvideDependencies(ctx context.Context, cfg *infra_config.Config, logger *slog.Logger, opts ...Option) (*Dependencies, error) {
	p := &providers{fs: afero.NewOsFs(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}

	credential, err := p.provideCredential(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "credential issued",
		"kid", credential.KeyID,
		"issued_at", credential.IssuedAt,
		"expires_at", credential.ExpiresAt,
	)

	httpClient := p.provideHTTPClient(cfg, credential, logger)
	appStore := appstore.NewClient(httpClient, cfg.AppStore.BaseURL)

	copier := service.NewCopyService(appStore, service.CopyOptions{
		SourceState:      cfg.Copy.SourceState,
		TargetState:      cfg.Copy.TargetState,
		Locales:          cfg.Copy.Locales,
		DryRun:           cfg.Copy.DryRun,
		AppsLimit:        cfg.AppStore.AppsLimit,
		AppTimeout:       cfg.Copy.AppTimeout,
		CredentialExpiry: credential.ExpiresAt,
		ExpiryMargin:     expiryMargin,
		Now:              p.now,
	}, logger, app_errors.NewErrorClassifier(logger))

	dumpWriter, err := p.provideDumpWriter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Credential: credential,
		HTTP:       httpClient,
		AppStore:   appStore,
		Copier:     copier,
		Dump:       dumpWriter,
	}, nil
}

func (p *providers) provideCredential(ctx context.Context, cfg *infra_config.Config) (infra_auth.Credential, error) {
	source := secrets.KeySource{
		Inline:    cfg.AppStore.PrivateKey,
		Path:      cfg.AppStore.PrivateKeyPath,
		Parameter: cfg.Secrets.SSMParameter,
		FS:        p.fs,
	}
	if cfg.Secrets.SSMParameter != "" {
		store, err := p.provideSecretStore(ctx, cfg)
		if err != nil {
			return infra_auth.Credential{}, err
		}
		source.Store = store
	}

	keyPEM, err := source.Resolve(ctx)
	if err != nil {
		return infra_auth.Credential{}, fmt.Errorf("failed to resolve private key: %w", err)
	}

	issuer, err := infra_auth.NewTokenIssuer(infra_auth.IssuerConfig{
		IssuerID:      cfg.AppStore.IssuerID,
		KeyID:         cfg.AppStore.KeyID,
		PrivateKeyPEM: keyPEM,
		Now:           p.now,
	})
	if err != nil {
		return infra_auth.Credential{}, err
	}

	return issuer.Issue()
}

func (p *providers) provideSecretStore(ctx context.Context, cfg *infra_config.Config) (secrets.Provider, error) {
	if p.secretStore != nil {
		return p.secretStore, nil
	}
	awsCfg, err := p.provideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return secrets.NewParameterStore(awsCfg), nil
}

func (p *providers) provideHTTPClient(cfg *infra_config.Config, credential infra_auth.Credential, logger *slog.Logger) *httpclient.Client {
	policy := httpclient.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.HTTP.MaxAttempts
	policy.BackoffFactor = cfg.HTTP.BackoffFactor
	policy.MaxBackoff = cfg.HTTP.MaxBackoff

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.HTTP.RateLimiter.Enabled {
		limiter = ratelimit.New(cfg.HTTP.RateLimiter.Rate, cfg.HTTP.RateLimiter.Burst)
	}

	return httpclient.New(credential, httpclient.Options{
		Policy:     policy,
		Timeout:    cfg.HTTP.Timeout,
		Limiter:    limiter,
		Logger:     logger.With("component", "httpclient"),
		HTTPClient: p.httpClient,
		UserAgent:  "asc-desc-copy/" + cfg.ServiceVersion,
	})
}

func (p *providers) provideDumpWriter(ctx context.Context, cfg *infra_config.Config, logger *slog.Logger) (*dump.Writer, error) {
	writer := dump.NewWriter(p.fs, cfg.Output.DumpPath, logger)
	if cfg.Output.S3Bucket == "" {
		return writer, nil
	}

	uploader := p.uploader
	if uploader == nil {
		awsCfg, err := p.provideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		uploader = dump.NewS3Uploader(awsCfg, cfg.Output.S3Bucket)
	}
	return writer.WithUploader(uploader, cfg.Output.S3Key), nil
}

// provideAWSConfig loads the shared AWS config at most once per run.
func (p *providers) provideAWSConfig(ctx context.Context, cfg *infra_config.Config) (aws.Config, error) {
	p.awsOnce.Do(func() {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWS.Region != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWS.Region))
		}
		p.awsCfg, p.awsErr = config.LoadDefaultConfig(ctx, loadOpts...)
	})
	if p.awsErr != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", p.awsErr)
	}
	return p.awsCfg, nil
}
