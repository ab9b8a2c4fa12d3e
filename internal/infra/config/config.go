package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
	customvalidator "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/pkg/validator"
)

const envPrefix = "ASCCOPY"

type Config struct {
	AppStore       AppStoreConfig `mapstructure:"app_store" validate:"required"`
	HTTP           HTTPConfig     `mapstructure:"http"`
	Secrets        SecretsConfig  `mapstructure:"secrets"`
	AWS            AWSConfig      `mapstructure:"aws"`
	Copy           CopyConfig     `mapstructure:"copy"`
	Output         OutputConfig   `mapstructure:"output"`
	Log            LogConfig      `mapstructure:"log"`
	ServiceVersion string
	BuildCommit    string
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.Secrets.SSMParameter != "" || c.Output.S3Bucket != ""
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("app_store.base_url", "https://api.appstoreconnect.apple.com")
	vip.SetDefault("app_store.issuer_id", "")
	vip.SetDefault("app_store.key_id", "")
	vip.SetDefault("app_store.private_key", "")
	vip.SetDefault("app_store.private_key_path", "")
	vip.SetDefault("app_store.apps_limit", 50)

	vip.SetDefault("http.max_attempts", 3)
	vip.SetDefault("http.backoff_factor", time.Second)
	vip.SetDefault("http.max_backoff", 30*time.Second)
	vip.SetDefault("http.timeout", time.Duration(0))
	vip.SetDefault("http.rate_limiter.enabled", false)
	vip.SetDefault("http.rate_limiter.rate", 0.0)
	vip.SetDefault("http.rate_limiter.burst", 1)

	vip.SetDefault("secrets.ssm_parameter", "")
	vip.SetDefault("aws.region", "")

	vip.SetDefault("copy.source_state", "READY_FOR_SALE")
	vip.SetDefault("copy.target_state", "PREPARE_FOR_SUBMISSION")
	vip.SetDefault("copy.locales", []string{})
	vip.SetDefault("copy.dry_run", false)
	vip.SetDefault("copy.app_timeout", time.Duration(0))

	vip.SetDefault("output.dump_path", "app_descriptions.json")
	vip.SetDefault("output.s3_bucket", "")
	vip.SetDefault("output.s3_key", "app_descriptions.json")

	vip.SetDefault("log.level", "info")
}

// Load reads the YAML config at path (or ./configs/config.yaml, ./config.yaml)
// and overlays ASCCOPY_* environment variables. A missing file is not an
// error; missing credentials are.
func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(vip)

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.ServiceVersion = getenv(envPrefix+"_SERVICE_VERSION", "unknown")
	cfg.BuildCommit = getenv(envPrefix+"_BUILD_COMMIT", "unknown")

	return &cfg, nil
}

// Validate checks struct tags and that some private key source is set.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := customvalidator.RegisterCustomValidators(validate); err != nil {
		return fmt.Errorf("failed to register custom validators: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", app_errors.ErrInvalidConfig, err)
	}

	if strings.TrimSpace(cfg.AppStore.PrivateKey) == "" &&
		cfg.AppStore.PrivateKeyPath == "" &&
		cfg.Secrets.SSMParameter == "" {
		return fmt.Errorf("%w: one of app_store.private_key, app_store.private_key_path or secrets.ssm_parameter is required", app_errors.ErrInvalidConfig)
	}

	return nil
}

// getenv returns an environment variable or a default value.
func getenv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
