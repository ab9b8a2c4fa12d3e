package config

import "time"

// CopyConfig controls which versions are paired and what gets written.
type CopyConfig struct {
	SourceState string        `mapstructure:"source_state" validate:"required,asc_state"`
	TargetState string        `mapstructure:"target_state" validate:"required,asc_state,nefield=SourceState"`
	Locales     []string      `mapstructure:"locales"`
	DryRun      bool          `mapstructure:"dry_run"`
	AppTimeout  time.Duration `mapstructure:"app_timeout"  validate:"gte=0"`
}

// OutputConfig holds the destinations for the debug dump.
type OutputConfig struct {
	DumpPath string `mapstructure:"dump_path" validate:"required"`
	S3Bucket string `mapstructure:"s3_bucket"`
	S3Key    string `mapstructure:"s3_key"    validate:"required_with=S3Bucket"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}
