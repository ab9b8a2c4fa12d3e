package config

// AWSConfig represents the AWS configuration. It is only consulted when the
// private key comes from SSM or the dump is uploaded to S3.
type AWSConfig struct {
	Region string `mapstructure:"region"`
}
