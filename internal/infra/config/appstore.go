package config

// AppStoreConfig holds the App Store Connect API credentials and endpoint.
type AppStoreConfig struct {
	BaseURL        string `mapstructure:"base_url"         validate:"required,url"`
	IssuerID       string `mapstructure:"issuer_id"        validate:"required"`
	KeyID          string `mapstructure:"key_id"           validate:"required,asc_key_id"`
	PrivateKey     string `mapstructure:"private_key"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	AppsLimit      int    `mapstructure:"apps_limit"       validate:"gte=1,lte=200"`
}

// SecretsConfig points at an external secret store for the private key.
type SecretsConfig struct {
	SSMParameter string `mapstructure:"ssm_parameter"`
}
