package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	app_errors "github.com/robwilkens/AppStireCopyDesctoNewVersionScript/internal/errors"
)

// Provider retrieves a named secret from an external store.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// KeySource locates the PEM private key. The first non-empty source wins:
// inline value, then file, then the secret store parameter.
type KeySource struct {
	Inline    string
	Path      string
	Parameter string
	FS        afero.Fs
	Store     Provider
}

func (ks KeySource) Resolve(ctx context.Context) (string, error) {
	if strings.TrimSpace(ks.Inline) != "" {
		return ks.Inline, nil
	}

	if ks.Path != "" {
		fs := ks.FS
		if fs == nil {
			fs = afero.NewOsFs()
		}
		data, err := afero.ReadFile(fs, ks.Path)
		if err != nil {
			return "", fmt.Errorf("read private key file %s: %w", ks.Path, err)
		}
		return string(data), nil
	}

	if ks.Parameter != "" {
		if ks.Store == nil {
			return "", fmt.Errorf("%w: secret store not configured for parameter %s", app_errors.ErrInvalidConfig, ks.Parameter)
		}
		return ks.Store.GetSecret(ctx, ks.Parameter)
	}

	return "", fmt.Errorf("%w: no private key source configured", app_errors.ErrInvalidConfig)
}
