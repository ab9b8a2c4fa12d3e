package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMAPI is the subset of the SSM client the parameter store uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type ParameterStore struct {
	client SSMAPI
}

func NewParameterStore(cfg aws.Config) *ParameterStore {
	return &ParameterStore{client: ssm.NewFromConfig(cfg)}
}

func NewParameterStoreWithClient(client SSMAPI) *ParameterStore {
	return &ParameterStore{client: client}
}

// GetSecret reads a SecureString parameter with decryption.
func (ps *ParameterStore) GetSecret(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}

	input := &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	}

	result, err := ps.client.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("get parameter %q: %w", name, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %q has no value", name)
	}

	return *result.Parameter.Value, nil
}
