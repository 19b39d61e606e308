package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/viewlineage/internal/catalog"
)

// SecretGetter is the subset of the Secrets Manager API used here.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ClientFactory builds a Secrets Manager client for a region.
type ClientFactory func(ctx context.Context, region string) (SecretGetter, error)

// NewAWSClient loads the default AWS credential chain for region.
func NewAWSClient(ctx context.Context, region string) (SecretGetter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for region %s: %w", region, err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// SecretsManager reads connection parameters from a named secret holding
// redshift_dbname, redshift_host, redshift_port, redshift_user and
// redshift_password.
type SecretsManager struct {
	SecretName string
	// Region skips the metadata lookup when set.
	Region    string
	Regions   RegionResolver
	NewClient ClientFactory
	SSLMode   string
	Logger    *slog.Logger
}

type secretPayload struct {
	Database string `mapstructure:"redshift_dbname"`
	Host     string `mapstructure:"redshift_host"`
	Port     int    `mapstructure:"redshift_port"`
	User     string `mapstructure:"redshift_user"`
	Password string `mapstructure:"redshift_password"`
}

// Resolve implements Source.
func (s SecretsManager) Resolve(ctx context.Context) (catalog.ConnParams, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if s.SecretName == "" {
		return catalog.ConnParams{}, errors.New("redshift secret name is required")
	}

	region := s.Region
	if region == "" {
		if s.Regions == nil {
			return catalog.ConnParams{}, errors.New("no region configured and no region resolver available")
		}
		var err error
		if region, err = s.Regions.Region(ctx); err != nil {
			return catalog.ConnParams{}, err
		}
	}
	logger.Debug("using region", slog.String("region", region))

	newClient := s.NewClient
	if newClient == nil {
		newClient = NewAWSClient
	}
	client, err := newClient(ctx, region)
	if err != nil {
		return catalog.ConnParams{}, err
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretName),
	})
	if err != nil {
		return catalog.ConnParams{}, fmt.Errorf("failed to get secret %s: %w", s.SecretName, err)
	}
	logger.Info("retrieved redshift secret", slog.String("secret", s.SecretName), slog.String("region", region))

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(aws.ToString(out.SecretString))
	case len(out.SecretBinary) > 0:
		raw = out.SecretBinary
	default:
		return catalog.ConnParams{}, fmt.Errorf("secret %s has no value", s.SecretName)
	}

	payload, err := decodeSecret(raw)
	if err != nil {
		return catalog.ConnParams{}, fmt.Errorf("secret %s: %w", s.SecretName, err)
	}

	params := catalog.ConnParams{
		Host:     payload.Host,
		Port:     payload.Port,
		Database: payload.Database,
		User:     payload.User,
		Password: payload.Password,
		SSLMode:  s.SSLMode,
	}
	if err := params.Validate(); err != nil {
		return catalog.ConnParams{}, fmt.Errorf("secret %s: %w", s.SecretName, err)
	}
	if params.User == "" || params.Password == "" {
		return catalog.ConnParams{}, fmt.Errorf("secret %s: redshift_user and redshift_password are required", s.SecretName)
	}
	return params, nil
}

func decodeSecret(raw []byte) (secretPayload, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return secretPayload{}, fmt.Errorf("invalid secret JSON: %w", err)
	}

	var payload secretPayload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return secretPayload{}, err
	}
	if err := dec.Decode(fields); err != nil {
		return secretPayload{}, fmt.Errorf("invalid secret payload: %w", err)
	}
	return payload, nil
}
