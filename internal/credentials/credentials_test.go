package credentials

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/viewlineage/internal/catalog"
	"github.com/leapstack-labs/viewlineage/internal/testutil"
)

type fakeSecrets struct {
	value  *secretsmanager.GetSecretValueOutput
	err    error
	gotID  string
	called int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.called++
	f.gotID = aws.ToString(in.SecretId)
	return f.value, f.err
}

type fakeRegion struct {
	region string
	err    error
	called int
}

func (f *fakeRegion) Region(context.Context) (string, error) {
	f.called++
	return f.region, f.err
}

func factoryFor(client SecretGetter, gotRegion *string) ClientFactory {
	return func(_ context.Context, region string) (SecretGetter, error) {
		*gotRegion = region
		return client, nil
	}
}

func TestSecretsManager_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		secret *secretsmanager.GetSecretValueOutput
		want   catalog.ConnParams
	}{
		{
			name: "numeric port",
			secret: &secretsmanager.GetSecretValueOutput{SecretString: aws.String(
				`{"redshift_dbname":"dev","redshift_host":"cluster.example.com","redshift_port":5439,"redshift_user":"etl","redshift_password":"pw"}`)},
			want: catalog.ConnParams{Host: "cluster.example.com", Port: 5439, Database: "dev", User: "etl", Password: "pw", SSLMode: "require"},
		},
		{
			name: "string port in binary secret",
			secret: &secretsmanager.GetSecretValueOutput{SecretBinary: []byte(
				`{"redshift_dbname":"prod","redshift_host":"h","redshift_port":"5440","redshift_user":"u","redshift_password":"p"}`)},
			want: catalog.ConnParams{Host: "h", Port: 5440, Database: "prod", User: "u", Password: "p", SSLMode: "require"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets := &fakeSecrets{value: tt.secret}
			regions := &fakeRegion{region: "eu-central-1"}
			var gotRegion string

			src := SecretsManager{
				SecretName: "redshift/lineage",
				Regions:    regions,
				NewClient:  factoryFor(secrets, &gotRegion),
				SSLMode:    "require",
				Logger:     testutil.NewTestLogger(t),
			}

			params, err := src.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, params)
			assert.Equal(t, "eu-central-1", gotRegion)
			assert.Equal(t, "redshift/lineage", secrets.gotID)
		})
	}
}

func TestSecretsManager_Resolve_RegionOverride(t *testing.T) {
	secrets := &fakeSecrets{value: &secretsmanager.GetSecretValueOutput{SecretString: aws.String(
		`{"redshift_dbname":"dev","redshift_host":"h","redshift_port":5439,"redshift_user":"u","redshift_password":"p"}`)}}
	regions := &fakeRegion{err: errors.New("should not be called")}
	var gotRegion string

	_, err := SecretsManager{
		SecretName: "s",
		Region:     "ap-southeast-2",
		Regions:    regions,
		NewClient:  factoryFor(secrets, &gotRegion),
	}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", gotRegion)
	assert.Zero(t, regions.called)
}

func TestSecretsManager_Resolve_Errors(t *testing.T) {
	tests := []struct {
		name      string
		regionErr error
		secret    *secretsmanager.GetSecretValueOutput
		secretErr error
		wantErr   string
	}{
		{
			name:      "region lookup fails",
			regionErr: errors.New("metadata endpoint unreachable"),
			wantErr:   "metadata endpoint unreachable",
		},
		{
			name:      "secret lookup fails",
			secretErr: errors.New("AccessDeniedException"),
			wantErr:   "failed to get secret",
		},
		{
			name:    "empty secret",
			secret:  &secretsmanager.GetSecretValueOutput{},
			wantErr: "has no value",
		},
		{
			name:    "not json",
			secret:  &secretsmanager.GetSecretValueOutput{SecretString: aws.String("host=h")},
			wantErr: "invalid secret JSON",
		},
		{
			name:    "missing host",
			secret:  &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"redshift_dbname":"d","redshift_port":5439,"redshift_user":"u","redshift_password":"p"}`)},
			wantErr: "host is required",
		},
		{
			name:    "missing password",
			secret:  &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"redshift_dbname":"d","redshift_host":"h","redshift_port":5439,"redshift_user":"u"}`)},
			wantErr: "redshift_password are required",
		},
		{
			name:    "port not a number",
			secret:  &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"redshift_dbname":"d","redshift_host":"h","redshift_port":"abc"}`)},
			wantErr: "invalid secret payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets := &fakeSecrets{value: tt.secret, err: tt.secretErr}
			var gotRegion string
			src := SecretsManager{
				SecretName: "s",
				Regions:    &fakeRegion{region: "us-east-1", err: tt.regionErr},
				NewClient:  factoryFor(secrets, &gotRegion),
			}

			_, err := src.Resolve(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.regionErr != nil {
				assert.Zero(t, secrets.called)
			}
		})
	}
}

func TestDirect_Resolve(t *testing.T) {
	base := catalog.ConnParams{Host: "h", Port: 5439, Database: "dev"}

	t.Run("prompts for missing credentials", func(t *testing.T) {
		out := &bytes.Buffer{}
		src := Direct{Params: base, Prompter: NewPrompter(strings.NewReader("etl\ns3cret\n"), out)}

		params, err := src.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "etl", params.User)
		assert.Equal(t, "s3cret", params.Password)
		assert.Contains(t, out.String(), "Redshift username: ")
		assert.Contains(t, out.String(), "Redshift password: ")
	})

	t.Run("configured credentials skip prompt", func(t *testing.T) {
		p := base
		p.User, p.Password = "etl", "pw"
		out := &bytes.Buffer{}
		src := Direct{Params: p, Prompter: NewPrompter(strings.NewReader(""), out)}

		params, err := src.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, p, params)
		assert.Empty(t, out.String())
	})

	t.Run("no prompter", func(t *testing.T) {
		_, err := Direct{Params: base}.Resolve(context.Background())
		assert.ErrorContains(t, err, "redshift username is required")
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := Direct{Params: catalog.ConnParams{Port: 5439}}.Resolve(context.Background())
		assert.ErrorContains(t, err, "host is required")
	})
}

func TestPrompter(t *testing.T) {
	p := NewPrompter(strings.NewReader("neo4j\r\nlast-line-no-newline"), &bytes.Buffer{})

	user, err := p.Username("user: ")
	require.NoError(t, err)
	assert.Equal(t, "neo4j", user)

	pw, err := p.Password("password: ")
	require.NoError(t, err)
	assert.Equal(t, "last-line-no-newline", pw)

	_, err = p.Username("again: ")
	assert.ErrorContains(t, err, "failed to read input")
}
