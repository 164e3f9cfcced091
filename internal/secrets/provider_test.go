package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeVault map[string]string

func (f fakeVault) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestProvider_Resolve(t *testing.T) {
	p := &Provider{
		source: SourceVault,
		vault:  fakeVault{SecretJWTSecret: "from-vault"},
		logger: zap.NewNop(),
	}
	t.Setenv("CIVIC_TEST_API_KEY", "from-env")

	jwt := "default"
	apiKey := ""
	dbPass := "unchanged"
	missing := p.Resolve(context.Background(), []Binding{
		{Secret: SecretJWTSecret, Env: "CIVIC_TEST_JWT_UNSET", Target: &jwt},
		{Secret: SecretAPIKey, Env: "CIVIC_TEST_API_KEY", Target: &apiKey},
		{Secret: SecretDatabasePassword, Env: "CIVIC_TEST_DB_UNSET", Target: &dbPass},
	})

	assert.Equal(t, "from-vault", jwt)
	assert.Equal(t, "from-env", apiKey)
	assert.Equal(t, "unchanged", dbPass)
	assert.Equal(t, []string{SecretDatabasePassword}, missing)
}

func TestProvider_EnvironmentSource(t *testing.T) {
	p := &Provider{source: SourceEnvironment, logger: zap.NewNop()}
	t.Setenv("CIVIC_TEST_SECRET", "value")

	v, err := p.GetSecret(context.Background(), "CIVIC_TEST_SECRET")
	assert.NoError(t, err)
	assert.Equal(t, "value", v)

	_, err = p.GetSecret(context.Background(), "CIVIC_TEST_SECRET_UNSET")
	assert.Error(t, err)
}
