package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource selects where secret values come from
type SecretSource string

const (
	SourceEnvironment SecretSource = "environment"
	SourceVault       SecretSource = "vault"
	// SourceAuto picks the vault outside development environments
	SourceAuto SecretSource = "auto"
)

// Key Vault secret names used by the API
const (
	SecretDatabaseHost      = "civic-db-host"
	SecretDatabaseUser      = "civic-db-user"
	SecretDatabasePassword  = "civic-db-password"
	SecretJWTSecret         = "civic-jwt-secret"
	SecretAPIKey            = "civic-api-key"
	SecretWebhookKey        = "civic-webhook-key"
	SecretStorageConnection = "civic-storage-connection-string"
)

// getter is the subset of VaultClient the provider depends on
type getter interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// Provider resolves secrets from the environment or Azure Key Vault
type Provider struct {
	source      SecretSource
	vault       getter
	logger      *zap.Logger
	environment string
}

// ProviderConfig configures NewProvider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Binding ties a vault secret to its environment override and a destination field
type Binding struct {
	Secret string
	Env    string
	Target *string
}

// ResolveSource turns SourceAuto into a concrete source for the environment
func ResolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider creates a provider, connecting to Key Vault when the resolved source is the vault
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	p := &Provider{
		source:      source,
		logger:      logger,
		environment: cfg.Environment,
	}

	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		client, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		p.vault = client
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return p, nil
}

// GetSecret reads a secret from the configured source. In environment mode
// the name is treated as an environment variable.
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		value := os.Getenv(secretName)
		if value == "" {
			return "", fmt.Errorf("environment variable '%s' not set", secretName)
		}
		return value, nil
	case SourceVault:
		if p.vault == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		return p.vault.GetSecret(ctx, secretName)
	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

// GetSecretOrEnv prefers an explicitly set environment variable over the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if v := os.Getenv(envName); v != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return v, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Resolve fills every binding target that has a value available. Missing
// secrets leave the target untouched and are reported by name.
func (p *Provider) Resolve(ctx context.Context, bindings []Binding) (missing []string) {
	for _, b := range bindings {
		v, err := p.GetSecretOrEnv(ctx, b.Secret, b.Env)
		if err != nil || v == "" {
			missing = append(missing, b.Secret)
			continue
		}
		*b.Target = v
	}
	if len(missing) > 0 {
		p.logger.Warn("Some secrets could not be resolved", zap.Strings("secrets", missing))
	}
	return missing
}

func (p *Provider) Source() SecretSource {
	return p.source
}

func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}
