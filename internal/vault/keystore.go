package vault

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	vaultapi "github.com/hashicorp/vault/api"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/richxcame/cardshield/pkg/config"
	"github.com/richxcame/cardshield/pkg/resilience"
)

// Keystore supplies the symmetric key used by the card cipher. Key rotation
// is handled outside this process; a keystore returns whatever the current
// key material is.
type Keystore interface {
	Key(ctx context.Context) ([]byte, error)
}

// NewKeystore builds the keystore selected by configuration. Remote
// providers are wrapped in a circuit breaker and cache the key after the
// first successful fetch.
func NewKeystore(cfg config.CryptoConfig, breakers config.CircuitBreakerConfig) (Keystore, error) {
	switch cfg.KeystoreProvider {
	case "env":
		return &envKeystore{envVar: "CARD_CIPHER_KEY"}, nil
	case "vault":
		return newVaultKeystore(cfg, newKeystoreBreaker("keystore-vault", breakers))
	case "aws":
		return newAWSKeystore(cfg, newKeystoreBreaker("keystore-aws", breakers)), nil
	case "gcp":
		return newGCPKeystore(cfg, newKeystoreBreaker("keystore-gcp", breakers)), nil
	default:
		return nil, fmt.Errorf("unknown keystore provider %q", cfg.KeystoreProvider)
	}
}

func newKeystoreBreaker(name string, cfg config.CircuitBreakerConfig) *resilience.CircuitBreaker {
	settings := cfg.SettingsFor(name)
	return resilience.NewCircuitBreaker(resilience.Settings{
		Name:             name,
		Interval:         time.Duration(settings.IntervalSeconds) * time.Second,
		Timeout:          time.Duration(settings.TimeoutSeconds) * time.Second,
		FailureThreshold: uint32(settings.FailureThreshold),
		SuccessThreshold: uint32(settings.SuccessThreshold),
	}, nil)
}

// decodeKey parses hex key material and checks the cipher key size
func decodeKey(material string) ([]byte, error) {
	key, err := hex.DecodeString(material)
	if err != nil {
		return nil, fmt.Errorf("key material is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}

// envKeystore reads the key from an environment variable, for development
// and tests only.
type envKeystore struct {
	envVar string
}

func (k *envKeystore) Key(ctx context.Context) ([]byte, error) {
	material := os.Getenv(k.envVar)
	if material == "" {
		return nil, fmt.Errorf("%s is not set", k.envVar)
	}
	return decodeKey(material)
}

// cachedKeystore memoizes the first successful fetch from a remote provider
type cachedKeystore struct {
	fetch func(ctx context.Context) ([]byte, error)

	mu  sync.Mutex
	key []byte
}

func (k *cachedKeystore) Key(ctx context.Context) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != nil {
		return k.key, nil
	}

	key, err := k.fetch(ctx)
	if err != nil {
		return nil, err
	}

	k.key = key
	return key, nil
}

func newVaultKeystore(cfg config.CryptoConfig, breaker *resilience.CircuitBreaker) (Keystore, error) {
	client, err := vaultapi.NewClient(&vaultapi.Config{Address: cfg.VaultAddr})
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(cfg.VaultToken)

	mount := cfg.VaultMountPath
	keyName := cfg.KeyName

	return &cachedKeystore{
		fetch: func(ctx context.Context) ([]byte, error) {
			result, err := breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
				secret, err := client.KVv2(mount).Get(ctx, keyName)
				if err != nil {
					return nil, fmt.Errorf("read %s/%s: %w", mount, keyName, err)
				}
				material, ok := secret.Data["key"].(string)
				if !ok {
					return nil, fmt.Errorf("secret %s/%s has no string field %q", mount, keyName, "key")
				}
				return material, nil
			})
			if err != nil {
				return nil, err
			}
			return decodeKey(result.(string))
		},
	}, nil
}

func newAWSKeystore(cfg config.CryptoConfig, breaker *resilience.CircuitBreaker) Keystore {
	region := cfg.AWSRegion
	keyName := cfg.KeyName

	return &cachedKeystore{
		fetch: func(ctx context.Context) ([]byte, error) {
			result, err := breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
				awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
				if err != nil {
					return nil, fmt.Errorf("aws config: %w", err)
				}

				client := secretsmanager.NewFromConfig(awsCfg)
				out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
					SecretId: aws.String(keyName),
				})
				if err != nil {
					return nil, fmt.Errorf("get secret %s: %w", keyName, err)
				}
				if out.SecretString == nil {
					return nil, fmt.Errorf("secret %s has no string value", keyName)
				}
				return *out.SecretString, nil
			})
			if err != nil {
				return nil, err
			}
			return decodeKey(result.(string))
		},
	}
}

func newGCPKeystore(cfg config.CryptoConfig, breaker *resilience.CircuitBreaker) Keystore {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.GCPProjectID, cfg.KeyName)

	return &cachedKeystore{
		fetch: func(ctx context.Context) ([]byte, error) {
			result, err := breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
				client, err := secretmanager.NewClient(ctx)
				if err != nil {
					return nil, fmt.Errorf("secretmanager client: %w", err)
				}
				defer client.Close()

				resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
					Name: name,
				})
				if err != nil {
					return nil, fmt.Errorf("access secret %s: %w", name, err)
				}
				return string(resp.GetPayload().GetData()), nil
			})
			if err != nil {
				return nil, err
			}
			return decodeKey(result.(string))
		},
	}
}
