// Package s3 builds S3 clients for the s3:// connection handler.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"
)

// Presets for S3-compatible services.
const (
	PresetAWS        = "aws"
	PresetLocalStack = "localstack"
	PresetMinIO      = "minio"
)

// Environment overrides applied by LoadClientConfig.
const (
	EnvConfig       = "S3URL_CONFIG"
	EnvRegion       = "S3URL_REGION"
	EnvEndpoint     = "S3URL_ENDPOINT"
	EnvPathStyle    = "S3URL_PATH_STYLE"
	EnvAccessKey    = "S3URL_ACCESS_KEY"
	EnvSecretKey    = "S3URL_SECRET_KEY"
	EnvSessionToken = "S3URL_SESSION_TOKEN"
	EnvPreset       = "S3URL_PRESET"
)

// ClientConfig holds configuration for creating an S3 client.
//
// YAML example:
//
//	preset: minio
//	region: us-east-1
//	endpoint: http://localhost:9000
//	usePathStyle: true
//	accessKeyId: minioadmin
//	secretAccessKey: minioadmin
type ClientConfig struct {
	// Preset fills Endpoint, UsePathStyle, and static credentials for a
	// known S3-compatible service when they are unset.
	// One of "aws" (or empty), "localstack", "minio".
	Preset string `yaml:"preset"`

	// Region is the AWS region. Empty defers to the SDK's default chain.
	Region string `yaml:"region"`

	// Endpoint is an optional custom endpoint URL.
	// Used for S3-compatible services (MinIO, LocalStack, R2).
	Endpoint string `yaml:"endpoint"`

	// UsePathStyle enables path-style addressing instead of virtual-hosted style.
	UsePathStyle bool `yaml:"usePathStyle"`

	// AccessKeyID, SecretAccessKey, and SessionToken are static credentials.
	// Ignored unless both AccessKeyID and SecretAccessKey are set.
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	SessionToken    string `yaml:"sessionToken"`

	// Credentials overrides every other credential source when non-nil.
	Credentials aws.CredentialsProvider `yaml:"-"`
}

// LoadClientConfig reads YAML configuration from path, then applies
// S3URL_* environment overrides and the preset.
//
// An empty path, or a path that does not exist, yields defaults.
func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return ClientConfig{}, fmt.Errorf("s3: reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return ClientConfig{}, fmt.Errorf("s3: parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return ClientConfig{}, err
	}
	if err := cfg.applyPreset(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func (c *ClientConfig) applyEnv() error {
	if v := os.Getenv(EnvPreset); v != "" {
		c.Preset = v
	}
	if v := os.Getenv(EnvRegion); v != "" {
		c.Region = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvPathStyle); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("s3: %s: %w", EnvPathStyle, err)
		}
		c.UsePathStyle = b
	}
	if v := os.Getenv(EnvAccessKey); v != "" {
		c.AccessKeyID = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		c.SecretAccessKey = v
	}
	if v := os.Getenv(EnvSessionToken); v != "" {
		c.SessionToken = v
	}
	return nil
}

func (c *ClientConfig) applyPreset() error {
	var endpoint, user, secret string
	switch strings.ToLower(strings.TrimSpace(c.Preset)) {
	case "", PresetAWS:
		return nil
	case PresetLocalStack:
		endpoint, user, secret = "http://localhost:4566", "test", "test"
	case PresetMinIO:
		endpoint, user, secret = "http://localhost:9000", "minioadmin", "minioadmin"
	default:
		return fmt.Errorf("s3: unknown preset %q", c.Preset)
	}

	if c.Endpoint == "" {
		c.Endpoint = endpoint
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.AccessKeyID == "" && c.SecretAccessKey == "" {
		c.AccessKeyID, c.SecretAccessKey = user, secret
	}
	c.UsePathStyle = true
	return nil
}

// credentialsProvider returns the explicit provider, static credentials, or
// nil for the default chain.
func (c ClientConfig) credentialsProvider() aws.CredentialsProvider {
	if c.Credentials != nil {
		return c.Credentials
	}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		return credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
	}
	return nil
}

// NewClient creates a new S3 client with the given configuration.
//
// For AWS S3:
//
//	client, err := s3.NewClient(ctx, s3.ClientConfig{Region: "us-east-1"})
//
// For MinIO:
//
//	client, err := s3.NewClient(ctx, s3.ClientConfig{Preset: s3.PresetMinIO})
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	if err := cfg.applyPreset(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if p := cfg.credentialsProvider(); p != nil {
		opts = append(opts, config.WithCredentialsProvider(p))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: loading aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, cfg.clientOptions()...), nil
}

func (c ClientConfig) clientOptions() []func(*s3.Options) {
	var s3Opts []func(*s3.Options)

	if c.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(c.Endpoint)
		})
	}

	if c.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3Opts
}

// NewLocalStackClient creates an S3 client configured for LocalStack.
// Defaults: endpoint=http://localhost:4566, region=us-east-1, credentials=test/test.
func NewLocalStackClient(ctx context.Context) (*s3.Client, error) {
	return NewClient(ctx, ClientConfig{Preset: PresetLocalStack})
}

// NewMinIOClient creates an S3 client configured for MinIO.
// Defaults: endpoint=http://localhost:9000, region=us-east-1, credentials=minioadmin/minioadmin.
func NewMinIOClient(ctx context.Context) (*s3.Client, error) {
	return NewClient(ctx, ClientConfig{Preset: PresetMinIO})
}
