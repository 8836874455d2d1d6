// Package config handles configuration loading for the eSocial client.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows the certificate
// password to be injected at runtime instead of being stored on disk.
//
// # Configuration Sections
//
//   - environment: target eSocial environment (producao or producaorestrita)
//   - wsdlUrl / queryWsdlUrl: explicit service descriptions, overriding the environment
//   - certificate: PKCS#12 bundle, its password and the derived PEM pair
//   - trustBundle: PEM file with the ICP-Brasil chain trusted for the server
//   - transport: request timeout and minimum TLS version
//   - logging: slog level and output format
//
// # Example Configuration
//
//	environment: producaorestrita
//	certificate:
//	  pfxPath: /etc/esocial/empresa.pfx
//	  password: ${ESOCIAL_PFX_PASSWORD}
//	  certPemPath: /var/lib/esocial/cert.pem
//	  keyPemPath: /var/lib/esocial/key.pem
//	  convert: true
//	trustBundle: /etc/esocial/ca_bundle_icp.pem
//	transport:
//	  timeout: 60s
//	  minTLSVersion: "1.2"
//
// See [Load] for loading configuration from a file.
package config

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names
const (
	EnvironmentProduction = "producao"
	EnvironmentRestricted = "producaorestrita"
)

// Config is the root configuration structure
type Config struct {
	Environment  string            `yaml:"environment"`
	WSDLURL      string            `yaml:"wsdlUrl"`
	QueryWSDLURL string            `yaml:"queryWsdlUrl"`
	Certificate  CertificateConfig `yaml:"certificate"`
	TrustBundle  string            `yaml:"trustBundle"`
	Transport    TransportConfig   `yaml:"transport"`
	Logging      LoggingConfig     `yaml:"logging"`
}

// CertificateConfig holds the client credential settings
type CertificateConfig struct {
	// PKCS#12 (A1) bundle used for TLS client authentication
	PFXPath  string `yaml:"pfxPath"`
	Password string `yaml:"password"`
	// PEM pair used for WS-Security signing
	CertPEMPath string `yaml:"certPemPath"`
	KeyPEMPath  string `yaml:"keyPemPath"`
	// Convert regenerates the PEM pair from the bundle before connecting
	Convert bool `yaml:"convert"`
}

// TransportConfig holds HTTPS settings
type TransportConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MinTLSVersion string        `yaml:"minTLSVersion"`
}

// LoggingConfig holds slog settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration from YAML, expanding environment variables
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvironmentRestricted
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = 30 * time.Second
	}
	if c.Transport.MinTLSVersion == "" {
		c.Transport.MinTLSVersion = "1.2"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Environment {
	case EnvironmentProduction, EnvironmentRestricted:
	default:
		return fmt.Errorf("environment must be '%s' or '%s', got '%s'", EnvironmentProduction, EnvironmentRestricted, c.Environment)
	}

	if c.Certificate.PFXPath == "" {
		return fmt.Errorf("certificate.pfxPath is required")
	}
	if c.Certificate.CertPEMPath == "" || c.Certificate.KeyPEMPath == "" {
		return fmt.Errorf("certificate.certPemPath and certificate.keyPemPath are required")
	}
	if c.TrustBundle == "" {
		return fmt.Errorf("trustBundle is required")
	}

	if c.Transport.Timeout < 0 {
		return fmt.Errorf("transport.timeout must not be negative")
	}
	if _, err := c.Transport.TLSVersion(); err != nil {
		return err
	}

	if _, err := c.Logging.level(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}

	return nil
}

// TLSVersion returns the crypto/tls constant for MinTLSVersion
func (t TransportConfig) TLSVersion() (uint16, error) {
	switch t.MinTLSVersion {
	case "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("transport.minTLSVersion must be '1.2' or '1.3', got '%s'", t.MinTLSVersion)
	}
}

func (l LoggingConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// NewLogger returns a logger writing to w with the configured level and format
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
