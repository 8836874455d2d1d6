package esocial

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sirosfoundation/go-esocial/internal/config"
	"github.com/sirosfoundation/go-esocial/pkg/certificate"
	"github.com/sirosfoundation/go-esocial/pkg/transport"
)

// Config is the YAML client configuration
type Config = config.Config

// LoadConfig reads a YAML configuration file
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewClientFromConfig builds a Client from cfg. When cfg.Certificate.Convert
// is set the PEM pair is regenerated from the PKCS#12 bundle first. Explicit
// WSDL URLs take precedence over the environment defaults.
func NewClientFromConfig(ctx context.Context, cfg *Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	env, err := ParseEnvironment(cfg.Environment)
	if err != nil {
		return nil, err
	}

	sendWSDL, queryWSDL := cfg.WSDLURL, cfg.QueryWSDLURL
	if sendWSDL == "" {
		sendWSDL = env.Endpoints().SendWSDL
		if queryWSDL == "" {
			queryWSDL = env.Endpoints().QueryWSDL
		}
	}

	if cfg.Certificate.Convert {
		if err := certificate.Convert(cfg.Certificate.PFXPath, cfg.Certificate.Password,
			cfg.Certificate.CertPEMPath, cfg.Certificate.KeyPEMPath); err != nil {
			return nil, fmt.Errorf("converting certificate bundle: %w", err)
		}
		logger.Debug("converted certificate bundle to PEM", slog.String("cert", cfg.Certificate.CertPEMPath))
	}

	minVersion, err := cfg.Transport.TLSVersion()
	if err != nil {
		return nil, err
	}
	httpsConfig := transport.DefaultHTTPSConfig()
	httpsConfig.MinTLSVersion = minVersion
	if cfg.Transport.Timeout > 0 {
		httpsConfig.Timeout = cfg.Transport.Timeout
	}

	return NewClient(ctx, &ClientConfig{
		WSDLURL:         sendWSDL,
		QueryWSDLURL:    queryWSDL,
		PFXPath:         cfg.Certificate.PFXPath,
		PFXPassword:     cfg.Certificate.Password,
		CertPEMPath:     cfg.Certificate.CertPEMPath,
		KeyPEMPath:      cfg.Certificate.KeyPEMPath,
		TrustBundlePath: cfg.TrustBundle,
		HTTPSConfig:     httpsConfig,
		Logger:          logger.With(slog.String("environment", env.String())),
	})
}
