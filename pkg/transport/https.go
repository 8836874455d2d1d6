package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// ContentTypeSOAP11 is the content type of SOAP 1.1 requests
const ContentTypeSOAP11 = "text/xml; charset=utf-8"

// DefaultUserAgent identifies the client to the remote service
const DefaultUserAgent = "go-esocial/1.0"

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// HTTPSConfig contains HTTPS client configuration
type HTTPSConfig struct {
	MinTLSVersion   uint16
	MaxTLSVersion   uint16
	CipherSuites    []uint16
	Certificates    []tls.Certificate
	RootCAs         *x509.CertPool
	Timeout         time.Duration
	IdleConnTimeout time.Duration
	UserAgent       string
}

// DefaultHTTPSConfig returns a default HTTPS configuration
func DefaultHTTPSConfig() *HTTPSConfig {
	return &HTTPSConfig{
		MinTLSVersion:   TLS12,
		MaxTLSVersion:   TLS13,
		CipherSuites:    RecommendedTLS12CipherSuites,
		Timeout:         30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
		UserAgent:       DefaultUserAgent,
	}
}

// Response is a raw HTTP response from the remote service
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPSClient performs requests over a mutually authenticated TLS channel
type HTTPSClient struct {
	client *http.Client
	config *HTTPSConfig
}

// NewHTTPSClient creates a new HTTPS client
func NewHTTPSClient(config *HTTPSConfig) *HTTPSClient {
	if config == nil {
		config = DefaultHTTPSConfig()
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	roots := config.RootCAs
	if roots == nil {
		roots = x509.NewCertPool()
	}

	tlsConfig := &tls.Config{
		MinVersion:   config.MinTLSVersion,
		MaxVersion:   config.MaxTLSVersion,
		CipherSuites: config.CipherSuites,
		Certificates: config.Certificates,
		RootCAs:      roots,
	}

	transport := &http.Transport{
		TLSClientConfig:     tlsConfig,
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
	}

	return &HTTPSClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config: config,
	}
}

// Get fetches a document, typically a WSDL. Any status other than 200 is an error.
func (c *HTTPSClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", errs.ErrConnection, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d fetching %s", errs.ErrConnection, resp.StatusCode, url)
	}

	return resp.Body, nil
}

// Post sends a SOAP 1.1 request. The response is returned whatever its
// status code; interpreting faults is left to the caller.
func (c *HTTPSClient) Post(ctx context.Context, endpoint, soapAction string, envelope []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", errs.ErrConnection, err)
	}

	req.Header.Set("Content-Type", ContentTypeSOAP11)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/xml")
	req.Header.Set("SOAPAction", `"`+soapAction+`"`)

	return c.do(req)
}

func (c *HTTPSClient) do(req *http.Request) (*Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", errs.ErrConnection, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// classify maps a failed round trip onto ErrTLSHandshake or ErrConnection
func classify(err error) error {
	if isTLSFailure(err) {
		return fmt.Errorf("%w: %w", errs.ErrTLSHandshake, err)
	}
	return fmt.Errorf("%w: %w", errs.ErrConnection, err)
}

func isTLSFailure(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		opErr        *net.OpError
	)

	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr),
		errors.As(err, &recordErr),
		errors.As(err, &alertErr):
		return true
	case errors.As(err, &opErr) && opErr.Op == "remote error":
		return true
	}

	// With TLS 1.3 the server verifies the client certificate after the
	// client considers the handshake done, so a rejection arrives as an
	// alert on the first response read. Depending on when the HTTP/1
	// transport sees that read fail, the *net.OpError may not stay in the
	// chain; only crypto/tls's "remote error: tls: <alert>" text is left.
	return strings.Contains(err.Error(), "remote error: tls: ")
}
