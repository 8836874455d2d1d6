package esocial

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/sirosfoundation/go-esocial/internal/errs"
	"github.com/sirosfoundation/go-esocial/pkg/certificate"
	"github.com/sirosfoundation/go-esocial/pkg/security"
	"github.com/sirosfoundation/go-esocial/pkg/soap"
	"github.com/sirosfoundation/go-esocial/pkg/transport"
	"github.com/sirosfoundation/go-esocial/pkg/wsdl"
)

// Remote operations and the request parameter elements used when the
// service description does not declare them
const (
	OperationSendBatch = "EnviarLoteEventos"
	OperationQuery     = "ConsultarLoteEventos"

	paramSendBatch = "loteEventos"
	paramQuery     = "consulta"
)

// ExpiryWarning is how long before the signing certificate expires the
// client starts warning about it
const ExpiryWarning = 30 * 24 * time.Hour

// NSQueryRequest is the namespace of the batch status query document
const NSQueryRequest = "http://www.esocial.gov.br/schema/lote/eventos/envio/consulta/retornoProcessamento/v1_0_0"

// Service is the operation set of the eSocial batch services
type Service interface {
	SendBatch(ctx context.Context, xmlText []byte) (*Response, error)
	QueryProtocol(ctx context.Context, protocolID string) (*Response, error)
}

// SendBatch submits an event batch through svc
func SendBatch(ctx context.Context, svc Service, xmlText []byte) (*Response, error) {
	return svc.SendBatch(ctx, xmlText)
}

// QueryProtocol asks svc for the processing status of a submitted batch
func QueryProtocol(ctx context.Context, svc Service, protocolID string) (*Response, error) {
	return svc.QueryProtocol(ctx, protocolID)
}

// ClientConfig holds client configuration
type ClientConfig struct {
	// WSDLURL is the service description of the submit service. When the
	// query operation is published separately, QueryWSDLURL points at it.
	WSDLURL      string
	QueryWSDLURL string

	// PKCS#12 bundle presented as TLS client certificate
	PFXPath     string
	PFXPassword string

	// PEM pair used for WS-Security signing
	CertPEMPath string
	KeyPEMPath  string

	// TrustBundlePath is the only source of trusted server roots
	TrustBundlePath string

	HTTPSConfig *transport.HTTPSConfig
	Logger      *slog.Logger
}

// Client calls the eSocial batch services. It is safe for sequential reuse.
type Client struct {
	http       *transport.HTTPSClient
	signer     *security.RSASigner
	operations map[string]wsdl.Operation
	logger     *slog.Logger
}

var _ Service = (*Client)(nil)

// NewClient loads the credentials, fetches the service descriptions over
// the authenticated channel and binds the batch operations.
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.WSDLURL == "" {
		return nil, fmt.Errorf("WSDL URL is required")
	}
	if cfg.TrustBundlePath == "" {
		return nil, fmt.Errorf("trust bundle path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "esocial"))

	bundle, err := certificate.LoadPKCS12(cfg.PFXPath, cfg.PFXPassword)
	if err != nil {
		return nil, fmt.Errorf("loading transport credential: %w", err)
	}

	pair, err := certificate.LoadKeyPair(cfg.CertPEMPath, cfg.KeyPEMPath)
	if err != nil {
		return nil, fmt.Errorf("loading signing credential: %w", err)
	}
	signer, err := security.NewSignerFromKeyPair(pair)
	if err != nil {
		return nil, err
	}

	roots, err := certificate.LoadCertPool(cfg.TrustBundlePath)
	if err != nil {
		return nil, fmt.Errorf("loading trust bundle: %w", err)
	}

	httpsConfig := transport.DefaultHTTPSConfig()
	if cfg.HTTPSConfig != nil {
		copied := *cfg.HTTPSConfig
		httpsConfig = &copied
	}
	httpsConfig.Certificates = []tls.Certificate{bundle.TLSCertificate()}
	httpsConfig.RootCAs = roots

	c := &Client{
		http:       transport.NewHTTPSClient(httpsConfig),
		signer:     signer,
		operations: make(map[string]wsdl.Operation),
		logger:     logger,
	}

	defs, err := c.fetchDefinitions(ctx, cfg.WSDLURL)
	if err != nil {
		return nil, err
	}
	if cfg.QueryWSDLURL != "" && cfg.QueryWSDLURL != cfg.WSDLURL {
		queryDefs, err := c.fetchDefinitions(ctx, cfg.QueryWSDLURL)
		if err != nil {
			return nil, err
		}
		defs.Merge(queryDefs)
	}

	for _, name := range []string{OperationSendBatch, OperationQuery} {
		op, ok := defs.Operation(name)
		if !ok {
			continue
		}
		if op.SOAP12 {
			return nil, fmt.Errorf("%w: %s is only bound to SOAP 1.2", errs.ErrConnection, name)
		}
		c.operations[name] = op
	}
	if len(c.operations) == 0 {
		return nil, fmt.Errorf("%w: service description binds neither %s nor %s", errs.ErrConnection, OperationSendBatch, OperationQuery)
	}

	now := time.Now()
	if err := certificate.CheckValidity(pair.Leaf, now); err != nil {
		logger.Warn("signing certificate is outside its validity period", slog.String("error", err.Error()))
	} else if certificate.ExpiresWithin(pair.Leaf, now, ExpiryWarning) {
		logger.Warn("signing certificate expires soon",
			slog.Time("not_after", pair.Leaf.NotAfter),
			slog.Int("days_left", certificate.DaysLeft(pair.Leaf, now)))
	}

	info := certificate.Describe(pair.Leaf)
	logger.Info("eSocial client ready",
		slog.String("wsdl", cfg.WSDLURL),
		slog.String("subject", info.Subject),
		slog.Time("not_after", info.NotAfter),
		slog.Int("operations", len(c.operations)))

	return c, nil
}

func (c *Client) fetchDefinitions(ctx context.Context, url string) (*wsdl.Definitions, error) {
	data, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching service description: %w", err)
	}
	c.logger.Debug("fetched service description", slog.String("url", url), slog.Int("bytes", len(data)))

	defs, err := wsdl.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrConnection, url, err)
	}
	return defs, nil
}

// Operation returns the binding of a remote operation
func (c *Client) Operation(name string) (wsdl.Operation, bool) {
	op, ok := c.operations[name]
	return op, ok
}

// SendBatch submits an event batch document (EnviarLoteEventos)
func (c *Client) SendBatch(ctx context.Context, xmlText []byte) (*Response, error) {
	op, err := c.operation(OperationSendBatch)
	if err != nil {
		return nil, err
	}

	envelope, err := soap.WrapXML(op.Namespace, op.RequestElement, parameter(op, paramSendBatch), xmlText)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, op, envelope)
}

// QueryProtocol asks for the processing result of a batch (ConsultarLoteEventos)
func (c *Client) QueryProtocol(ctx context.Context, protocolID string) (*Response, error) {
	if protocolID == "" {
		return nil, fmt.Errorf("protocol identifier is required")
	}
	op, err := c.operation(OperationQuery)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	root := doc.CreateElement("eSocial")
	root.CreateAttr("xmlns", NSQueryRequest)
	root.CreateElement("consultaLoteEventos").CreateElement("protocoloEnvio").SetText(protocolID)

	envelope, err := soap.BuildEnvelope(op.Namespace, op.RequestElement, parameter(op, paramQuery), root)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, op, envelope)
}

func (c *Client) operation(name string) (wsdl.Operation, error) {
	op, ok := c.operations[name]
	if !ok {
		return wsdl.Operation{}, fmt.Errorf("%w: %s", ErrOperationUnavailable, name)
	}
	return op, nil
}

func parameter(op wsdl.Operation, fallback string) string {
	if op.Parameter != "" {
		return op.Parameter
	}
	return fallback
}

func (c *Client) call(ctx context.Context, op wsdl.Operation, envelope []byte) (*Response, error) {
	log := c.logger.With(slog.String("operation", op.Name))

	signed, err := c.signer.SignEnvelope(envelope)
	if err != nil {
		return nil, fmt.Errorf("signing %s request: %w", op.Name, err)
	}

	log.Debug("sending request", slog.String("endpoint", op.Endpoint), slog.Int("bytes", len(signed)))

	resp, err := c.http.Post(ctx, op.Endpoint, op.SOAPAction, signed)
	if err != nil {
		log.Error("request failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op.Name, err)
	}

	log.Debug("received response", slog.Int("status", resp.StatusCode), slog.Int("bytes", len(resp.Body)))

	fault, faultErr := soap.ParseFault(resp.Body)
	if fault != nil {
		log.Warn("service returned a fault", slog.String("code", fault.Code), slog.String("fault", fault.String))
		return nil, fmt.Errorf("%s: %w", op.Name, fault)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s: unexpected HTTP status %d", errs.ErrRemoteService, op.Name, resp.StatusCode)
	}
	if faultErr != nil {
		return nil, fmt.Errorf("%s response: %w", op.Name, faultErr)
	}

	out := &Response{
		Operation:  op.Name,
		StatusCode: resp.StatusCode,
		Raw:        resp.Body,
	}
	if err := out.parseResult(); err != nil {
		return nil, fmt.Errorf("%s response: %w", op.Name, err)
	}

	log.Info("request completed",
		slog.Int("cd_resposta", out.Status.Code),
		slog.String("protocol", out.Protocol),
		slog.Int("occurrences", len(out.Occurrences)))

	return out, nil
}
