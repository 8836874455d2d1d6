package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirosfoundation/go-esocial/internal/errs"
	"github.com/sirosfoundation/go-esocial/internal/testpki"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHTTPSConfig(t *testing.T) {
	config := DefaultHTTPSConfig()

	if config == nil {
		t.Fatal("expected non-nil config")
	}
	if config.MinTLSVersion != TLS12 {
		t.Errorf("expected MinTLSVersion TLS12, got %d", config.MinTLSVersion)
	}
	if config.MaxTLSVersion != TLS13 {
		t.Errorf("expected MaxTLSVersion TLS13, got %d", config.MaxTLSVersion)
	}
	if len(config.CipherSuites) == 0 {
		t.Error("expected CipherSuites to be set")
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("expected Timeout 30s, got %v", config.Timeout)
	}
	if config.UserAgent != DefaultUserAgent {
		t.Errorf("expected default user agent, got %q", config.UserAgent)
	}
}

func TestRecommendedTLS12CipherSuites(t *testing.T) {
	for _, suite := range RecommendedTLS12CipherSuites {
		if tls.CipherSuiteName(suite) == "" {
			t.Errorf("unknown cipher suite: %d", suite)
		}
	}
}

func TestNewHTTPSClient_NilConfig(t *testing.T) {
	client := NewHTTPSClient(nil)

	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.config == nil {
		t.Error("expected config to be set to default")
	}
}

func TestHTTPSClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != ContentTypeSOAP11 {
			t.Errorf("unexpected content-type %q", ct)
		}
		if sa := r.Header.Get("SOAPAction"); sa != `"urn:test/Action"` {
			t.Errorf("unexpected SOAPAction %q", sa)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "<Request/>" {
			t.Errorf("unexpected body %q", body)
		}

		w.Header().Set("Content-Type", ContentTypeSOAP11)
		w.Write([]byte("<Response/>"))
	}))
	defer server.Close()

	client := NewHTTPSClient(nil)

	resp, err := client.Post(context.Background(), server.URL, "urn:test/Action", []byte("<Request/>"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<Response/>", string(resp.Body))
}

func TestHTTPSClient_Post_ErrorStatusIsReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<Fault/>"))
	}))
	defer server.Close()

	resp, err := NewHTTPSClient(nil).Post(context.Background(), server.URL, "", []byte("<Request/>"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "<Fault/>", string(resp.Body))
}

func TestHTTPSClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "wsdl" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("<definitions/>"))
	}))
	defer server.Close()

	client := NewHTTPSClient(nil)

	body, err := client.Get(context.Background(), server.URL+"?wsdl")
	require.NoError(t, err)
	assert.Equal(t, "<definitions/>", string(body))

	_, err = client.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, errs.ErrConnection)
}

func TestHTTPSClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPSClient(nil).Post(context.Background(), url, "", []byte("<Request/>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConnection)
	assert.NotErrorIs(t, err, errs.ErrTLSHandshake)
}

func TestHTTPSClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPSClient(nil).Post(ctx, server.URL, "", []byte("<Request/>"))
	assert.ErrorIs(t, err, errs.ErrConnection)
}

// mtlsServer starts a TLS 1.2 server that requires client certificates
// issued by clientCA
func mtlsServer(t *testing.T, clientCA *testpki.CA) *httptest.Server {
	t.Helper()
	return mtlsServerVersion(t, clientCA, tls.VersionTLS12)
}

func mtlsServerVersion(t *testing.T, clientCA *testpki.CA, maxVersion uint16) *httptest.Server {
	t.Helper()

	clientCAs := x509.NewCertPool()
	clientCAs.AddCert(clientCA.Cert)

	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.TLS.PeerCertificates) == 0 {
			t.Error("expected a client certificate")
		}
		w.Write([]byte("<ok/>"))
	}))
	server.TLS = &tls.Config{
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  clientCAs,
		MaxVersion: maxVersion,
	}
	server.StartTLS()
	t.Cleanup(server.Close)

	return server
}

func pinned(server *httptest.Server) *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(server.Certificate())
	return pool
}

func TestHTTPSClient_MutualTLS(t *testing.T) {
	ca := testpki.NewCA(t, "AC Teste")
	id := ca.Issue(t, "empregador")
	server := mtlsServer(t, ca)

	client := NewHTTPSClient(&HTTPSConfig{
		MinTLSVersion: TLS12,
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{id.Cert.Raw},
			PrivateKey:  id.Key,
		}},
		RootCAs: pinned(server),
		Timeout: 10 * time.Second,
	})

	resp, err := client.Post(context.Background(), server.URL, "", []byte("<Request/>"))
	require.NoError(t, err)
	assert.Equal(t, "<ok/>", string(resp.Body))
}

func TestHTTPSClient_ClientCertificateRejected(t *testing.T) {
	trusted := testpki.NewCA(t, "AC Confiavel")
	other := testpki.NewCA(t, "AC Desconhecida")
	id := other.Issue(t, "empregador")
	server := mtlsServer(t, trusted)

	client := NewHTTPSClient(&HTTPSConfig{
		MinTLSVersion: TLS12,
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{id.Cert.Raw},
			PrivateKey:  id.Key,
		}},
		RootCAs: pinned(server),
		Timeout: 10 * time.Second,
	})

	_, err := client.Post(context.Background(), server.URL, "", []byte("<Request/>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTLSHandshake)
}

func TestHTTPSClient_ClientCertificateRejectedTLS13(t *testing.T) {
	trusted := testpki.NewCA(t, "AC Confiavel")
	other := testpki.NewCA(t, "AC Desconhecida")
	id := other.Issue(t, "empregador")
	server := mtlsServerVersion(t, trusted, tls.VersionTLS13)

	client := NewHTTPSClient(&HTTPSConfig{
		MinTLSVersion: TLS13,
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{id.Cert.Raw},
			PrivateKey:  id.Key,
		}},
		RootCAs: pinned(server),
		Timeout: 10 * time.Second,
	})

	_, err := client.Post(context.Background(), server.URL, "", []byte("<Request/>"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTLSHandshake)
}

func TestIsTLSFailure(t *testing.T) {
	assert.False(t, isTLSFailure(errors.New("dial tcp 127.0.0.1:1: connect: connection refused")))
	assert.False(t, isTLSFailure(errors.New("mentions tls: in passing")))
	assert.True(t, isTLSFailure(&net.OpError{Op: "remote error", Err: errors.New("tls: bad certificate")}))
	assert.True(t, isTLSFailure(fmt.Errorf("net/http: HTTP/1.x transport connection broken: %v",
		errors.New("remote error: tls: certificate required"))))
}

func TestHTTPSClient_ServerNotInTrustBundle(t *testing.T) {
	ca := testpki.NewCA(t, "AC Teste")
	id := ca.Issue(t, "empregador")
	server := mtlsServer(t, ca)

	// Only the client CA is trusted, not the server's issuer; the system
	// roots must not be consulted either.
	roots := x509.NewCertPool()
	roots.AddCert(ca.Cert)

	client := NewHTTPSClient(&HTTPSConfig{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{id.Cert.Raw},
			PrivateKey:  id.Key,
		}},
		RootCAs: roots,
	})

	_, err := client.Post(context.Background(), server.URL, "", []byte("<Request/>"))
	assert.ErrorIs(t, err, errs.ErrTLSHandshake)
}

func TestHTTPSClient_NilRootsFailClosed(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<ok/>"))
	}))
	defer server.Close()

	_, err := NewHTTPSClient(DefaultHTTPSConfig()).Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, errs.ErrTLSHandshake)
}

func TestTLSConstants(t *testing.T) {
	if TLS12 != tls.VersionTLS12 {
		t.Errorf("TLS12 constant mismatch")
	}
	if TLS13 != tls.VersionTLS13 {
		t.Errorf("TLS13 constant mismatch")
	}
}
