// Package testpki generates throwaway certificate authorities, certificates
// and PKCS#12 bundles for tests.
package testpki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"
)

var serial atomic.Int64

// CA is a self-signed certificate authority
type CA struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

// Identity is a certificate issued by a CA together with its key
type Identity struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
	CA   *CA
}

func nextSerial() *big.Int {
	return big.NewInt(serial.Add(1) + time.Now().UnixNano())
}

// NewCA creates a new root certificate authority
func NewCA(t testing.TB, name string) *CA {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject: pkix.Name{
			Organization: []string{"ICP-Brasil Test"},
			CommonName:   name,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &CA{Cert: cert, Key: key}
}

// Issue creates a certificate for commonName valid for both TLS client and
// server use on localhost
func (ca *CA) Issue(t testing.TB, commonName string) *Identity {
	t.Helper()
	return ca.IssueValid(t, commonName, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))
}

// IssueValid is Issue with an explicit validity window
func (ca *CA) IssueValid(t testing.TB, commonName string, notBefore, notAfter time.Time) *Identity {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject: pkix.Name{
			Organization: []string{"Empregador Teste LTDA"},
			CommonName:   commonName,
		},
		NotBefore:   notBefore,
		NotAfter:    notAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Cert, &key.PublicKey, ca.Key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &Identity{Cert: cert, Key: key, CA: ca}
}

// PKCS12 encodes the identity and its issuing CA into a PKCS#12 bundle
func (id *Identity) PKCS12(t testing.TB, password string) []byte {
	t.Helper()

	pfx, err := pkcs12.Modern.Encode(id.Key, id.Cert, []*x509.Certificate{id.CA.Cert}, password)
	require.NoError(t, err)
	return pfx
}

// CertPEM returns the PEM encoding of cert
func CertPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// KeyPEM returns the PKCS#1 PEM encoding of key
func KeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

// WriteFile writes data to name inside dir and returns the full path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
