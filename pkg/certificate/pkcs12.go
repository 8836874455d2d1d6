package certificate

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/sirosfoundation/go-esocial/internal/errs"
	"software.sslmate.com/src/go-pkcs12"
)

// Bundle is the decrypted content of a PKCS#12 file
type Bundle struct {
	PrivateKey crypto.PrivateKey
	Leaf       *x509.Certificate
	Chain      []*x509.Certificate
}

// DecodePKCS12 decrypts a PKCS#12 bundle
func DecodePKCS12(data []byte, password string) (*Bundle, error) {
	key, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrDecryption, err)
	}
	if leaf == nil {
		return nil, fmt.Errorf("%w: bundle has no certificate", errs.ErrDecryption)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: bundle has no private key", errs.ErrDecryption)
	}

	return &Bundle{
		PrivateKey: key,
		Leaf:       leaf,
		Chain:      chain,
	}, nil
}

// LoadPKCS12 reads and decrypts a PKCS#12 file
func LoadPKCS12(path, password string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading pkcs12 file: %w", errs.ErrIO, err)
	}
	return DecodePKCS12(data, password)
}

// Certificates returns the leaf followed by the chain
func (b *Bundle) Certificates() []*x509.Certificate {
	certs := make([]*x509.Certificate, 0, 1+len(b.Chain))
	certs = append(certs, b.Leaf)
	return append(certs, b.Chain...)
}

// TLSCertificate returns the bundle as a TLS client credential.
// The chain is presented after the leaf so the server can build the path.
func (b *Bundle) TLSCertificate() tls.Certificate {
	certs := b.Certificates()
	raw := make([][]byte, 0, len(certs))
	for _, c := range certs {
		raw = append(raw, c.Raw)
	}

	return tls.Certificate{
		Certificate: raw,
		PrivateKey:  b.PrivateKey,
		Leaf:        b.Leaf,
	}
}
