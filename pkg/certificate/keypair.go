package certificate

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// KeyPair is a signing identity loaded from PEM files
type KeyPair struct {
	PrivateKey crypto.Signer
	Leaf       *x509.Certificate
	Chain      []*x509.Certificate
}

// publicKey is implemented by every crypto/* public key type
type publicKey interface {
	Equal(crypto.PublicKey) bool
}

// LoadKeyPair loads a PEM certificate file and a PEM private key file and
// checks that they belong together
func LoadKeyPair(certPath, keyPath string) (*KeyPair, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: reading certificate file: %w", errs.ErrSigningConfig, errs.ErrIO, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: reading key file: %w", errs.ErrSigningConfig, errs.ErrIO, err)
	}

	return ParseKeyPair(certPEM, keyPEM)
}

// ParseKeyPair parses PEM encoded certificates and a PEM encoded private key.
// The first certificate is taken as the leaf.
func ParseKeyPair(certPEM, keyPEM []byte) (*KeyPair, error) {
	certs, err := ParseCertificates(certPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSigningConfig, err)
	}

	key, err := ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSigningConfig, err)
	}

	pub, ok := key.Public().(publicKey)
	if !ok || !pub.Equal(certs[0].PublicKey) {
		return nil, fmt.Errorf("%w: private key does not match certificate %s",
			errs.ErrSigningConfig, certs[0].Subject)
	}

	return &KeyPair{
		PrivateKey: key,
		Leaf:       certs[0],
		Chain:      certs[1:],
	}, nil
}

// ParseCertificates parses every CERTIFICATE block in PEM data
func ParseCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != BlockCertificate {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificate found in PEM data")
	}
	return certs, nil
}

// ParsePrivateKey parses a PEM private key in PKCS#1, SEC 1 or PKCS#8 form
func ParsePrivateKey(pemData []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	switch block.Type {
	case BlockRSAPrivateKey:
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case BlockECPrivateKey:
		return x509.ParseECPrivateKey(block.Bytes)
	case BlockPrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("key is not a signer")
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("unsupported key type: %s", block.Type)
	}
}
