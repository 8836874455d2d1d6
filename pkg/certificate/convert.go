package certificate

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// ErrUnsupportedKey is returned for private keys that have no traditional
// PEM encoding
var ErrUnsupportedKey = errors.New("unsupported private key type")

// PEM block types
const (
	BlockCertificate   = "CERTIFICATE"
	BlockRSAPrivateKey = "RSA PRIVATE KEY"
	BlockECPrivateKey  = "EC PRIVATE KEY"
	BlockPrivateKey    = "PRIVATE KEY"
)

// Convert decrypts the PKCS#12 bundle at pfxPath and writes its certificates
// to outCertPath and its private key to outKeyPath, both PEM encoded.
// Existing files are overwritten.
func Convert(pfxPath, pfxPassword, outCertPath, outKeyPath string) error {
	bundle, err := LoadPKCS12(pfxPath, pfxPassword)
	if err != nil {
		return err
	}

	certPEM := EncodeCertificates(bundle.Certificates())

	keyPEM, err := EncodePrivateKey(bundle.PrivateKey)
	if err != nil {
		return err
	}

	if err := writeKey(outKeyPath, keyPEM); err != nil {
		return fmt.Errorf("%w: writing private key: %w", errs.ErrIO, err)
	}
	if err := os.WriteFile(outCertPath, certPEM, 0o644); err != nil {
		os.Remove(outKeyPath)
		return fmt.Errorf("%w: writing certificate: %w", errs.ErrIO, err)
	}

	return nil
}

// writeKey writes key material to path with owner-only permissions. An
// existing file is restricted before any key bytes are written.
func writeKey(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeCertificates PEM-encodes certificates in the given order
func EncodeCertificates(certs []*x509.Certificate) []byte {
	var buf bytes.Buffer
	for _, c := range certs {
		pem.Encode(&buf, &pem.Block{Type: BlockCertificate, Bytes: c.Raw})
	}
	return buf.Bytes()
}

// EncodePrivateKey PEM-encodes a private key in the traditional OpenSSL
// format: PKCS#1 for RSA and SEC 1 for ECDSA. Nothing is encrypted.
func EncodePrivateKey(key any) ([]byte, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return pem.EncodeToMemory(&pem.Block{
			Type:  BlockRSAPrivateKey,
			Bytes: x509.MarshalPKCS1PrivateKey(k),
		}), nil
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("marshaling EC private key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{
			Type:  BlockECPrivateKey,
			Bytes: der,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}
