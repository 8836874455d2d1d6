package certificate

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirosfoundation/go-esocial/internal/errs"
)

var (
	// ErrCertificateExpired is returned when a certificate has expired
	ErrCertificateExpired = errors.New("certificate has expired")
	// ErrCertificateNotYetValid is returned when a certificate is not yet valid
	ErrCertificateNotYetValid = errors.New("certificate is not yet valid")
)

// Info summarizes a certificate for logs and diagnostics
type Info struct {
	Subject     string
	Issuer      string
	Serial      string
	NotBefore   time.Time
	NotAfter    time.Time
	Fingerprint string // SHA-256, hex
}

// Describe returns a summary of cert
func Describe(cert *x509.Certificate) Info {
	sum := sha256.Sum256(cert.Raw)
	return Info{
		Subject:     cert.Subject.String(),
		Issuer:      cert.Issuer.String(),
		Serial:      cert.SerialNumber.String(),
		NotBefore:   cert.NotBefore,
		NotAfter:    cert.NotAfter,
		Fingerprint: hex.EncodeToString(sum[:]),
	}
}

// CheckValidity reports whether cert is inside its validity window at now
func CheckValidity(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("%w: valid from %s", ErrCertificateNotYetValid, cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("%w: expired at %s", ErrCertificateExpired, cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// ExpiresWithin reports whether cert, valid at now, expires before now+d
func ExpiresWithin(cert *x509.Certificate, now time.Time, d time.Duration) bool {
	return !now.After(cert.NotAfter) && now.Add(d).After(cert.NotAfter)
}

// DaysLeft returns the whole days remaining until cert expires, or zero
// when it has expired
func DaysLeft(cert *x509.Certificate, now time.Time) int {
	if now.After(cert.NotAfter) {
		return 0
	}
	return int(cert.NotAfter.Sub(now) / (24 * time.Hour))
}

// LoadCertPool builds a certificate pool from a PEM trust bundle only.
// The system roots are not included.
func LoadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading trust bundle: %w", errs.ErrIO, err)
	}

	certs, err := ParseCertificates(data)
	if err != nil {
		return nil, fmt.Errorf("%w: trust bundle %s: %w", errs.ErrParse, path, err)
	}

	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool, nil
}
