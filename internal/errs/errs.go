// Package errs defines the error categories shared by the eSocial client
// packages. Callers match them with errors.Is; the public aliases live in
// pkg/esocial.
package errs

import "errors"

var (
	// ErrDecryption is returned when a PKCS#12 bundle cannot be decrypted
	ErrDecryption = errors.New("pkcs12 decryption failed")
	// ErrIO is returned when a file cannot be read or written
	ErrIO = errors.New("i/o failure")
	// ErrConnection is returned for network and WSDL retrieval failures
	ErrConnection = errors.New("connection failure")
	// ErrSigningConfig is returned for a bad or mismatched signing certificate/key
	ErrSigningConfig = errors.New("invalid signing configuration")
	// ErrTLSHandshake is returned when the TLS handshake fails
	ErrTLSHandshake = errors.New("tls handshake failed")
	// ErrParse is returned for malformed XML or XML Schema input
	ErrParse = errors.New("parse failure")
	// ErrRemoteService is returned when the remote service answers with a SOAP fault
	ErrRemoteService = errors.New("remote service fault")
)
