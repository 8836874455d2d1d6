package esocial

import (
	"errors"

	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// Error categories, matched with errors.Is
var (
	ErrDecryption    = errs.ErrDecryption
	ErrIO            = errs.ErrIO
	ErrConnection    = errs.ErrConnection
	ErrSigningConfig = errs.ErrSigningConfig
	ErrTLSHandshake  = errs.ErrTLSHandshake
	ErrParse         = errs.ErrParse
	ErrRemoteService = errs.ErrRemoteService
)

// ErrOperationUnavailable is returned when the service description does
// not bind the requested operation
var ErrOperationUnavailable = errors.New("operation not bound by the service description")
