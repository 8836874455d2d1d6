package event

import (
	"errors"
	"fmt"
	"os"

	"github.com/lestrrat-go/libxml2"
	"github.com/lestrrat-go/libxml2/xsd"
	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// Validate reports whether xmlText conforms to the schema at xsdPath
func Validate(xmlText []byte, xsdPath string) (bool, error) {
	violations, err := ValidateDetailed(xmlText, xsdPath)
	if err != nil {
		return false, err
	}
	return len(violations) == 0, nil
}

// ValidateDetailed returns the schema violations found in xmlText. An
// empty result means the document is valid.
func ValidateDetailed(xmlText []byte, xsdPath string) ([]string, error) {
	if _, err := os.Stat(xsdPath); err != nil {
		return nil, fmt.Errorf("%w: schema %s: %w", errs.ErrIO, xsdPath, err)
	}

	schema, err := xsd.ParseFromFile(xsdPath)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed schema %s: %w", errs.ErrParse, xsdPath, err)
	}
	defer schema.Free()

	if len(xmlText) == 0 {
		return nil, fmt.Errorf("%w: empty document", errs.ErrParse)
	}
	doc, err := libxml2.Parse(xmlText)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed document: %w", errs.ErrParse, err)
	}
	defer doc.Free()

	if err := schema.Validate(doc); err != nil {
		return violationMessages(err), nil
	}
	return nil, nil
}

func violationMessages(err error) []string {
	var list []error
	var sve xsd.SchemaValidationError
	var svep *xsd.SchemaValidationError
	switch {
	case errors.As(err, &sve):
		list = sve.Errors()
	case errors.As(err, &svep):
		list = svep.Errors()
	}

	if len(list) == 0 {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(list))
	for _, e := range list {
		messages = append(messages, e.Error())
	}
	return messages
}
