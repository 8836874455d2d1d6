package esocial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirosfoundation/go-esocial/internal/errs"
	"github.com/sirosfoundation/go-esocial/pkg/soap"
)

// Response codes (cdResposta) returned by the batch services
const (
	StatusProcessed       = 201
	StatusInProgress      = 202
	StatusInvalidRequest  = 501
	StatusProcessingError = 502
	StatusUnavailable     = 503
)

// Status is the service status block of a response
type Status struct {
	Code        int
	Description string
}

// Occurrence is a message attached to a response, such as a schema
// violation in a submitted event
type Occurrence struct {
	Type        string
	Code        string
	Description string
	Location    string
}

// Response is the answer to a SendBatch or QueryProtocol call
type Response struct {
	Operation  string
	StatusCode int
	// Raw is the response body exactly as received
	Raw         []byte
	Status      Status
	Protocol    string
	Occurrences []Occurrence
}

// IsProcessed reports whether the batch was accepted or fully processed
func (r *Response) IsProcessed() bool {
	return r.Status.Code == StatusProcessed
}

// IsPending reports whether the batch is still waiting to be processed
func (r *Response) IsPending() bool {
	return r.Status.Code == StatusInProgress
}

// Payload returns the first element of the response Body
func (r *Response) Payload() (*etree.Element, error) {
	return soap.Payload(r.Raw)
}

// parseResult fills the eSocial fields of r from its raw body. The result
// element is either inline XML or, with some service versions, an escaped
// XML string.
func (r *Response) parseResult() error {
	payload, err := soap.Payload(r.Raw)
	if err != nil {
		return err
	}

	result := findLocal(payload, "status")
	if result == nil {
		if inner := embeddedDocument(payload); inner != nil {
			payload = inner
			result = findLocal(payload, "status")
		}
	}

	if result != nil {
		if code := childText(result, "cdResposta"); code != "" {
			n, err := strconv.Atoi(code)
			if err != nil {
				return fmt.Errorf("%w: cdResposta %q is not a number", errs.ErrParse, code)
			}
			r.Status.Code = n
		}
		r.Status.Description = childText(result, "descResposta")
		if occ := findLocal(result, "ocorrencias"); occ != nil {
			r.Occurrences = parseOccurrences(occ)
		}
	}

	if p := findLocal(payload, "protocoloEnvio"); p != nil {
		r.Protocol = strings.TrimSpace(p.Text())
	}

	if len(r.Occurrences) == 0 {
		for _, occ := range payload.FindElements(".//ocorrencias") {
			r.Occurrences = append(r.Occurrences, parseOccurrences(occ)...)
		}
	}

	return nil
}

func parseOccurrences(parent *etree.Element) []Occurrence {
	var out []Occurrence
	for _, o := range parent.SelectElements("ocorrencia") {
		out = append(out, Occurrence{
			Type:        childText(o, "tipo"),
			Code:        childText(o, "codigo"),
			Description: childText(o, "descricao"),
			Location:    childText(o, "localizacao"),
		})
	}
	return out
}

// embeddedDocument parses the first text node that holds an XML document
func embeddedDocument(elem *etree.Element) *etree.Element {
	text := strings.TrimSpace(elem.Text())
	if strings.HasPrefix(text, "<") {
		doc := etree.NewDocument()
		if err := doc.ReadFromString(text); err == nil && doc.Root() != nil {
			return doc.Root()
		}
	}
	for _, child := range elem.ChildElements() {
		if inner := embeddedDocument(child); inner != nil {
			return inner
		}
	}
	return nil
}

func findLocal(elem *etree.Element, tag string) *etree.Element {
	if elem.Tag == tag {
		return elem
	}
	return elem.FindElement(".//" + tag)
}

func childText(parent *etree.Element, tag string) string {
	if child := parent.SelectElement(tag); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}
