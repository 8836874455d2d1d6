package soap

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// Fault is a SOAP 1.1 fault returned by the remote service
type Fault struct {
	Code   string
	String string
	Actor  string
	Detail string
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
	if f.Detail != "" {
		msg += " (" + f.Detail + ")"
	}
	return msg
}

// Is reports whether target is errs.ErrRemoteService
func (f *Fault) Is(target error) bool {
	return target == errs.ErrRemoteService
}

// ParseFault returns the fault carried by envelope, or nil when the Body
// holds a regular response.
func ParseFault(envelope []byte) (*Fault, error) {
	body, err := readBody(envelope)
	if err != nil {
		return nil, err
	}

	elem := body.SelectElement("Fault")
	if elem == nil {
		return nil, nil
	}

	fault := &Fault{
		Code:   childText(elem, "faultcode"),
		String: childText(elem, "faultstring"),
		Actor:  childText(elem, "faultactor"),
	}
	if detail := elem.SelectElement("detail"); detail != nil {
		fault.Detail = serializeDetail(detail)
	}
	return fault, nil
}

func childText(parent *etree.Element, tag string) string {
	if child := parent.SelectElement(tag); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

func serializeDetail(detail *etree.Element) string {
	if len(detail.ChildElements()) == 0 {
		return strings.TrimSpace(detail.Text())
	}
	doc := etree.NewDocument()
	for _, child := range detail.ChildElements() {
		doc.AddChild(child.Copy())
	}
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
