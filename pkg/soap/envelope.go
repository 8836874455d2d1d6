package soap

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// SOAP 1.1 constants
const (
	NSEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	Prefix     = "soapenv"

	operationPrefix = "v1"
)

// BuildEnvelope returns a serialized envelope whose Body holds
// <operation><param>payload</param></operation> in the operation namespace.
// The payload element is copied; the caller's tree is left untouched.
func BuildEnvelope(namespace, operation, param string, payload *etree.Element) ([]byte, error) {
	if operation == "" {
		return nil, fmt.Errorf("operation name is required")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement(Prefix + ":Envelope")
	env.CreateAttr("xmlns:"+Prefix, NSEnvelope)
	if namespace != "" {
		env.CreateAttr("xmlns:"+operationPrefix, namespace)
	}
	env.CreateElement(Prefix + ":Header")
	body := env.CreateElement(Prefix + ":Body")

	op := body.CreateElement(qualify(namespace, operation))
	target := op
	if param != "" {
		target = op.CreateElement(qualify(namespace, param))
	}
	if payload != nil {
		target.AddChild(payload.Copy())
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write envelope: %w", err)
	}
	return out, nil
}

// WrapXML parses payloadXML and wraps its root element with BuildEnvelope.
// Malformed payloads fail with errs.ErrParse.
func WrapXML(namespace, operation, param string, payloadXML []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payloadXML); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %w", errs.ErrParse, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: payload has no root element", errs.ErrParse)
	}
	return BuildEnvelope(namespace, operation, param, doc.Root())
}

// Payload returns the first element inside the envelope Body
func Payload(envelope []byte) (*etree.Element, error) {
	body, err := readBody(envelope)
	if err != nil {
		return nil, err
	}
	children := body.ChildElements()
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: empty SOAP Body", errs.ErrParse)
	}
	return children[0], nil
}

func readBody(envelope []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed SOAP envelope: %w", errs.ErrParse, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w: not a SOAP envelope", errs.ErrParse)
	}
	body := root.SelectElement("Body")
	if body == nil {
		return nil, fmt.Errorf("%w: SOAP Body not found", errs.ErrParse)
	}
	return body, nil
}

func qualify(namespace, local string) string {
	if namespace == "" {
		return local
	}
	return operationPrefix + ":" + local
}
