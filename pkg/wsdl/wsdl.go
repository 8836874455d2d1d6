package wsdl

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// Namespaces of WSDL 1.1 and its SOAP bindings
const (
	NSWSDL   = "http://schemas.xmlsoap.org/wsdl/"
	NSSOAP11 = "http://schemas.xmlsoap.org/wsdl/soap/"
	NSSOAP12 = "http://schemas.xmlsoap.org/wsdl/soap12/"
)

// Operation is a SOAP operation bound to an endpoint
type Operation struct {
	Name       string
	SOAPAction string
	// Namespace is the namespace of the request wrapper element. It is the
	// schema namespace of the input part element when the description
	// declares one, and the target namespace otherwise.
	Namespace string
	// RequestElement is the request wrapper element; it defaults to Name
	RequestElement string
	// Parameter is the first child of the request wrapper, empty when the
	// description does not declare it
	Parameter string
	Endpoint  string
	Binding   string
	SOAP12    bool
}

// Definitions is the parsed subset of a WSDL document
type Definitions struct {
	Name            string
	TargetNamespace string
	Operations      map[string]Operation
}

// Operation returns the named operation
func (d *Definitions) Operation(name string) (Operation, bool) {
	op, ok := d.Operations[name]
	return op, ok
}

// Merge adds the operations of other that d does not already define. A
// SOAP 1.1 binding in other replaces a SOAP 1.2 one in d.
func (d *Definitions) Merge(other *Definitions) {
	if other == nil {
		return
	}
	if d.Operations == nil {
		d.Operations = make(map[string]Operation)
	}
	for name, op := range other.Operations {
		if existing, exists := d.Operations[name]; exists && (!existing.SOAP12 || op.SOAP12) {
			continue
		}
		d.Operations[name] = op
	}
}

type binding struct {
	name       string
	soap12     bool
	operations []Operation
}

// request describes the wrapper element of an operation input
type request struct {
	namespace string
	element   string
	parameter string
}

// Parse reads a WSDL 1.1 document. Malformed XML or a document that is
// not a WSDL definitions element fails with errs.ErrParse.
func Parse(data []byte) (*Definitions, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: malformed WSDL: %w", errs.ErrParse, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "definitions" || root.NamespaceURI() != NSWSDL {
		return nil, fmt.Errorf("%w: document is not a WSDL 1.1 definitions element", errs.ErrParse)
	}

	defs := &Definitions{
		Name:            root.SelectAttrValue("name", ""),
		TargetNamespace: root.SelectAttrValue("targetNamespace", ""),
		Operations:      make(map[string]Operation),
	}

	requests := parseRequests(root)

	bindings := make(map[string]*binding)
	for _, b := range root.SelectElements("binding") {
		if parsed := parseBinding(b, defs.TargetNamespace, requests); parsed != nil {
			bindings[parsed.name] = parsed
		}
	}

	for _, service := range root.SelectElements("service") {
		for _, port := range service.SelectElements("port") {
			b, ok := bindings[localName(port.SelectAttrValue("binding", ""))]
			if !ok {
				continue
			}
			address := port.SelectElement("address")
			if address == nil {
				continue
			}
			location := strings.TrimSpace(address.SelectAttrValue("location", ""))
			for _, op := range b.operations {
				op.Endpoint = location
				existing, exists := defs.Operations[op.Name]
				if exists && (!existing.SOAP12 || op.SOAP12) {
					continue
				}
				defs.Operations[op.Name] = op
			}
		}
	}

	return defs, nil
}

func parseBinding(b *etree.Element, targetNS string, requests map[string]request) *binding {
	transport := soapElement(b, "binding")
	if transport == nil {
		return nil
	}

	parsed := &binding{
		name:   b.SelectAttrValue("name", ""),
		soap12: transport.NamespaceURI() == NSSOAP12,
	}
	portType := localName(b.SelectAttrValue("type", ""))
	for _, opElem := range b.SelectElements("operation") {
		op := Operation{
			Name:      opElem.SelectAttrValue("name", ""),
			Namespace: targetNS,
			Binding:   parsed.name,
			SOAP12:    parsed.soap12,
		}
		op.RequestElement = op.Name
		if req, ok := requests[portType+"/"+op.Name]; ok {
			if req.namespace != "" {
				op.Namespace = req.namespace
			}
			op.RequestElement = req.element
			op.Parameter = req.parameter
		}
		if soapOp := soapElement(opElem, "operation"); soapOp != nil {
			op.SOAPAction = soapOp.SelectAttrValue("soapAction", "")
		}
		if op.Name != "" {
			parsed.operations = append(parsed.operations, op)
		}
	}
	return parsed
}

// parseRequests maps "portType/operation" to the wrapper element declared
// by the operation's input message. Operations whose input part element is
// not declared inline in wsdl:types are left out.
func parseRequests(root *etree.Element) map[string]request {
	elements := make(map[string]request)
	if types := root.SelectElement("types"); types != nil {
		for _, schema := range types.SelectElements("schema") {
			ns := schema.SelectAttrValue("targetNamespace", "")
			for _, el := range schema.SelectElements("element") {
				req := request{namespace: ns, element: el.SelectAttrValue("name", "")}
				if param := el.FindElement("complexType/sequence/element"); param != nil {
					req.parameter = param.SelectAttrValue("name", "")
				}
				elements[ns+" "+req.element] = req
			}
		}
	}

	messages := make(map[string]request)
	for _, msg := range root.SelectElements("message") {
		part := msg.SelectElement("part")
		if part == nil {
			continue
		}
		ns, name := resolveQName(part, part.SelectAttrValue("element", ""))
		if req, ok := elements[ns+" "+name]; ok {
			messages[msg.SelectAttrValue("name", "")] = req
		}
	}

	requests := make(map[string]request)
	for _, pt := range root.SelectElements("portType") {
		for _, op := range pt.SelectElements("operation") {
			input := op.SelectElement("input")
			if input == nil {
				continue
			}
			if req, ok := messages[localName(input.SelectAttrValue("message", ""))]; ok {
				requests[pt.SelectAttrValue("name", "")+"/"+op.SelectAttrValue("name", "")] = req
			}
		}
	}
	return requests
}

// resolveQName resolves the prefix of a QName attribute value against the
// namespace declarations in scope at e.
func resolveQName(e *etree.Element, qname string) (space, local string) {
	prefix, local := "", qname
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		prefix, local = qname[:i], qname[i+1:]
	}
	for ; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value, local
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value, local
			}
		}
	}
	return "", local
}

// soapElement returns the child with the given local name in either SOAP
// binding namespace.
func soapElement(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag != tag {
			continue
		}
		switch child.NamespaceURI() {
		case NSSOAP11, NSSOAP12:
			return child
		}
	}
	return nil
}

func localName(qname string) string {
	if i := strings.LastIndex(qname, ":"); i >= 0 {
		return qname[i+1:]
	}
	return qname
}
