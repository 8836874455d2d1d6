package event

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/sirosfoundation/go-esocial/internal/errs"
)

// NSEventsV111 is the namespace of the event batch layout used by S-1000
const NSEventsV111 = "http://www.esocial.gov.br/schema/lote/eventos/envio/v1_1_1"

// Employer inscription types (tpInsc)
const (
	InscriptionCNPJ = 1
	InscriptionCPF  = 2
)

const (
	inscriptionWidth = 14
	maxSequence      = 99999
)

// BuildS1000 renders an S-1000 employer information event. The result is a
// UTF-8 document with an XML declaration; values are escaped as needed.
// Values containing characters that XML cannot represent fail with
// errs.ErrParse.
func BuildS1000(eventID, taxID, legalName string) ([]byte, error) {
	for _, field := range []struct{ name, value string }{
		{"event id", eventID},
		{"tax id", taxID},
		{"legal name", legalName},
	} {
		if err := checkText(field.value); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errs.ErrParse, field.name, err)
		}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("eSocial")
	root.CreateAttr("xmlns", NSEventsV111)

	evt := root.CreateElement("evtInfoEmpregador")
	evt.CreateAttr("Id", eventID)

	ide := evt.CreateElement("ideEmpregador")
	ide.CreateElement("tpInsc").SetText(fmt.Sprint(InscriptionCNPJ))
	ide.CreateElement("nrInsc").SetText(taxID)

	evt.CreateElement("infoCadastro").CreateElement("nmRazao").SetText(legalName)

	doc.Indent(4)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write S-1000 document: %w", err)
	}
	return out, nil
}

// NewEventID returns an event identifier in the eSocial layout:
// "ID", the inscription type, the inscription number right-padded with
// zeros to 14 digits, the timestamp as YYYYMMDDhhmmss and a 5-digit
// sequence number.
func NewEventID(inscriptionType int, inscription string, at time.Time, seq int) (string, error) {
	if inscriptionType != InscriptionCNPJ && inscriptionType != InscriptionCPF {
		return "", fmt.Errorf("invalid inscription type %d", inscriptionType)
	}
	if inscription == "" || len(inscription) > inscriptionWidth || strings.Trim(inscription, "0123456789") != "" {
		return "", fmt.Errorf("inscription must be 1 to %d digits, got %q", inscriptionWidth, inscription)
	}
	if seq < 1 || seq > maxSequence {
		return "", fmt.Errorf("sequence must be between 1 and %d, got %d", maxSequence, seq)
	}

	padded := inscription + strings.Repeat("0", inscriptionWidth-len(inscription))
	return fmt.Sprintf("ID%d%s%s%05d", inscriptionType, padded, at.Format("20060102150405"), seq), nil
}

// checkText rejects strings that cannot appear in XML character data
func checkText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("invalid UTF-8")
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("character %U not allowed in XML", r)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
