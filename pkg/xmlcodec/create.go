package xmlcodec

import (
	"encoding/xml"
	"strings"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
)

// CreateSpec carries the metadata posted when creating a new object.
type CreateSpec struct {
	Description string
	Package     string
	Responsible string
	// Language of the description texts; defaults to EN.
	Language string
}

// BuildCreatePayload renders the object-creation metadata body. The root
// element and its namespace vary per kind; the adtcore attributes do not.
func BuildCreatePayload(ref adt.ObjectRef, spec CreateSpec) []byte {
	language := spec.Language
	if language == "" {
		language = "EN"
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteByte('<')
	b.WriteString(ref.Kind().CreateElement())
	b.WriteByte(' ')
	b.WriteString(ref.Kind().CreateNamespace())
	b.WriteString(` xmlns:adtcore="http://www.sap.com/adt/core"`)
	b.WriteString(` adtcore:type="`)
	b.WriteString(escapeAttr(string(ref.Kind())))
	b.WriteString(`" adtcore:name="`)
	b.WriteString(escapeAttr(strings.ToUpper(ref.Name())))
	b.WriteString(`" adtcore:description="`)
	b.WriteString(escapeAttr(spec.Description))
	b.WriteString(`" adtcore:language="`)
	b.WriteString(escapeAttr(language))
	b.WriteString(`" adtcore:masterLanguage="`)
	b.WriteString(escapeAttr(language))
	b.WriteByte('"')
	if spec.Responsible != "" {
		b.WriteString(` adtcore:responsible="`)
		b.WriteString(escapeAttr(strings.ToUpper(spec.Responsible)))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if ref.Container() != "" {
		b.WriteString(`<adtcore:containerRef adtcore:name="`)
		b.WriteString(escapeAttr(strings.ToUpper(ref.Container())))
		b.WriteString(`" adtcore:type="`)
		b.WriteString(escapeAttr(string(adt.KindFunctionGroup)))
		b.WriteString(`"/>`)
	}
	if spec.Package != "" {
		b.WriteString(`<adtcore:packageRef adtcore:name="`)
		b.WriteString(escapeAttr(strings.ToUpper(spec.Package)))
		b.WriteString(`"/>`)
	}
	closeElement(&b, ref.Kind().CreateElement())
	return []byte(b.String())
}

func closeElement(b *strings.Builder, element string) {
	b.WriteString("</")
	b.WriteString(element)
	b.WriteByte('>')
}
