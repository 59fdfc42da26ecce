package xmlcodec

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
)

// BuildObjectReferences renders the adtcore:objectReferences body posted to
// the activation resource.
func BuildObjectReferences(refs ...adt.ObjectRef) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core">`)
	for _, ref := range refs {
		b.WriteString(`<adtcore:objectReference adtcore:uri="`)
		b.WriteString(escapeAttr(ref.URI()))
		b.WriteString(`" adtcore:name="`)
		b.WriteString(escapeAttr(strings.ToUpper(ref.Name())))
		b.WriteString(`"/>`)
	}
	b.WriteString(`</adtcore:objectReferences>`)
	return []byte(b.String())
}

type chklMessages struct {
	XMLName  xml.Name `xml:"messages"`
	Messages []struct {
		ObjDescr  string `xml:"objDescr,attr"`
		Type      string `xml:"type,attr"`
		Line      string `xml:"line,attr"`
		Href      string `xml:"href,attr"`
		ShortText struct {
			Txt string `xml:"txt"`
		} `xml:"shortText"`
	} `xml:"msg"`
	Properties struct {
		ActivationExecuted string `xml:"activationExecuted,attr"`
		CheckExecuted      string `xml:"checkExecuted,attr"`
		Generated          string `xml:"generated,attr"`
	} `xml:"properties"`
}

// ParseActivationResult decodes the chkl:messages checklist an activation
// call returns; activationExecuted/checkExecuted are boolean-like strings.
// An empty body means the server activated without remarks.
func ParseActivationResult(body []byte) (*adt.ActivationResult, error) {
	result := &adt.ActivationResult{}
	if len(strings.TrimSpace(string(body))) == 0 {
		result.ActivationExecuted = true
		return result, nil
	}

	var messages chklMessages
	if err := xml.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("could not decode activation response: %w", err)
	}
	result.ActivationExecuted = BoolLike(messages.Properties.ActivationExecuted)
	result.CheckExecuted = BoolLike(messages.Properties.CheckExecuted)
	for _, msg := range messages.Messages {
		text := msg.ShortText.Txt
		if msg.ObjDescr != "" {
			text = msg.ObjDescr + ": " + text
		}
		result.Messages = append(result.Messages, adt.CheckMessage{
			Severity: msg.Type,
			Text:     text,
			URI:      msg.Href,
		})
	}
	return result, nil
}

func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
