package xmlcodec

import (
	"encoding/xml"
	"fmt"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
)

type asxValidationEnvelope struct {
	XMLName xml.Name `xml:"abap"`
	Values  struct {
		Data struct {
			CheckResult string `xml:"CHECK_RESULT"`
			Severity    string `xml:"SEVERITY"`
			ShortText   string `xml:"SHORT_TEXT"`
		} `xml:"DATA"`
	} `xml:"values"`
}

// ParseValidationResult decodes the asx envelope a name-validation call
// returns. An empty body means the server had nothing to object to.
func ParseValidationResult(body []byte) (*adt.CheckResult, error) {
	result := &adt.CheckResult{}
	if len(body) == 0 {
		return result, nil
	}

	var envelope asxValidationEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("could not decode validation response: %w", err)
	}
	data := envelope.Values.Data
	if data.Severity != "" || data.ShortText != "" {
		result.Messages = append(result.Messages, adt.CheckMessage{
			Severity: data.Severity,
			Text:     data.ShortText,
		})
	}
	return result, nil
}
