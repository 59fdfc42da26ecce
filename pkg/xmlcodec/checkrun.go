package xmlcodec

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
)

// CheckVersion selects which object version a checkrun inspects.
type CheckVersion string

const (
	CheckVersionNew      CheckVersion = "new"
	CheckVersionActive   CheckVersion = "active"
	CheckVersionInactive CheckVersion = "inactive"
)

// BuildCheckObjectList renders the chkrun:checkObjectList body posted to a
// checkrun reporter. When source is non-nil it is embedded base64-encoded as
// a chkrun:artifact, so the reporter checks the submitted text instead of
// whatever version the server currently stores.
func BuildCheckObjectList(ref adt.ObjectRef, version CheckVersion, source []byte) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<chkrun:checkObjectList xmlns:adtcore="http://www.sap.com/adt/core" xmlns:chkrun="http://www.sap.com/adt/checkrun">`)
	b.WriteString(`<chkrun:checkObject adtcore:uri="`)
	b.WriteString(escapeAttr(ref.URI()))
	b.WriteString(`" chkrun:version="`)
	b.WriteString(string(version))
	b.WriteString(`"`)
	if source == nil {
		b.WriteString(`/>`)
	} else {
		b.WriteString(`><chkrun:artifacts><chkrun:artifact chkrun:contentType="text/plain; charset=utf-8" chkrun:uri="`)
		b.WriteString(escapeAttr(ref.SourceURI()))
		b.WriteString(`"><chkrun:content>`)
		b.WriteString(base64.StdEncoding.EncodeToString(source))
		b.WriteString(`</chkrun:content></chkrun:artifact></chkrun:artifacts></chkrun:checkObject>`)
	}
	b.WriteString(`</chkrun:checkObjectList>`)
	return []byte(b.String())
}

type checkRunReports struct {
	XMLName xml.Name `xml:"checkRunReports"`
	Reports []struct {
		MessageList struct {
			Messages []struct {
				URI       string `xml:"uri,attr"`
				Type      string `xml:"type,attr"`
				ShortText string `xml:"shortText,attr"`
			} `xml:"checkMessage"`
		} `xml:"checkMessageList"`
	} `xml:"checkReport"`
}

// ParseCheckReport decodes a chkrun:checkRunReports response into the flat
// message list callers branch on.
func ParseCheckReport(body []byte) (*adt.CheckResult, error) {
	result := &adt.CheckResult{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return result, nil
	}

	var reports checkRunReports
	if err := xml.Unmarshal(body, &reports); err != nil {
		return nil, fmt.Errorf("could not decode check report: %w", err)
	}
	for _, report := range reports.Reports {
		for _, msg := range report.MessageList.Messages {
			result.Messages = append(result.Messages, adt.CheckMessage{
				Severity: msg.Type,
				Text:     msg.ShortText,
				URI:      msg.URI,
			})
		}
	}
	return result, nil
}
