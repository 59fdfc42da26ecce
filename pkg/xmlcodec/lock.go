// Package xmlcodec implements the fixed ADT wire formats: lock responses,
// activation requests and checklists, checkrun payloads and reports, and
// object-creation metadata bodies. The namespaces and element names are not
// negotiable; they must match what real ADT servers emit bit for bit.
package xmlcodec

import (
	"encoding/xml"
	"fmt"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
)

// LockResult is the decoded body of a successful _action=LOCK call,
// wrapped by the server in an asx:abap serialization envelope.
type LockResult struct {
	LockHandle       adt.LockHandle
	CorrNr           string
	CorrUser         string
	CorrText         string
	IsLocal          bool
	IsLinkUp         bool
	ModificationMode string
}

type asxLockEnvelope struct {
	XMLName xml.Name `xml:"abap"`
	Values  struct {
		Data struct {
			LockHandle       string `xml:"LOCK_HANDLE"`
			CorrNr           string `xml:"CORRNR"`
			CorrUser         string `xml:"CORRUSER"`
			CorrText         string `xml:"CORRTEXT"`
			IsLocal          string `xml:"IS_LOCAL"`
			IsLinkUp         string `xml:"IS_LINK_UP"`
			ModificationMode string `xml:"MODIFICATION_SUPPORT"`
		} `xml:"DATA"`
	} `xml:"values"`
}

// ParseLockResult decodes a lock response: asx:abap/asx:values/DATA with the
// handle in LOCK_HANDLE.
func ParseLockResult(body []byte) (*LockResult, error) {
	var envelope asxLockEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("could not decode lock response: %w", err)
	}
	data := envelope.Values.Data
	if data.LockHandle == "" {
		return nil, fmt.Errorf("lock response carries no LOCK_HANDLE")
	}
	return &LockResult{
		LockHandle:       adt.LockHandle(data.LockHandle),
		CorrNr:           data.CorrNr,
		CorrUser:         data.CorrUser,
		CorrText:         data.CorrText,
		IsLocal:          BoolLike(data.IsLocal),
		IsLinkUp:         BoolLike(data.IsLinkUp),
		ModificationMode: data.ModificationMode,
	}, nil
}

// BoolLike interprets the boolean-ish strings ADT uses interchangeably:
// "true", "X" and "1" are true; everything else, including "", is false.
func BoolLike(s string) bool {
	switch s {
	case "true", "TRUE", "X", "x", "1":
		return true
	default:
		return false
	}
}
