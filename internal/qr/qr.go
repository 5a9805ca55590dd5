// Package qr encodes and decodes the QR payload format the scanner and
// generator collaborators exchange.
package qr

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

// PayloadType marks the structured EDL payload form.
const PayloadType = "EDL"

// Payload is the structured QR content.
type Payload struct {
	Type        string `json:"type"`
	EDLNumber   string `json:"edlNumber"`
	Location    string `json:"location,omitempty"`
	Responsible string `json:"responsible,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Parse decodes scanned QR content. A JSON object of type EDL yields the
// full payload; anything not parseable as JSON is treated as a bare EDL
// number.
func Parse(content string) (*Payload, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.ErrInvalid, "empty qr content")
	}

	var p Payload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		// Bare-string fallback: the scanned text is the EDL number.
		return &Payload{Type: PayloadType, EDLNumber: content}, nil
	}

	if p.Type != PayloadType {
		return nil, apperr.Newf(apperr.ErrInvalid, "unsupported qr payload type %q", p.Type)
	}
	if p.EDLNumber == "" {
		return nil, apperr.New(apperr.ErrInvalid, "qr payload missing edl number")
	}
	return &p, nil
}

// Encode produces the JSON payload for an EDL.
func Encode(edl *model.EDL) (string, error) {
	if edl == nil || edl.EDLNumber == "" {
		return "", apperr.New(apperr.ErrInvalid, "edl number is required")
	}

	p := Payload{
		Type:        PayloadType,
		EDLNumber:   edl.EDLNumber,
		Location:    edl.Location,
		Responsible: edl.Responsible,
		Description: edl.Description,
		CreatedAt:   edl.CreatedAtTime().UTC().Format(time.RFC3339),
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInternal, "failed to encode qr payload", err)
	}
	return string(raw), nil
}

// ToEDL converts a parsed payload into an EDL record ready for the local
// store.
func (p *Payload) ToEDL() *model.EDL {
	return &model.EDL{
		EDLNumber:   p.EDLNumber,
		Location:    p.Location,
		Responsible: p.Responsible,
		Description: p.Description,
	}
}
