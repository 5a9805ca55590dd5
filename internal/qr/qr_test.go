package qr

import (
	"testing"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

// TestParse covers structured payloads, the bare-string fallback, and
// the rejection cases.
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *Payload
		wantErr bool
	}{
		{
			name:    "structured payload",
			content: `{"type":"EDL","edlNumber":"EDL-2024-001","location":"station A","responsible":"ana"}`,
			want:    &Payload{Type: "EDL", EDLNumber: "EDL-2024-001", Location: "station A", Responsible: "ana"},
		},
		{
			name:    "bare string fallback",
			content: "EDL-2024-002",
			want:    &Payload{Type: "EDL", EDLNumber: "EDL-2024-002"},
		},
		{
			name:    "surrounding whitespace trimmed",
			content: "  EDL-7  ",
			want:    &Payload{Type: "EDL", EDLNumber: "EDL-7"},
		},
		{
			name:    "empty content",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "wrong payload type",
			content: `{"type":"MEMO","edlNumber":"EDL-1"}`,
			wantErr: true,
		},
		{
			name:    "structured payload without number",
			content: `{"type":"EDL","location":"station A"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content)
			if tt.wantErr {
				if !apperr.Is(err, apperr.ErrInvalid) {
					t.Fatalf("Parse(%q) error = %v, want INVALID_INPUT", tt.content, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.content, err)
			}
			if *got != *tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.content, got, tt.want)
			}
		})
	}
}

// TestEncode_parseRoundTrip verifies an encoded EDL parses back to the
// same payload.
func TestEncode_parseRoundTrip(t *testing.T) {
	edl := &model.EDL{
		EDLNumber:   "EDL-2024-001",
		Location:    "station A",
		Responsible: "ana",
		Description: "north pumping station",
		CreatedAt:   1_700_000_000,
	}

	encoded, err := Encode(edl)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse of encoded payload failed: %v", err)
	}
	if parsed.EDLNumber != edl.EDLNumber || parsed.Location != edl.Location {
		t.Errorf("round trip = %+v", parsed)
	}
	if parsed.CreatedAt == "" {
		t.Error("encoded payload should carry a createdAt timestamp")
	}

	back := parsed.ToEDL()
	if back.EDLNumber != edl.EDLNumber || back.Description != edl.Description {
		t.Errorf("ToEDL = %+v", back)
	}
}

// TestEncode_requiresNumber verifies the validation guard.
func TestEncode_requiresNumber(t *testing.T) {
	if _, err := Encode(&model.EDL{}); !apperr.Is(err, apperr.ErrInvalid) {
		t.Errorf("Encode without number = %v, want INVALID_INPUT", err)
	}
	if _, err := Encode(nil); !apperr.Is(err, apperr.ErrInvalid) {
		t.Errorf("Encode(nil) = %v, want INVALID_INPUT", err)
	}
}
