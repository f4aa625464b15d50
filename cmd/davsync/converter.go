package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
)

// icalVcardConverter is the demo sync.Converter the CLI wires in so the
// binary is runnable end to end; the core module never looks inside
// the payloads it moves (spec §1's "payload-agnostic" non-goal), but a
// real host application needs one, so this one exists to exercise
// go-ical and go-vcard the way the pack's CalDAV/CardDAV servers do.
type icalVcardConverter struct{}

func (icalVcardConverter) Parse(mime string, data []byte) (any, error) {
	switch {
	case strings.Contains(mime, "calendar"):
		cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
		if err != nil {
			return nil, fmt.Errorf("converter: decode ics: %w", err)
		}
		return cal, nil
	case strings.Contains(mime, "vcard"):
		card, err := vcard.NewDecoder(bytes.NewReader(data)).Decode()
		if err != nil {
			return nil, fmt.Errorf("converter: decode vcf: %w", err)
		}
		return card, nil
	default:
		return nil, fmt.Errorf("converter: unsupported mime type %q", mime)
	}
}

func (icalVcardConverter) Serialize(payload any) (string, []byte, error) {
	switch v := payload.(type) {
	case *ical.Calendar:
		var buf bytes.Buffer
		if err := ical.NewEncoder(&buf).Encode(v); err != nil {
			return "", nil, fmt.Errorf("converter: encode ics: %w", err)
		}
		return "text/calendar; charset=utf-8", buf.Bytes(), nil
	case vcard.Card:
		var buf bytes.Buffer
		if err := vcard.NewEncoder(&buf).Encode(v); err != nil {
			return "", nil, fmt.Errorf("converter: encode vcf: %w", err)
		}
		return "text/vcard; charset=utf-8", buf.Bytes(), nil
	default:
		return "", nil, fmt.Errorf("converter: unsupported payload type %T", payload)
	}
}
