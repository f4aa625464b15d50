package main

import (
	"testing"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverterRoundTripsCalendar(t *testing.T) {
	src := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//davsync//test//EN\r\nBEGIN:VEVENT\r\nUID:1\r\nDTSTAMP:20260101T000000Z\r\nSUMMARY:Standup\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

	conv := icalVcardConverter{}
	parsed, err := conv.Parse("text/calendar; charset=utf-8", []byte(src))
	require.NoError(t, err)

	cal, ok := parsed.(*ical.Calendar)
	require.True(t, ok)
	require.Len(t, cal.Children, 1)
	assert.Equal(t, "VEVENT", cal.Children[0].Name)

	mime, data, err := conv.Serialize(cal)
	require.NoError(t, err)
	assert.Equal(t, "text/calendar; charset=utf-8", mime)
	assert.Contains(t, string(data), "SUMMARY:Standup")
}

func TestConverterRoundTripsVcard(t *testing.T) {
	src := "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Ada Lovelace\r\nEND:VCARD\r\n"

	conv := icalVcardConverter{}
	parsed, err := conv.Parse("text/vcard; charset=utf-8", []byte(src))
	require.NoError(t, err)

	card, ok := parsed.(vcard.Card)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", card.Value(vcard.FieldFormattedName))

	mime, data, err := conv.Serialize(card)
	require.NoError(t, err)
	assert.Equal(t, "text/vcard; charset=utf-8", mime)
	assert.Contains(t, string(data), "Ada Lovelace")
}

func TestConverterRejectsUnknownMime(t *testing.T) {
	conv := icalVcardConverter{}
	_, err := conv.Parse("application/octet-stream", []byte("x"))
	assert.Error(t, err)
}
