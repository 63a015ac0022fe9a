package payout_models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	systemUser   = "System"
	fallbackUser = "Admin"

	// Same shape as a browser's Date.toISOString().
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func actorOrDefault(actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return fallbackUser
}

// NormalizeNoteHistory parses the stored notes column. Current rows hold a
// JSON array of entries; legacy rows hold free text, which becomes a single
// entry attributed to System. Legacy entries carry no timestamp.
func NormalizeNoteHistory(raw string) []NoteEntry {
	return NormalizeNoteHistoryAt(raw, time.Time{})
}

// NormalizeNoteHistoryAt is NormalizeNoteHistory with a timestamp for entries
// that have none, typically the row's creation time.
func NormalizeNoteHistoryAt(raw string, fallback time.Time) []NoteEntry {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return []NoteEntry{}
	}

	var entries []NoteEntry
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			entries = nil
		}
	case '{':
		var single NoteEntry
		if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
			entries = []NoteEntry{single}
		}
	}

	if entries == nil {
		entries = []NoteEntry{{Text: raw, User: systemUser}}
	}

	stamp := ""
	if !fallback.IsZero() {
		stamp = formatTimestamp(fallback)
	}
	for i := range entries {
		if entries[i].User == "" {
			entries[i].User = systemUser
		}
		if entries[i].Timestamp == "" {
			entries[i].Timestamp = stamp
		}
	}
	return entries
}

// EncodeNoteHistory serialises notes for the notes column.
func EncodeNoteHistory(notes []NoteEntry) (string, error) {
	if notes == nil {
		notes = []NoteEntry{}
	}
	raw, err := json.Marshal(notes)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
