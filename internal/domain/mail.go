package domain

import "time"

// RawMessage is an opaque record returned by the Mail Fetcher (spec.md §4.1).
// The fetcher never parses; only Email Parsers interpret Body.
type RawMessage struct {
	ID               string
	Subject          string
	FromAddress      string
	ReceivedAt       time.Time
	BodyContentType  string // "text/html" | "text/plain"
	Body             string
	Headers          map[string]string
	Attachments      []RawAttachment
}

// RawAttachment is an opaque attachment blob (typically a PDF statement).
type RawAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
