package atproto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidURI reports a malformed at:// record URI.
var ErrInvalidURI = errors.New("atproto: invalid at-uri")

// Some clients write createdAt without a zone offset.
const createdAtNoZone = "2006-01-02T15:04:05.999999"

// ATURI is a parsed at://{repo}/{collection}/{rkey} record URI.
type ATURI struct {
	Repo       string
	Collection string
	Rkey       string
}

// ParseATURI parses a record URI.
func ParseATURI(raw string) (ATURI, error) {
	rest, ok := strings.CutPrefix(raw, "at://")
	if !ok {
		return ATURI{}, fmt.Errorf("%w: %q", ErrInvalidURI, raw)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ATURI{}, fmt.Errorf("%w: %q", ErrInvalidURI, raw)
	}

	return ATURI{Repo: parts[0], Collection: parts[1], Rkey: parts[2]}, nil
}

func (u ATURI) String() string {
	return "at://" + u.Repo + "/" + u.Collection + "/" + u.Rkey
}

// CreatedAt reads value.createdAt of the record.
func (r Record) CreatedAt() (time.Time, error) {
	var v struct {
		CreatedAt string `json:"createdAt"`
	}
	if err := json.Unmarshal(r.Value, &v); err != nil {
		return time.Time{}, fmt.Errorf("could not decode record value: %w", err)
	}

	return ParseTimestamp(v.CreatedAt)
}

// ParseTimestamp parses an RFC 3339 timestamp, falling back to a zone-less
// layout interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(createdAtNoZone, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse timestamp %q: %w", s, err)
	}
	return t, nil
}
