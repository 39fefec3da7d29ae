package donutapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OfflineMessage is the application message the lookup category returns for a disconnected player.
const OfflineMessage = "This user is not currently online."

// Kind is the normalized outcome of one fetch.
type Kind int

const (
	KindSuccess Kind = iota
	KindKnownOffline
	KindApplicationError
	KindTransientExhausted
	KindConfigError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindKnownOffline:
		return "known_offline"
	case KindApplicationError:
		return "application_error"
	case KindTransientExhausted:
		return "transient_exhausted"
	case KindConfigError:
		return "config_error"
	default:
		return "unknown"
	}
}

var (
	ErrMissingConfig = errors.New("missing player name or api key")
	ErrHTTPStatus    = errors.New("unexpected http status")
	ErrApplication   = errors.New("application error")
	ErrExhausted     = errors.New("retries exhausted")
	ErrNoPayload     = errors.New("no payload")
)

// Result is what Fetch returns. Payload is only set for KindSuccess.
type Result struct {
	Kind     Kind
	Payload  json.RawMessage
	Status   int
	Reason   string
	Attempts int
	Err      error
}

// Absent reports whether the fetch produced no usable data.
func (r Result) Absent() bool {
	return r.Kind != KindSuccess && r.Kind != KindKnownOffline
}

// envelope is the body every DonutSMP endpoint wraps its result in.
type envelope struct {
	Status  int             `json:"status"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
}

func (e envelope) result() Result {
	switch {
	case e.Status == 200:
		return Result{Kind: KindSuccess, Status: e.Status, Payload: e.Result}
	case e.Status == 500 && e.Message == OfflineMessage:
		return Result{Kind: KindKnownOffline, Status: e.Status, Reason: e.Message}
	default:
		reason := e.Message
		if reason == "" {
			reason = e.Reason
		}
		return Result{
			Kind:   KindApplicationError,
			Status: e.Status,
			Reason: reason,
			Err:    fmt.Errorf("%w: status=%d %s", ErrApplication, e.Status, reason),
		}
	}
}

// Stats is the pass-through stats object. Numbers are kept as json.Number.
type Stats map[string]any

// Int returns key as an integer. Numeric strings are accepted, fractions are truncated.
func (s Stats) Int(key string) (int64, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, false
	}
	var str string
	switch n := v.(type) {
	case json.Number:
		str = n.String()
	case string:
		str = strings.TrimSpace(n)
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
	if i, err := strconv.ParseInt(str, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// String returns key formatted for display, or "N/A".
func (s Stats) String(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return "N/A"
	}
	return fmt.Sprint(v)
}

// Presence is the decoded lookup result.
type Presence struct {
	Offline  bool
	Location string
	Fields   map[string]any
}

// Online reports whether the lookup located the player.
func (p *Presence) Online() bool {
	return p != nil && !p.Offline && p.Location != ""
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrNoPayload
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return m, nil
}

// Stats decodes a successful stats payload.
func (r Result) Stats() (Stats, error) {
	if r.Kind != KindSuccess {
		return nil, fmt.Errorf("%s: %w", r.Kind, ErrNoPayload)
	}
	m, err := decodeObject(r.Payload)
	if err != nil {
		return nil, err
	}
	return Stats(m), nil
}

// Presence decodes a lookup payload. KnownOffline yields an offline Presence.
func (r Result) Presence() (*Presence, error) {
	switch r.Kind {
	case KindKnownOffline:
		return &Presence{Offline: true}, nil
	case KindSuccess:
	default:
		return nil, fmt.Errorf("%s: %w", r.Kind, ErrNoPayload)
	}
	m, err := decodeObject(r.Payload)
	if err != nil {
		return nil, err
	}
	p := &Presence{Fields: m}
	if loc, ok := m["location"].(string); ok {
		p.Location = loc
	}
	return p, nil
}
