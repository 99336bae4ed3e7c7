package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	specVersion    = "1.0"
	typeSuffix     = ".v1"
	defaultSource  = "app://hostelhunt"
	ContentTypeKey = "content-type"
	ContentType    = "application/cloudevents+json"
)

var ErrMalformedEnvelope = errors.New("outbox: malformed event envelope")

// Envelope is the CloudEvents structured-mode document published for every record.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

// EventName strips the version suffix from Type.
func (e Envelope) EventName() string {
	return strings.TrimSuffix(e.Type, typeSuffix)
}

func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" || len(env.Data) == 0 {
		return Envelope{}, ErrMalformedEnvelope
	}
	return env, nil
}

// TopicFor maps "booking.created" to "<prefix>booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events" + typeSuffix
}
