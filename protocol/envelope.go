package protocol

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/jeffrom/heclog/config"
)

// Sourcetype is the sourcetype set on every event envelope.
const Sourcetype = "_json"

// Reserved event keys set by the envelope builder. Caller-supplied details
// with the same names are overwritten.
const (
	KeyLogType   = "logType"
	KeyEventName = "eventName"
)

// EventTime is a wall-clock timestamp with millisecond precision. It
// marshals in the collector's expected format, whole seconds followed by a
// three-digit millisecond fraction, e.g. 12345ms -> 12.345.
type EventTime time.Time

// MarshalJSON implements json.Marshaler
func (t EventTime) MarshalJSON() ([]byte, error) {
	ms := time.Time(t).UnixNano() / int64(time.Millisecond)
	b := strconv.AppendInt(nil, ms/1000, 10)
	b = append(b, '.')
	frac := ms % 1000
	if frac < 100 {
		b = append(b, '0')
	}
	if frac < 10 {
		b = append(b, '0')
	}
	return strconv.AppendInt(b, frac, 10), nil
}

// Envelope wraps one log event with collector metadata. The inner Event
// payload carries the log type, event name and any caller-supplied details.
type Envelope struct {
	Time       EventTime              `json:"time"`
	Sourcetype string                 `json:"sourcetype"`
	Source     string                 `json:"source"`
	Host       string                 `json:"host,omitempty"`
	Index      string                 `json:"index,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	Event      map[string]interface{} `json:"event"`
}

// NewEnvelope returns an envelope for one event, stamped with the current
// time and the configured metadata.
func NewEnvelope(conf *config.Config, logType, eventName string, details map[string]interface{}) *Envelope {
	event := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		event[k] = v
	}
	event[KeyLogType] = logType
	event[KeyEventName] = eventName

	return &Envelope{
		Time:       EventTime(time.Now()),
		Sourcetype: Sourcetype,
		Source:     conf.Source,
		Host:       conf.Host,
		Index:      conf.Index,
		Event:      event,
	}
}

// WithFields sets enrichment fields on the envelope.
func (e *Envelope) WithFields(fields map[string]interface{}) *Envelope {
	e.Fields = fields
	return e
}

// Serialize renders the envelope as one payload line. The returned bytes are
// a snapshot: mutating the details afterward has no effect on them.
func (e *Envelope) Serialize() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize event")
	}
	return b, nil
}
