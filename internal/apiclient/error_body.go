package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind tags which known server error shape a body matched.
type ErrorKind int

const (
	ErrorBodyEmpty ErrorKind = iota
	ErrorBodyDetail
	ErrorBodyMessage
	ErrorBodyError
	ErrorBodyCompliance
	ErrorBodyFields
	ErrorBodyText
	ErrorBodyUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorBodyEmpty:
		return "empty"
	case ErrorBodyDetail:
		return "detail"
	case ErrorBodyMessage:
		return "message"
	case ErrorBodyError:
		return "error"
	case ErrorBodyCompliance:
		return "compliance"
	case ErrorBodyFields:
		return "fields"
	case ErrorBodyText:
		return "text"
	default:
		return "unknown"
	}
}

const fallbackMessage = "Request failed"

// ErrorBody is a decoded error response.
type ErrorBody struct {
	Kind       ErrorKind
	Text       string
	Compliance []string
	Fields     map[string][]string
	Raw        []byte
}

// Message is the human-readable text for the body.
func (b ErrorBody) Message() string {
	switch b.Kind {
	case ErrorBodyDetail, ErrorBodyMessage, ErrorBodyError, ErrorBodyText:
		if b.Text != "" {
			return b.Text
		}
	case ErrorBodyCompliance:
		if len(b.Compliance) > 0 {
			return strings.Join(b.Compliance, "; ")
		}
	case ErrorBodyFields:
		return b.fieldMessage()
	}
	return fallbackMessage
}

func (b ErrorBody) fieldMessage() string {
	keys := make([]string, 0, len(b.Fields))
	for k := range b.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := strings.Join(b.Fields[k], " ")
		if k == "" || k == "non_field_errors" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, msg))
	}
	if len(parts) == 0 {
		return fallbackMessage
	}
	return strings.Join(parts, "; ")
}

// DecodeErrorBody matches raw against the error shapes the server emits,
// in preference order detail, message, error, compliance_errors, field
// errors, then plain text.
func DecodeErrorBody(raw []byte) ErrorBody {
	trimmed := bytes.TrimSpace(raw)
	body := ErrorBody{Raw: raw}
	if len(trimmed) == 0 {
		body.Kind = ErrorBodyEmpty
		return body
	}
	if !json.Valid(trimmed) {
		body.Kind = ErrorBodyText
		body.Text = string(trimmed)
		return body
	}

	switch trimmed[0] {
	case '"':
		var s string
		_ = json.Unmarshal(trimmed, &s)
		body.Kind = ErrorBodyText
		body.Text = s
		return body
	case '[':
		if msgs, ok := stringList(trimmed); ok && len(msgs) > 0 {
			body.Kind = ErrorBodyFields
			body.Fields = map[string][]string{"non_field_errors": msgs}
			return body
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			return decodeObject(obj, body)
		}
	}
	body.Kind = ErrorBodyUnknown
	return body
}

func decodeObject(obj map[string]json.RawMessage, body ErrorBody) ErrorBody {
	for _, probe := range []struct {
		key  string
		kind ErrorKind
	}{
		{"detail", ErrorBodyDetail},
		{"message", ErrorBodyMessage},
		{"error", ErrorBodyError},
	} {
		if s, ok := stringField(obj, probe.key); ok {
			body.Kind = probe.kind
			body.Text = s
			return body
		}
	}

	if raw, ok := obj["compliance_errors"]; ok {
		if msgs, ok := stringList(raw); ok && len(msgs) > 0 {
			body.Kind = ErrorBodyCompliance
			body.Compliance = msgs
			return body
		}
	}

	fields := make(map[string][]string)
	for k, v := range obj {
		if s, ok := stringField(obj, k); ok {
			fields[k] = []string{s}
			continue
		}
		if msgs, ok := stringList(v); ok && len(msgs) > 0 {
			fields[k] = msgs
		}
	}
	if len(fields) > 0 {
		body.Kind = ErrorBodyFields
		body.Fields = fields
		return body
	}

	body.Kind = ErrorBodyUnknown
	return body
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func stringList(raw json.RawMessage) ([]string, bool) {
	var msgs []string
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}
