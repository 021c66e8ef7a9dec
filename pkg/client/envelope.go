package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/byway-lms/byway-admin/pkg/domain"
)

// envelope is the {data, message, status} wrapper some endpoints use.
// Bare payloads decode into it too; callers look at which members are set.
type envelope struct {
	ID      json.RawMessage `json:"id"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
}

func parseEnvelope(body []byte) (envelope, bool) {
	body = bytes.TrimSpace(body)
	if kind(body) != '{' {
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, false
	}
	env.Data = bytes.TrimSpace(env.Data)
	if bytes.Equal(env.Data, []byte("null")) {
		env.Data = nil
	}
	return env, true
}

// kind returns the first byte of a JSON value: '{', '[', '"' and so on.
func kind(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

// decodeRecord decodes a single object that may be wrapped in an envelope.
// A body with its own id is the record itself.
func decodeRecord(body []byte, out any) error {
	if env, ok := parseEnvelope(body); ok && len(env.ID) == 0 && kind(env.Data) == '{' {
		body = env.Data
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// optionalRecord is decodeRecord for create and update calls, whose response
// body may be empty or carry no record.
func optionalRecord[T any](body []byte) (*T, error) {
	switch k := kind(body); {
	case k == 0:
		return nil, nil
	case k == '{':
		env, _ := parseEnvelope(body)
		if len(env.ID) == 0 && kind(env.Data) != '{' {
			return nil, nil
		}
	default:
		return nil, nil
	}
	var v T
	if err := decodeRecord(body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// decodeList decodes a bare array, {data: [...]}, or a page whose data is the
// array. Anything else is an empty list.
func decodeList[T any](body []byte, out *[]T) error {
	switch kind(body) {
	case '[':
	case '{':
		env, _ := parseEnvelope(body)
		switch kind(env.Data) {
		case '[':
			body = env.Data
		case '{':
			return decodeList(env.Data, out)
		default:
			*out = []T{}
			return nil
		}
	default:
		*out = []T{}
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if *out == nil {
		*out = []T{}
	}
	return nil
}

// decodePage decodes any of the pagination shapes, unwrapping an envelope
// whose data is itself the page object.
func decodePage[T any](body []byte, requestedSize int) (domain.Page[T], error) {
	if env, ok := parseEnvelope(body); ok && kind(env.Data) == '{' {
		body = env.Data
	}
	var raw domain.RawPage[T]
	if kind(body) == '[' {
		if err := json.Unmarshal(body, &raw.Data); err != nil {
			return domain.Page[T]{}, fmt.Errorf("decode response: %w", err)
		}
		return raw.Normalize(requestedSize), nil
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return domain.Page[T]{}, fmt.Errorf("decode response: %w", err)
		}
	}
	return raw.Normalize(requestedSize), nil
}

// extractToken finds the session token at the top level or under data.
func extractToken(body []byte) string {
	env, ok := parseEnvelope(body)
	if !ok {
		var s string
		if json.Unmarshal(body, &s) == nil {
			return s
		}
		return ""
	}
	if env.Token != "" {
		return env.Token
	}
	switch kind(env.Data) {
	case '{':
		return extractToken(env.Data)
	case '"':
		var s string
		if json.Unmarshal(env.Data, &s) == nil {
			return s
		}
	}
	return ""
}

// extractMessage returns the message of a delete response, which may sit at
// the top level or under data.
func extractMessage(body []byte) string {
	env, ok := parseEnvelope(body)
	if !ok {
		var s string
		if json.Unmarshal(body, &s) == nil {
			return s
		}
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	if kind(env.Data) == '{' {
		return extractMessage(env.Data)
	}
	return ""
}
