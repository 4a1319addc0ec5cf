package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var envelopeKeys = map[string]struct{}{
	"code":    {},
	"message": {},
	"data":    {},
	"success": {},
	"error":   {},
}

// unwrapEnvelope returns the data member of a {code,message,data,success}
// envelope. Bodies that are not envelopes are returned untouched.
func unwrapEnvelope(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return body
	}
	data, ok := obj["data"]
	if !ok {
		return body
	}
	for k := range obj {
		if _, known := envelopeKeys[k]; !known {
			return body
		}
	}
	return data
}

// errorMessage extracts the server's error text, preferring "error" over "message".
func errorMessage(body []byte, status int) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch v := payload.Error.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case map[string]any:
			if m, ok := v["message"].(string); ok && m != "" {
				return m
			}
		}
		if strings.TrimSpace(payload.Message) != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("request failed with status code %d", status)
}
