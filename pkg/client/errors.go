package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx reply. Message comes from ResponseMsg, message or
// error, in that order. Fields holds field-keyed messages when the backend
// sends an "errors" object.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("client: %d: %s", e.Status, e.Message)
}

// Temporary reports whether the failure is a server-side fault worth retrying.
func (e *APIError) Temporary() bool {
	return e.Status >= 500
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
		return apiErr
	}
	apiErr.Message = messageFrom(obj)
	apiErr.Fields = fieldErrors(obj["errors"])
	return apiErr
}

func messageFrom(obj map[string]any) string {
	for _, key := range []string{"ResponseMsg", "message", "error"} {
		if msg, ok := obj[key].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}

func fieldErrors(raw any) map[string][]string {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	out := make(map[string][]string, len(obj))
	for key, value := range obj {
		switch v := value.(type) {
		case string:
			out[key] = []string{v}
		case []any:
			for _, item := range v {
				if msg, ok := item.(string); ok {
					out[key] = append(out[key], msg)
				}
			}
		}
	}
	return out
}
