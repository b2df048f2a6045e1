package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindQuotaExceeded     Kind = "quota-exceeded"
	KindAuth              Kind = "authentication"
	KindNotFound          Kind = "resource-not-found"
	KindServerUnavailable Kind = "server-unavailable"
	KindContentPolicy     Kind = "content-policy-block"
	KindMalformedRequest  Kind = "malformed-request"
)

// APIError is the normalized failure of one generation call. None of
// the kinds are auto-retried; the orchestrator records them as failed
// units with the message intact.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gemini %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini %s: %s", e.Kind, e.Message)
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindQuotaExceeded
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServerUnavailable
	default:
		return KindMalformedRequest
	}
}

// apiMessage pulls the human-readable message out of the API's error
// envelope, falling back to the trimmed raw body.
func apiMessage(rawBody []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(rawBody))
}

var blockedFinishReasons = map[string]struct{}{
	"SAFETY":             {},
	"BLOCKLIST":          {},
	"PROHIBITED_CONTENT": {},
	"IMAGE_SAFETY":       {},
}

func isBlockedFinish(reason string) bool {
	_, ok := blockedFinishReasons[strings.ToUpper(strings.TrimSpace(reason))]
	return ok
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
