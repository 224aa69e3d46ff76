// Package auditlog records every step of webhook processing as JSON lines. The log is
// the service's only durable history; payment history is reconstructed from it.
package auditlog

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// Level is the severity of an audit event.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Tag identifies the kind of event. Tags form a closed vocabulary; the history
// reader filters on them, so renaming one breaks history for existing logs.
type Tag string

const (
	TagWebhookReceived        Tag = "webhook_received"
	TagInvalidJSON            Tag = "webhook_invalid_json"
	TagMissingPaymentID       Tag = "webhook_missing_payment_id"
	TagVerificationSucceeded  Tag = "verification_succeeded"
	TagVerificationNetwork    Tag = "verification_network_error"
	TagVerificationStatus     Tag = "verification_remote_status"
	TagVerificationMalformed  Tag = "verification_malformed_response"
	TagCompletionStarted      Tag = "completion_started"
	TagCompletionNotCompleted Tag = "completion_not_completed"
	TagDeliveryStarted        Tag = "delivery_started"
	TagDeliverySucceeded      Tag = "delivery_succeeded"
	TagDeliveryDuplicate      Tag = "delivery_duplicate"
	TagDeliveryFailed         Tag = "delivery_failed"
	TagCompletionSucceeded    Tag = "completion_succeeded"
	TagCompletionReplayed     Tag = "completion_replayed"
	TagPaymentVerified        Tag = "payment_verified"
	TagRefundSimulated        Tag = "refund_simulated"
	TagUnknownAction          Tag = "unknown_action"
	TagInternalError          Tag = "internal_error"
)

// Event is one audit line: {timestamp, level, message, data, ip, user_agent}.
// The field names are read back by the history reader and by external tooling.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Message   Tag                    `json:"message"`
	Data      map[string]interface{} `json:"data"`
	IP        string                 `json:"ip"`
	UserAgent string                 `json:"user_agent"`
}

// Fields converts a struct payload into the generic data map via its JSON form, so
// the logged keys match the json tags of v.
func Fields(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"marshal_error": err.Error()}
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]interface{}{"value": string(b)}
	}
	return out
}

// MaxFieldLen bounds an untrusted string copied into an event payload.
const MaxFieldLen = 2048

// Clip shortens s to at most n bytes on a rune boundary and marks the cut.
func Clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
