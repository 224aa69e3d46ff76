package payment

// Actions understood by the dispatcher.
const (
	ActionComplete = "complete"
	ActionVerify   = "verify"
	ActionRefund   = "refund"
)

// MaxUserHintLen bounds user.uid; longer hints are ignored.
const MaxUserHintLen = 256

// Webhook is the inbound notification body. Every field is an untrusted hint;
// only PaymentID is used to drive verification.
type Webhook struct {
	PaymentID string       `json:"paymentId"`
	Action    string       `json:"action,omitempty"`
	User      *WebhookUser `json:"user,omitempty"`
}

// WebhookUser carries the caller's view of who paid.
type WebhookUser struct {
	UID string `json:"uid"`
}

// ActionOrDefault returns the requested action, defaulting to complete.
func (w *Webhook) ActionOrDefault() string {
	if w.Action == "" {
		return ActionComplete
	}
	return w.Action
}

// UserHint returns user.uid from the body, or "" when absent or longer than
// MaxUserHintLen.
func (w *Webhook) UserHint() string {
	if w == nil || w.User == nil || len(w.User.UID) > MaxUserHintLen {
		return ""
	}
	return w.User.UID
}

// ResolveUser picks the authoritative user from the record, falling back to the
// webhook hint and finally Unknown.
func ResolveUser(rec *Record, w *Webhook) string {
	if rec != nil && rec.UserUID != "" {
		return rec.UserUID
	}
	if hint := w.UserHint(); hint != "" {
		return hint
	}
	return Unknown
}
