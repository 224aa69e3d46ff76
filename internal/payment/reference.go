package payment

import (
	"strings"

	"github.com/google/uuid"
)

// Reference prefixes.
const (
	PrefixTransaction = "TXN_"
	PrefixRefund      = "REF_"
	PrefixError       = "ERR_"
)

// NewReference returns prefix followed by a fresh random token. References are
// request-scoped and never reused across retries.
func NewReference(prefix string) string {
	id := uuid.New()
	return prefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}
