package fulfillment

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	licensePrefix = "LIC-"
	licenseLength = 16
)

// LicenseKey derives a key from the user, the product and the instant of delivery.
// A random nonce is mixed in so two deliveries in the same nanosecond still differ
// and keys cannot be recomputed from public data. Keys are not verifiable later;
// the receipt log is the only place they are recorded.
func LicenseKey(userID, productID string, at time.Time) string {
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)

	h := md5.New()
	h.Write([]byte(userID))
	h.Write([]byte(productID))
	h.Write([]byte(strconv.FormatInt(at.UnixNano(), 10)))
	h.Write(nonce)
	sum := hex.EncodeToString(h.Sum(nil))
	return licensePrefix + strings.ToUpper(sum[:licenseLength])
}
