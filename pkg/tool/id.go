package tool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

const paymentIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GeneratePaymentID returns a unique gateway payment id. The id doubles as an
// idempotency key: a client-side retry of the same charge request generates a
// new id, so the gateway never double-charges a single request.
func GeneratePaymentID() string {
	suffix := make([]byte, 7)
	for i := range suffix {
		suffix[i] = paymentIDAlphabet[rand.Intn(len(paymentIDAlphabet))]
	}
	return fmt.Sprintf("payment_%d_%s", time.Now().UnixMilli(), suffix)
}

// ScheduleIDForPayment derives the schedule id for the renewal following a
// payment. The derivation is a pure function of the payment id, so replays of
// the same settlement event converge on one schedule instead of stacking
// duplicates at the gateway.
func ScheduleIDForPayment(paymentID string) string {
	sum := sha256.Sum256([]byte("schedule_" + paymentID))
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}
