package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSignature returns the hex HMAC-SHA256 of "intentID|paymentID"
func ComputeSignature(intentID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a payment callback signature in constant time.
// Any malformed input yields false, indistinguishable from a wrong signature.
func VerifySignature(intentID, paymentID, providedSignature, secret string) bool {
	if intentID == "" || paymentID == "" || providedSignature == "" || secret == "" {
		return false
	}
	if len(providedSignature) != hex.EncodedLen(sha256.Size) {
		return false
	}
	expected := ComputeSignature(intentID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(providedSignature))
}
