package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// Hmac512 is a function to generate HMAC-SHA512 hash.
func Hmac512(body, key []byte) string {
	hash := hmac.New(sha512.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifySignature compares the received signature header against the
// HMAC-SHA512 of the raw body in constant time.
func VerifySignature(body []byte, received string, key []byte) bool {
	expected := Hmac512(body, key)
	return hmac.Equal([]byte(received), []byte(expected))
}
