package payments

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// VerifyHMACSHA256 checks a hex-encoded HMAC-SHA256 signature header against
// the raw payload. Used by LemonSqueezy (X-Signature) and the HYP signed
// callback mode.
func VerifyHMACSHA256(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	s := strings.TrimSpace(secret)
	if sig == "" || s == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMAC(payload, decodedSig, []byte(s), sha256.New)
}

// VerifyHMACMD5 exists for legacy gateway configurations that still sign with
// HMAC-MD5.
func VerifyHMACMD5(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	s := strings.TrimSpace(secret)
	if sig == "" || s == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMAC(payload, decodedSig, []byte(s), md5.New)
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
