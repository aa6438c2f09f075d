package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// VoucherCodePrefix starts every voucher code
const VoucherCodePrefix = "BON-"

// GenerateVoucherCode returns a code like BON-7F3A9C drawn from a random UUID
func GenerateVoucherCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return VoucherCodePrefix + strings.ToUpper(raw[:6])
}

// GenerateRandomString generates a random string of the specified length
func GenerateRandomString(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:length], nil
}

// MaskEmail keeps the first character of the local part, for logs
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
