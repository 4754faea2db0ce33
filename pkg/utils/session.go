package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewChatID generates an opaque chat grouping key.
func NewChatID() string {
	return uuid.NewString()
}

// NewRequestID generates a short identifier for request tracing.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// MD5Hash generates the MD5 hex digest of input. Used for cache keys only.
func MD5Hash(input string) string {
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}

// ValidateChatID reports whether a client-supplied chat id is usable as an
// opaque grouping key. The pipeline never interprets it.
func ValidateChatID(chatID string) bool {
	if chatID == "" || len(chatID) > 100 {
		return false
	}
	for _, r := range chatID {
		if r == '\n' || r == '\r' || r == 0 {
			return false
		}
	}
	return true
}
