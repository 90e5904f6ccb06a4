package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateSKUCode builds a unique SKU code such as "PRD12-BLACK-M-3F9A1C2D".
func GenerateSKUCode(productID uint, color, size string) string {
	parts := []string{fmt.Sprintf("PRD%d", productID)}
	if color != "" {
		parts = append(parts, strings.ToUpper(strings.ReplaceAll(color, " ", "")))
	}
	if size != "" {
		parts = append(parts, strings.ToUpper(size))
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	parts = append(parts, suffix)
	return strings.Join(parts, "-")
}

// GenerateToken returns n random bytes hex encoded.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the lookup key stored for a secret token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
