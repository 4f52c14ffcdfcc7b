package tool

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IdempotencyKey returns a fresh key for one logical remote call; every retry
// of that call must reuse it.
func IdempotencyKey(prefix string) string {
	if prefix == "" {
		return GenerateUUIDV7()
	}
	return strings.TrimSuffix(prefix, "-") + "-" + GenerateUUIDV7()
}
