package tool

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	id, err := uuid.Parse(GenerateUUIDV7())
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
}

func TestIdempotencyKey(t *testing.T) {
	k1 := IdempotencyKey("customer-")
	k2 := IdempotencyKey("customer")
	require.True(t, strings.HasPrefix(k1, "customer-"))
	require.True(t, strings.HasPrefix(k2, "customer-"))
	require.NotEqual(t, k1, k2)
	require.NotEmpty(t, IdempotencyKey(""))
}
