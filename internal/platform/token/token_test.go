package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veridoc/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key", "veridoc", "veridoc-dashboard")

	raw, err := svc.Generate("op-42", time.Minute)
	require.NoError(t, err)

	claims, err := svc.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "op-42", claims.OperatorID)
	assert.Equal(t, "veridoc", claims.Issuer)
}

func TestValidate_Rejections(t *testing.T) {
	svc := NewService("test-signing-key", "veridoc", "veridoc-dashboard")

	t.Run("expired token", func(t *testing.T) {
		raw, err := svc.Generate("op-42", -time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(raw)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, "token has expired", dErrors.MessageOf(err))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("other-key", "veridoc", "veridoc-dashboard")
		raw, err := other.Generate("op-42", time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(raw)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewService("test-signing-key", "veridoc", "another-audience")
		raw, err := other.Generate("op-42", time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(raw)
		require.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
