package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeNotFound, "document not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("wrapped code is visible through the chain", func(t *testing.T) {
		inner := New(CodeValidation, "bad file")
		outer := Wrap(inner, CodeInternal, "attach failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeValidation))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause remains reachable via errors.Is", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(fmt.Errorf("put bytes: %w", cause), CodeUnavailable, "upload failed")
		require.Error(t, err)
		assert.True(t, errors.Is(err, cause))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "missing side")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("untyped")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "missing side", MessageOf(New(CodeBadRequest, "missing side")))
	assert.Equal(t, "untyped", MessageOf(errors.New("untyped")))
	assert.Equal(t, "", MessageOf(nil))
}
