package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Mynotaurus/gostreaming/internal/errors"
)

func TestResolveColor(t *testing.T) {
	t.Run("resolves named colors", func(t *testing.T) {
		color, err := ResolveColor("red")
		require.NoError(t, err)
		assert.Equal(t, 0xFF0000, color)
	})

	t.Run("is case and whitespace insensitive", func(t *testing.T) {
		color, err := ResolveColor("  RoyalBlue ")
		require.NoError(t, err)
		assert.Equal(t, 0x4169E1, color)
	})

	t.Run("resolves six digit hex with hash", func(t *testing.T) {
		color, err := ResolveColor("#abcdef")
		require.NoError(t, err)
		assert.Equal(t, 0xABCDEF, color)
	})

	t.Run("resolves six digit hex without hash", func(t *testing.T) {
		color, err := ResolveColor("ff00ff")
		require.NoError(t, err)
		assert.Equal(t, 0xFF00FF, color)
	})

	t.Run("expands three digit hex", func(t *testing.T) {
		color, err := ResolveColor("#abc")
		require.NoError(t, err)
		assert.Equal(t, 0xAABBCC, color)
	})

	t.Run("random picks a valid color", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			color, err := ResolveColor("random")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, color, 0)
			assert.LessOrEqual(t, color, 0xFFFFFF)
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ResolveColor("   ")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := ResolveColor("notacolor")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("rejects malformed hex", func(t *testing.T) {
		for _, input := range []string{"#ab", "#abcd", "zzzzzz", "#-12345", "+abcde"} {
			_, err := ResolveColor(input)
			assert.Error(t, err, "input %q should be rejected", input)
		}
	})
}

func TestHTMLColor(t *testing.T) {
	t.Run("renders seven character lowercase hex", func(t *testing.T) {
		assert.Equal(t, "#ff0000", HTMLColor(0xFF0000))
		assert.Equal(t, "#000000", HTMLColor(0))
		assert.Equal(t, "#00ff7f", HTMLColor(0x00FF7F))
	})
}
