package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry([]string{"openai", "anthropic", "gemini"})
	assert.NoError(t, err, "Expected no error creating registry")
	assert.Equal(t, 3, reg.Len())
	assert.True(t, reg.Contains("openai"))
	assert.False(t, reg.Contains("deepseek"))
}

func TestNewRegistry_EmptyIDs(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.ErrorIs(t, err, ErrEmptyRegistry)

	_, err = NewRegistry([]string{})
	assert.ErrorIs(t, err, ErrEmptyRegistry)
}

func TestNewRegistry_NormalizesAndDedupes(t *testing.T) {
	reg, err := NewRegistry([]string{"OpenAI", "openai", " anthropic ", "anthropic"})
	assert.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Contains("openai"))
	assert.True(t, reg.Contains("anthropic"))
}

func TestRegistry_DisplayName(t *testing.T) {
	reg, err := NewRegistry([]string{"openai", "cohere", "customprov"})
	assert.NoError(t, err)

	assert.Equal(t, "OpenAI", reg.DisplayName("openai"))
	assert.Equal(t, "Cohere", reg.DisplayName("cohere"))
	// Unknown ids fall back to a title-cased form of the id itself.
	assert.Equal(t, "Customprov", reg.DisplayName("customprov"))
}
