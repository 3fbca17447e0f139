package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexMatcherBareFlags(t *testing.T) {
	m := NewRegexMatcher()

	ok, err := m.Match("^hello", "", "hello world")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Match("^HELLO", "i", "hello world")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Match("^HELLO", "", "hello world")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegexMatcherInlineFlagGroup(t *testing.T) {
	m := NewRegexMatcher()
	ok, err := m.Match("hello", "(?i)", "HELLO")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegexMatcherMultilineFlag(t *testing.T) {
	m := NewRegexMatcher()
	ok, err := m.Match("^b", "m", "a\nb")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegexMatcherInvalidPattern(t *testing.T) {
	m := NewRegexMatcher()
	_, err := m.Match("(unclosed", "", "x")
	require.Error(t, err)
}

func TestRegexMatcherUnknownFlagsIgnored(t *testing.T) {
	m := NewRegexMatcher()
	ok, err := m.Match("^hello", "iz", "HELLO")
	require.NoError(t, err)
	assert.True(t, ok)
}
