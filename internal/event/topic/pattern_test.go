package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexp_MatchesWholeTopic(t *testing.T) {
	p, err := CompileRegexp(`fs\.(write|create)`)
	require.NoError(t, err)

	assert.True(t, p.Match("fs.write"))
	assert.True(t, p.Match("fs.create"))
	assert.False(t, p.Match("fs.write.extra"))
	assert.False(t, p.Match("xfs.write"))
	assert.False(t, p.Match(None))
	assert.Equal(t, `fs\.(write|create)`, p.String())
}

func TestRegexp_Alternation(t *testing.T) {
	// Anchoring must wrap the whole alternation, not only its ends.
	p := MustCompileRegexp("a|b")
	assert.True(t, p.Match("a"))
	assert.True(t, p.Match("b"))
	assert.False(t, p.Match("ab"))
}

func TestRegexp_EmptyExpressionNeverMatchesNone(t *testing.T) {
	p := MustCompileRegexp(".*")
	assert.True(t, p.Match("x"))
	assert.False(t, p.Match(None))
}

func TestCompileRegexp_Invalid(t *testing.T) {
	_, err := CompileRegexp("(")
	require.Error(t, err)
	assert.Panics(t, func() { MustCompileRegexp("(") })
}

func TestWildcard(t *testing.T) {
	var p Pattern = Wildcard("buffer.*")
	assert.True(t, p.Match("buffer.saved"))
	assert.False(t, p.Match("buffer.a.b"))
	assert.Equal(t, "buffer.*", p.String())
}
