package custom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenTags(t *testing.T) {
	s, ok := flattenTags(nil)
	assert.True(t, ok)
	assert.Equal(t, "", s)

	s, ok = flattenTags("a,b")
	assert.True(t, ok)
	assert.Equal(t, "a,b", s)

	s, ok = flattenTags([]interface{}{"x", "y"})
	assert.True(t, ok)
	assert.Equal(t, "x,y", s)

	_, ok = flattenTags([]interface{}{"x", 1.0})
	assert.False(t, ok)

	_, ok = flattenTags(map[string]interface{}{})
	assert.False(t, ok)
}
