package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiDictKeepsOrderAndDuplicates(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	m := NewMultiDict[string]()

	// Act
	m.Add("a", "1")
	m.Add("b", "2")
	m.Add("a", "3")

	// Assert
	assert.Equal(3, m.Len())
	assert.Equal([]string{"a", "b"}, m.Keys())
	assert.Equal([]string{"1", "3"}, m.GetAll("a"))
	assert.Equal([]string{"2"}, m.GetAll("b"))

	v, ok := m.Get("a")
	assert.True(ok)
	assert.Equal("1", v)

	var pairs []string
	for k, v := range m.All() {
		pairs = append(pairs, k+"="+v)
	}
	assert.Equal([]string{"a=1", "b=2", "a=3"}, pairs)
}

func TestMultiDictMissingKey(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	var m MultiDict[int]

	// Act
	v, ok := m.Get("x")

	// Assert
	assert.False(ok)
	assert.Equal(0, v)
	assert.Empty(m.GetAll("x"))
	assert.False(m.Has("x"))
	assert.Empty(m.Keys())

	m.Add("x", 7)
	assert.True(m.Has("x"))
}
