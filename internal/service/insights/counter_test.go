package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterTiesGoToFirstSeen(t *testing.T) {
	c := newCounter[string]()
	for _, k := range []string{"Praia", "Costão", "Praia", "Costão", "Mangue"} {
		c.add(k)
	}
	c.addN("Mangue", 1)

	assert.Equal(t, 3, c.len())
	assert.Equal(t, 6, c.total())
	assert.Equal(t, 2, c.get("Costão"))

	key, n, ok := c.max()
	assert.True(t, ok)
	assert.Equal(t, "Praia", key)
	assert.Equal(t, 2, n)

	key, n, ok = c.min()
	assert.True(t, ok)
	assert.Equal(t, "Praia", key)
	assert.Equal(t, 2, n)
}

func TestEmptyCounter(t *testing.T) {
	c := newCounter[int]()
	_, _, ok := c.max()
	assert.False(t, ok)
	_, _, ok = c.min()
	assert.False(t, ok)
	assert.Zero(t, c.total())
}
