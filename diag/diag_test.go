package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBag_AccumulatesAndShrinks(t *testing.T) {
	var b Bag
	assert.True(t, b.Empty())
	b.Add(3, "unexpected token %q", "}")
	b.Add(9, "unknown identifier: %s", "x")
	assert.False(t, b.Empty())
	assert.Equal(t, 2, b.Len())

	got := b.Diagnostics()
	assert.Equal(t, []Diagnostic{
		{Offset: 3, Message: `unexpected token "}"`},
		{Offset: 9, Message: "unknown identifier: x"},
	}, got)
}

func TestBag_EmptyProducesNilDiagnostics(t *testing.T) {
	var b Bag
	assert.Nil(t, b.Diagnostics())
}
