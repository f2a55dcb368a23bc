package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Đắc Nhân Tâm":           "dac-nhan-tam",
		"  The Go Programming  ": "the-go-programming",
		"C++ & Go: 2nd ed.":      "c-go-2nd-ed",
		"---":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Tokens("  a b   c ", 5))
	assert.Len(t, Tokens("1 2 3 4 5 6 7", 5), 5)
	assert.Empty(t, Tokens("   ", 5))
}

func TestEscapeRegexAndEmail(t *testing.T) {
	assert.Equal(t, `ORD\.1\*`, EscapeRegex("ORD.1*"))
	assert.Equal(t, "reader@example.com", NormalizeEmail("  Reader@Example.COM "))
	assert.True(t, ContainsFold("Hello World", "WORLD"))
}
