package retrieval

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindOverlap(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want string
	}{
		{"sentence boundary", "The quick brown fox jumps", "fox jumps over the lazy dog", "fox jumps"},
		{"no overlap", "abc", "xyz", ""},
		{"empty prefix source", "", "abc", ""},
		{"empty candidate", "abc", "", ""},
		{"both empty", "", "", ""},
		{"identical", "abcabc", "abcabc", "abcabc"},
		{"longest wins", "aaaa", "aaab", "aaa"},
		{"candidate shorter", "hello world", "ld", "ld"},
		{"multibyte", "coração ação", "ação final", "ação"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FindOverlap(tc.a, tc.b))
		})
	}
}

func TestFindOverlap_IsLongestCommonSuffixPrefix(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	gen := func() string {
		n := r.Intn(12)
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteByte("ab"[r.Intn(2)])
		}
		return sb.String()
	}

	for i := 0; i < 2000; i++ {
		a, b := gen(), gen()
		got := FindOverlap(a, b)

		assert.True(t, strings.HasSuffix(a, got), "%q not a suffix of %q", got, a)
		assert.True(t, strings.HasPrefix(b, got), "%q not a prefix of %q", got, b)
		for k := len(got) + 1; k <= min(len(a), len(b)); k++ {
			assert.False(t, strings.HasSuffix(a, b[:k]), "longer overlap %q missed for %q/%q", b[:k], a, b)
		}
	}
}
