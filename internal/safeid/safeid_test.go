package safeid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	require.Equal(t, "01020304-opengfx-0.6.1", Filename("01020304", "opengfx", "0.6.1"))
}

func TestSafeNameCoalescesAndTrims(t *testing.T) {
	require.Equal(t, "a_b", safeName("a!!!b"))
	require.Equal(t, "a_b_c", safeName("a   b---c"))
	require.Equal(t, "abc", safeName("...abc___"))
	require.Equal(t, "", safeName("***"))
}

func TestSafeNameIdempotent(t *testing.T) {
	inputs := []string{"My Cool NewGRF!!", "foo.bar.baz", "___x___", ""}
	for _, in := range inputs {
		once := safeName(in)
		twice := safeName(once)
		require.Equal(t, once, twice, "safeName(%q) not idempotent", in)
		require.NotContains(t, once, "__")
	}
}
