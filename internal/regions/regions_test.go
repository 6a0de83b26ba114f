package regions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagsWalksAncestors(t *testing.T) {
	tags := Tags([]string{"nl"})
	require.Equal(t, []string{"netherlands", "europe", "world"}, tags)
}

func TestTagsDedupesAcrossCodes(t *testing.T) {
	tags := Tags([]string{"nl", "de"})
	count := 0
	for _, tag := range tags {
		if tag == "europe" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestTagsUnknownCodePassesThrough(t *testing.T) {
	tags := Tags([]string{"mars"})
	require.Equal(t, []string{"mars"}, tags)
}
