package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionRangeContains(t *testing.T) {
	r := VersionRange{Min: []int{0, 9, 0}}
	require.True(t, r.Contains([]int{0, 9, 0}))
	require.True(t, r.Contains([]int{1, 0, 0}))
	require.False(t, r.Contains([]int{0, 8, 9}))

	r2 := VersionRange{Max: []int{0, 10, 0}}
	require.True(t, r2.Contains([]int{0, 9, 9}))
	require.False(t, r2.Contains([]int{0, 10, 0}))
}

func TestMatchesBranchNoCompatibilityAlwaysIncludes(t *testing.T) {
	e := &Entry{}
	require.True(t, e.MatchesBranch("vanilla", []int{1, 0}))
	require.True(t, e.MatchesAny(map[string][]int{"vanilla": {1, 0}}))
}

func TestMatchesBranchScenario(t *testing.T) {
	// Concrete scenario from the listing-filter spec: an entry compatible
	// from 0.9.0 onward includes a 0.10.11 client; one capped below 0.10.0
	// excludes it.
	included := &Entry{Compatibility: map[string]VersionRange{
		"vanilla": {Min: []int{0, 9, 0}},
	}}
	excluded := &Entry{Compatibility: map[string]VersionRange{
		"vanilla": {Max: []int{0, 10, 0}},
	}}
	client := []int{0, 10, 11}

	require.True(t, included.MatchesBranch("vanilla", client))
	require.False(t, excluded.MatchesBranch("vanilla", client))
}

func TestTagsSynthesis(t *testing.T) {
	e := &Entry{
		Classification: map[string]any{
			"zzz-first-sorted-away": false,
			"genre":                 "industrial",
			"steam-workshop":        true,
		},
		Regions: []string{"nl"},
	}
	tags := e.Tags()
	require.Contains(t, tags, "industrial")
	require.Contains(t, tags, "steam-workshop")
	require.Contains(t, tags, "europe")
	require.Contains(t, tags, "netherlands")
	require.NotContains(t, tags, "zzz-first-sorted-away")

	for i := 1; i < len(tags); i++ {
		require.LessOrEqual(t, tags[i-1], tags[i])
	}
}

func TestMD5Hex(t *testing.T) {
	var m MD5
	m[0] = 0xAB
	m[15] = 0xCD
	require.Equal(t, "ab"+"0000000000000000000000000000"+"cd", m.Hex())
	require.Len(t, m.Hex(), 32)
}
