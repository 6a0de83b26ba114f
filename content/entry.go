package content

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/OpenTTD/bananas-server/internal/regions"
)

// MD5 is a full 16-byte digest.
type MD5 [16]byte

func (m MD5) Hex() string { return hex.EncodeToString(m[:]) }

// MD5Partial is the first 4 bytes (8 hex chars) of an MD5, used by YAML
// records to reference an exact version without repeating the full digest.
type MD5Partial [4]byte

func (m MD5Partial) Hex() string { return hex.EncodeToString(m[:]) }

// VersionRange is a dotted-integer compatibility bound, nil meaning
// unbounded on that side.
type VersionRange struct {
	Min []int // inclusive
	Max []int // exclusive
}

// compareVersion compares two dotted-integer tuples element by element;
// missing trailing elements compare as 0.
func compareVersion(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Contains reports whether v falls in [Min, Max).
func (r VersionRange) Contains(v []int) bool {
	if r.Min != nil && compareVersion(v, r.Min) < 0 {
		return false
	}
	if r.Max != nil && compareVersion(v, r.Max) >= 0 {
		return false
	}
	return true
}

// Entry is an immutable content record, as described in spec.md §3. Entries
// are never mutated after a Snapshot publishes them.
type Entry struct {
	ContentType  Type
	ContentID    uint32
	FileSize     uint32
	Name         string
	Version      string
	URL          string
	Description  string
	UniqueID     UniqueID
	UploadDate   time.Time
	MD5Sum       MD5
	Dependencies []uint32 // resolved content IDs

	Compatibility map[string]VersionRange
	Classification map[string]any // string or bool values
	Regions        []string

	Archived bool

	// preContentID is not set by the catalog loader, which derives the
	// 24-bit md5-tail base candidate with preContentIDOf when assigning
	// stable content ids.
	preContentID uint32
}

// Tags synthesizes the flat, sorted tag list sent in SERVER_INFO: region
// ancestors (lowercased) plus classification-derived tags (spec.md §4.6).
func (e *Entry) Tags() []string {
	tags := regions.Tags(e.Regions)

	keys := make([]string, 0, len(e.Classification))
	for k := range e.Classification {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := e.Classification[k].(type) {
		case string:
			tags = append(tags, v)
		case bool:
			if v {
				tags = append(tags, k)
			}
		}
	}

	sort.Strings(tags)
	return tags
}

// MatchesBranch reports whether version v on branch satisfies e's
// compatibility matrix, or e has no matrix at all (spec.md §4.6 "Listing
// filter"): no compatibility map means the entry is included unconditionally.
func (e *Entry) MatchesBranch(branch string, v []int) bool {
	if len(e.Compatibility) == 0 {
		return true
	}
	r, ok := e.Compatibility[branch]
	if !ok {
		return false
	}
	return r.Contains(v)
}

// MatchesAny reports whether any branch in versions satisfies e's
// compatibility matrix.
func (e *Entry) MatchesAny(versions map[string][]int) bool {
	if len(e.Compatibility) == 0 {
		return true
	}
	for branch, v := range versions {
		if e.MatchesBranch(branch, v) {
			return true
		}
	}
	return false
}
