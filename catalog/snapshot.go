// Package catalog implements the in-memory catalog index (spec.md §4.3,
// §4.4): loading the YAML content tree into a multi-keyed snapshot, and the
// reload supervisor that rebuilds it without disrupting live readers.
package catalog

import (
	"github.com/OpenTTD/bananas-server/content"
)

type md5Key struct {
	Type     content.Type
	UniqueID content.UniqueID
	MD5      content.MD5
}

// Snapshot is an immutable build of the four catalog views (spec.md §3). It
// is never mutated after Loader.Load returns it; readers hold a reference for
// the duration of a request and the reload supervisor swaps the pointer
// atomically.
type Snapshot struct {
	byContentID         map[uint32]*content.Entry
	byContentType       map[content.Type][]*content.Entry
	byUniqueID          map[uniqueKey]*content.Entry // latest "active" entry only
	byUniqueIDAndMD5Sum map[md5Key]*content.Entry    // active and archived
}

type uniqueKey struct {
	Type     content.Type
	UniqueID content.UniqueID
}

// Empty is the zero-entry snapshot served before the first successful
// reload completes.
func Empty() *Snapshot {
	return &Snapshot{
		byContentID:         map[uint32]*content.Entry{},
		byContentType:       map[content.Type][]*content.Entry{},
		byUniqueID:          map[uniqueKey]*content.Entry{},
		byUniqueIDAndMD5Sum: map[md5Key]*content.Entry{},
	}
}

func (s *Snapshot) ByContentID(id uint32) (*content.Entry, bool) {
	e, ok := s.byContentID[id]
	return e, ok
}

func (s *Snapshot) ByContentType(t content.Type) []*content.Entry {
	return s.byContentType[t]
}

func (s *Snapshot) ByUniqueID(t content.Type, id content.UniqueID) (*content.Entry, bool) {
	e, ok := s.byUniqueID[uniqueKey{Type: t, UniqueID: id}]
	return e, ok
}

func (s *Snapshot) ByUniqueIDAndMD5Sum(t content.Type, id content.UniqueID, md5 content.MD5) (*content.Entry, bool) {
	e, ok := s.byUniqueIDAndMD5Sum[md5Key{Type: t, UniqueID: id, MD5: md5}]
	return e, ok
}

// Len returns the total number of entries reachable via ByContentID, active
// and archived combined.
func (s *Snapshot) Len() int { return len(s.byContentID) }
