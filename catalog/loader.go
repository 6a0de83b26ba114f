package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenTTD/bananas-server/content"
	"github.com/OpenTTD/bananas-server/internal/cos"
	"github.com/OpenTTD/bananas-server/internal/nlog"
	"github.com/OpenTTD/bananas-server/storage"
)

// maxContentIDGroup is the largest number of entries allowed to share a
// 24-bit base candidate (spec.md §4.3 "stable content id assignment"); the
// member index goes into the 8 high bits of a content id, and a larger
// group aborts the whole reload rather than silently reassigning ids.
const maxContentIDGroup = 255

// Loader builds a Snapshot from a YAML content tree plus a storage.Backend
// used only to resolve partial md5 references (spec.md §4.3).
type Loader struct {
	IndexRoot string
	Backend   storage.Backend
}

func NewLoader(indexRoot string, backend storage.Backend) *Loader {
	return &Loader{IndexRoot: indexRoot, Backend: backend}
}

type md5MapKey struct {
	Type     content.Type
	UniqueID content.UniqueID
}

type depTriple struct {
	Type     content.Type
	UniqueID content.UniqueID
	MD5      content.MD5
}

type pendingDeps struct {
	entry *content.Entry
	deps  []depTriple
}

// Load walks IndexRoot and returns a fully populated Snapshot, or an error
// if any structural invariant is violated (a >255-member content id group,
// a malformed YAML tree). Per-entry problems (an unresolvable partial md5,
// an oversized record) drop only that entry and are logged, not fatal to
// the reload (spec.md §4.7).
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	md5Map, err := l.buildMD5Mapping(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: building md5 mapping: %w", err)
	}

	errs := &cos.Errs{}
	var entries []*content.Entry
	var pending []pendingDeps

	for _, t := range content.AllTypes {
		typeDir := filepath.Join(l.IndexRoot, t.FolderName())
		uniqueDirs, err := os.ReadDir(typeDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("catalog: listing %s: %w", typeDir, err)
		}

		for _, ud := range uniqueDirs {
			if !ud.IsDir() {
				continue
			}
			uniqueHex := ud.Name()

			global, err := loadYAMLFile(filepath.Join(typeDir, uniqueHex, "global.yaml"))
			if err != nil {
				errs.Add(fmt.Errorf("%s/%s: reading global.yaml: %w", t.FolderName(), uniqueHex, err))
				continue
			}
			if global.bool("blacklisted") {
				continue
			}

			versionsDir := filepath.Join(typeDir, uniqueHex, "versions")
			versionFiles, err := os.ReadDir(versionsDir)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				errs.Add(fmt.Errorf("%s/%s: listing versions: %w", t.FolderName(), uniqueHex, err))
				continue
			}
			sort.Slice(versionFiles, func(i, j int) bool { return versionFiles[i].Name() < versionFiles[j].Name() })

			for _, vf := range versionFiles {
				if vf.IsDir() || !strings.HasSuffix(vf.Name(), ".yaml") {
					continue
				}
				version, err := loadYAMLFile(filepath.Join(versionsDir, vf.Name()))
				if err != nil {
					errs.Add(fmt.Errorf("%s/%s/versions/%s: %w", t.FolderName(), uniqueHex, vf.Name(), err))
					continue
				}
				mergeMissing(version, global)

				entry, deps, err := l.buildEntry(t, uniqueHex, version, md5Map)
				if err != nil {
					errs.Add(fmt.Errorf("%s/%s/versions/%s: %w", t.FolderName(), uniqueHex, vf.Name(), err))
					continue
				}
				entries = append(entries, entry)
				if len(deps) > 0 {
					pending = append(pending, pendingDeps{entry: entry, deps: deps})
				}
			}
		}
	}

	if err := assignContentIDs(entries); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		byContentID:         make(map[uint32]*content.Entry, len(entries)),
		byContentType:       make(map[content.Type][]*content.Entry),
		byUniqueID:          make(map[uniqueKey]*content.Entry),
		byUniqueIDAndMD5Sum: make(map[md5Key]*content.Entry, len(entries)),
	}
	for _, e := range entries {
		snap.byContentID[e.ContentID] = e
		snap.byUniqueIDAndMD5Sum[md5Key{Type: e.ContentType, UniqueID: e.UniqueID, MD5: e.MD5Sum}] = e
		if !e.Archived {
			snap.byContentType[e.ContentType] = append(snap.byContentType[e.ContentType], e)
			snap.byUniqueID[uniqueKey{Type: e.ContentType, UniqueID: e.UniqueID}] = e
		}
	}

	for _, p := range pending {
		for _, d := range p.deps {
			dep, ok := snap.ByUniqueIDAndMD5Sum(d.Type, d.UniqueID, d.MD5)
			if !ok {
				nlog.Warningf("catalog: entry %d: unresolved dependency on %s/%s/%s",
					p.entry.ContentID, d.Type.FolderName(), d.UniqueID.Hex(), d.MD5.Hex())
				continue
			}
			p.entry.Dependencies = append(p.entry.Dependencies, dep.ContentID)
		}
	}

	if errs.Cnt() > 0 {
		nlog.Warningln(errs.Error())
	}
	return snap, nil
}

// assignContentIDs groups entries by their 24-bit md5-tail base candidate,
// orders each group by upload date, and assigns content_id = (i<<24)|base
// (spec.md §4.3). It mutates entries in place.
func assignContentIDs(entries []*content.Entry) error {
	groups := make(map[uint32][]*content.Entry)
	for _, e := range entries {
		base := preContentIDOf(e)
		groups[base] = append(groups[base], e)
	}
	for base, group := range groups {
		if len(group) > maxContentIDGroup {
			return fmt.Errorf("catalog: %d entries collide on content id base 0x%06x, exceeding the %d-entry limit",
				len(group), base, maxContentIDGroup)
		}
		sort.Slice(group, func(i, j int) bool { return group[i].UploadDate.Before(group[j].UploadDate) })
		for i, e := range group {
			e.ContentID = uint32(i)<<24 | base
		}
	}
	return nil
}

func (l *Loader) buildMD5Mapping(ctx context.Context) (map[md5MapKey]map[content.MD5Partial]content.MD5, error) {
	out := make(map[md5MapKey]map[content.MD5Partial]content.MD5)
	for _, t := range content.AllTypes {
		uniqueHexes, err := l.Backend.ListFolder(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", t.FolderName(), err)
		}
		for _, uh := range uniqueHexes {
			ub, err := hexBytes(uh, 4)
			if err != nil {
				continue
			}
			var uid content.UniqueID
			copy(uid[:], ub)

			files, err := l.Backend.ListFolderEntries(ctx, t, uh)
			if err != nil {
				return nil, fmt.Errorf("listing %s/%s: %w", t.FolderName(), uh, err)
			}
			for _, f := range files {
				name := strings.TrimSuffix(f, ".tar.gz")
				mb, err := hexBytes(name, 16)
				if err != nil {
					continue
				}
				var md5 content.MD5
				copy(md5[:], mb)
				var partial content.MD5Partial
				copy(partial[:], mb[:4])

				key := md5MapKey{Type: t, UniqueID: uid}
				if out[key] == nil {
					out[key] = make(map[content.MD5Partial]content.MD5)
				}
				out[key][partial] = md5
			}
		}
	}
	return out, nil
}

// buildEntry implements spec.md §4.3 steps 3-5: field-length validation,
// partial-md5 resolution, compatibility parsing, and the 1400-byte wire
// size check. Dependencies are returned unresolved (as raw triples) since
// resolution requires the full catalog to be loaded first.
func (l *Loader) buildEntry(t content.Type, uniqueHex string, r rawRecord, md5Map map[md5MapKey]map[content.MD5Partial]content.MD5) (*content.Entry, []depTriple, error) {
	name, err := r.requireString("name")
	if err != nil {
		return nil, nil, err
	}
	version, err := r.requireString("version")
	if err != nil {
		return nil, nil, err
	}
	url, _ := r.string("url")
	description, _ := r.string("description")
	fileSize, err := r.uint32("filesize")
	if err != nil {
		return nil, nil, err
	}
	uploadDate, err := r.uploadDate()
	if err != nil {
		return nil, nil, err
	}
	availability, err := r.requireString("availability")
	if err != nil {
		return nil, nil, err
	}

	if len(name) > 31 {
		return nil, nil, fmt.Errorf("name %q exceeds 31 bytes", name)
	}
	if len(version) > 15 {
		return nil, nil, fmt.Errorf("version %q exceeds 15 bytes", version)
	}
	if len(url) > 95 {
		return nil, nil, fmt.Errorf("url exceeds 95 bytes")
	}
	if len(description) > 511 {
		return nil, nil, fmt.Errorf("description exceeds 511 bytes")
	}

	ub, err := hexBytes(uniqueHex, 4)
	if err != nil {
		return nil, nil, fmt.Errorf("unique id %q: %w", uniqueHex, err)
	}
	var uid content.UniqueID
	copy(uid[:], ub)

	partialHex, err := r.requireString("md5sum-partial")
	if err != nil {
		return nil, nil, err
	}
	pb, err := hexBytes(partialHex, 4)
	if err != nil {
		return nil, nil, fmt.Errorf("md5sum-partial %q: %w", partialHex, err)
	}
	var partial content.MD5Partial
	copy(partial[:], pb)

	md5, ok := md5Map[md5MapKey{Type: t, UniqueID: uid}][partial]
	if !ok {
		return nil, nil, fmt.Errorf("no blob matches md5sum-partial %s for unique id %s", partialHex, uniqueHex)
	}

	compat, err := parseCompatibility(r)
	if err != nil {
		return nil, nil, err
	}
	tags, err := classification(r)
	if err != nil {
		return nil, nil, err
	}
	regions := r.stringSlice("regions")
	if len(regions) > 10 {
		return nil, nil, fmt.Errorf("regions list exceeds 10 entries")
	}

	deps, err := parseDependencies(r, md5Map)
	if err != nil {
		return nil, nil, err
	}

	entry := &content.Entry{
		ContentType:     t,
		FileSize:        fileSize,
		Name:            name,
		Version:         version,
		URL:             url,
		Description:     description,
		UniqueID:        uid,
		UploadDate:      uploadDate,
		MD5Sum:          md5,
		Compatibility:   compat,
		Classification:  tags,
		Regions:         regions,
		Archived:        availability != "new-games",
	}

	size, err := wireSize(entry, len(deps))
	if err != nil {
		return nil, nil, err
	}
	if size > 1400 {
		return nil, nil, fmt.Errorf("serialized size %d exceeds 1400 bytes", size)
	}

	return entry, deps, nil
}

func parseDependencies(r rawRecord, md5Map map[md5MapKey]map[content.MD5Partial]content.MD5) ([]depTriple, error) {
	v, ok := r["dependencies"]
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("dependencies: expected a list")
	}

	out := make([]depTriple, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dependencies: expected a mapping entry")
		}
		folder, _ := m["content-type"].(string)
		depType, ok := content.FromFolderName(folder)
		if !ok {
			return nil, fmt.Errorf("dependencies: unknown content-type %q", folder)
		}
		uniqueHex, _ := m["unique-id"].(string)
		ub, err := hexBytes(uniqueHex, 4)
		if err != nil {
			return nil, fmt.Errorf("dependencies: unique-id %q: %w", uniqueHex, err)
		}
		var uid content.UniqueID
		copy(uid[:], ub)

		partialHex, _ := m["md5sum-partial"].(string)
		pb, err := hexBytes(partialHex, 4)
		if err != nil {
			return nil, fmt.Errorf("dependencies: md5sum-partial %q: %w", partialHex, err)
		}
		var partial content.MD5Partial
		copy(partial[:], pb)

		md5, ok := md5Map[md5MapKey{Type: depType, UniqueID: uid}][partial]
		if !ok {
			// Resolution against the catalog (not just the blob tree) happens
			// once the full set of entries is loaded; record the triple even
			// though we can't rule out a dangling reference yet.
			md5 = content.MD5{}
			copy(md5[:4], pb)
		}
		out = append(out, depTriple{Type: depType, UniqueID: uid, MD5: md5})
	}
	return out, nil
}

// preContentIDOf derives the 24-bit base candidate from the little-endian
// integer formed by an entry's last three md5 bytes (spec.md §4.3).
func preContentIDOf(e *content.Entry) uint32 {
	m := e.MD5Sum
	return uint32(m[13]) | uint32(m[14])<<8 | uint32(m[15])<<16
}

// wireSize computes the SERVER_INFO payload size an entry would occupy
// (excluding the 3-byte frame header), mirroring the fields that
// encodeServerInfo writes (spec.md §4.3 step 5).
func wireSize(e *content.Entry, depCount int) (int, error) {
	size := 1 + 4 + 4 // content-type + id + filesize
	size += len(e.Name) + 1
	size += len(e.Version) + 1
	size += len(e.URL) + 1
	size += len(e.Description) + 1
	size += 4 + 16 // unique id + md5sum
	size += 1 + depCount*4
	size += 1 // tag count byte
	for _, tag := range e.Tags() {
		size += len(tag) + 1
	}
	size += 4 // upload date
	return size, nil
}
