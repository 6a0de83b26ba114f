// Package regions holds the static region taxonomy used to expand a content
// entry's region codes into listing tags (spec.md §3 "Regions").
package regions

import "strings"

// Region is one node of the static taxonomy: a human name and an optional
// parent code to walk towards the root.
type Region struct {
	Name   string
	Parent string
}

// table is a small, static taxonomy. It is intentionally not exhaustive:
// BaNaNaS regions map roughly to continents and a handful of sub-regions
// OpenTTD content uses in practice.
var table = map[string]Region{
	"world":   {Name: "World"},
	"europe":  {Name: "Europe", Parent: "world"},
	"nl":      {Name: "Netherlands", Parent: "europe"},
	"de":      {Name: "Germany", Parent: "europe"},
	"uk":      {Name: "United Kingdom", Parent: "europe"},
	"na":      {Name: "North America", Parent: "world"},
	"us":      {Name: "United States", Parent: "na"},
	"ca":      {Name: "Canada", Parent: "na"},
	"asia":    {Name: "Asia", Parent: "world"},
	"jp":      {Name: "Japan", Parent: "asia"},
	"oceania": {Name: "Oceania", Parent: "world"},
	"au":      {Name: "Australia", Parent: "oceania"},
}

// Tags flattens a list of region codes into the set of lowercased ancestor
// names (including the region's own name), as spec.md §3/§4.6 describes for
// SERVER_INFO tag synthesis. Unknown codes are passed through verbatim,
// lowercased, so content with a region not yet in the taxonomy still gets a
// usable tag instead of being silently dropped.
func Tags(codes []string) []string {
	seen := make(map[string]struct{})
	var tags []string

	add := func(s string) {
		s = strings.ToLower(s)
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		tags = append(tags, s)
	}

	for _, code := range codes {
		region, ok := table[strings.ToLower(code)]
		if !ok {
			add(code)
			continue
		}
		add(region.Name)
		parent := region.Parent
		for parent != "" {
			p, ok := table[parent]
			if !ok {
				break
			}
			add(p.Name)
			parent = p.Parent
		}
	}

	return tags
}
