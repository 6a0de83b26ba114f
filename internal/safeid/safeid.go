// Package safeid implements the filename-sanitizing helper used when the
// HTTP balancer (httpapi) builds CDN download URLs.
/*
 * Grounded on the original bananas_server's helpers/safe_filename.py.
 */
package safeid

import "strings"

// safeName keeps [A-Za-z0-9.], coalesces any run of other characters into a
// single underscore, and trims leading/trailing '.' and '_'.
func safeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		default:
			s := b.String()
			if len(s) > 0 && s[len(s)-1] != '_' {
				b.WriteByte('_')
			}
		}
	}

	return strings.Trim(b.String(), "._")
}

// Filename returns the "{uniqueHex}-{safe(name)}-{safe(version)}" filename
// used in CDN download URLs, e.g. "01020304-opengfx-0.6.1".
func Filename(uniqueHex, name, version string) string {
	return uniqueHex + "-" + safeName(name) + "-" + safeName(version)
}
