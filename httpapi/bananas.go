package httpapi

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/OpenTTD/bananas-server/internal/safeid"
)

// handleBananas implements spec.md §4.8's balancer endpoint: one decimal
// content id per line in, one CSV line per resolvable id out.
func (s *Server) handleBananas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.Catalog.Current()
	https := r.TLS != nil || (s.TrustForwardedProto && r.Header.Get("X-Forwarded-Proto") == "https")

	var out strings.Builder
	scanner := bufio.NewScanner(io.LimitReader(r.Body, 1<<20))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			continue
		}
		entry, ok := snap.ByContentID(uint32(id))
		if !ok {
			continue
		}

		base := s.CDN.Pick()
		if https {
			base = strings.Replace(base, "http://", "https://", 1)
		}
		filename := safeid.Filename(entry.UniqueID.Hex(), entry.Name, entry.Version) + ".tar.gz"
		url := fmt.Sprintf("%s/%s/%s/%s/%s", strings.TrimRight(base, "/"),
			entry.ContentType.FolderName(), entry.UniqueID.Hex(), entry.MD5Sum.Hex(), filename)

		fmt.Fprintf(&out, "%d,%d,%d,%s\n", entry.ContentID, uint8(entry.ContentType), entry.FileSize, url)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out.String())
}
