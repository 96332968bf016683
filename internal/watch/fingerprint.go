package watch

import (
	"crypto/sha1" //nolint:gosec // content-addressing only, not a security boundary.
	"encoding/hex"
	"fmt"
	"sort"
)

// RepoFingerprint hashes {rel_path, size, mtime_ns} for every stat,
// sorted by rel_path so the result is stable regardless of walk order.
func RepoFingerprint(stats []FileStat) string {
	sorted := append([]FileStat(nil), stats...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })

	h := sha1.New() //nolint:gosec // see package doc.

	for _, s := range sorted {
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00", s.RelPath, s.Size, s.ModTime)
	}

	return hex.EncodeToString(h.Sum(nil))
}
