// Package pcap prepares capture files for the trace tool: discovery,
// decompression and loopback cleaning.
package pcap

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// MPTCPPrefix marks a capture holding multipath traffic.
const MPTCPPrefix = "mptcp"

// Discover walks dir and returns the .pcap and .pcap.gz files whose name
// contains pattern, in lexical order. Other files are returned in skipped.
// Subdirectories listed in exclude, such as the trace dir holding prepared
// copies, are not entered.
func Discover(dir, pattern string, exclude ...string) (found, skipped []string, err error) {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		if abs, err := filepath.Abs(e); err == nil {
			excluded[abs] = true
		}
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == dir {
				return nil
			}
			if abs, err := filepath.Abs(path); err == nil && excluded[abs] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.Contains(d.Name(), pattern) {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".pcap") || strings.HasSuffix(d.Name(), ".pcap.gz") {
			found = append(found, path)
		} else {
			skipped = append(skipped, path)
		}
		return nil
	})
	sort.Strings(found)
	return found, skipped, err
}

// IsMPTCP reports whether a capture should go through the multipath tracer.
func IsMPTCP(path string) bool {
	return strings.HasPrefix(filepath.Base(path), MPTCPPrefix)
}

// BaseName returns the capture name without directory and extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, ".pcap")
}
