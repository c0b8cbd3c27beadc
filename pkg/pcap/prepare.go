package pcap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// PreparedSuffix names the private copy of a capture that already sits in
// the trace dir.
const PreparedSuffix = ".prepared.pcap"

// Prepare places a copy of the capture at src in traceDir, decompressing
// .gz files on the way, and returns the path of the copy. The returned path
// never equals src.
func Prepare(src, traceDir string) (string, error) {
	if err := os.MkdirAll(traceDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create trace directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open capture: %w", err)
	}
	defer in.Close()

	var r io.Reader = in
	name := filepath.Base(src)
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return "", fmt.Errorf("failed to open gzip stream %s: %w", src, err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	dst := filepath.Join(traceDir, name)
	if same, _ := samePath(src, dst); same {
		// Later steps rewrite the copy in place; the source stays untouched.
		dst = filepath.Join(traceDir, strings.TrimSuffix(name, ".pcap")+PreparedSuffix)
	}

	tmp, err := os.CreateTemp(traceDir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create prepared capture: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to copy capture %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move prepared capture: %w", err)
	}
	return dst, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
