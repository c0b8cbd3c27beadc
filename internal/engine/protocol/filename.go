package protocol

import (
	"fmt"
	"path/filepath"
	"strings"

	"MPSpectra/internal/core/model"
)

const (
	// SeqMarker identifies per-direction sequence files, e.g. c2s_seq_2.csv.
	SeqMarker = "_seq_"
	// StatsPrefix identifies per-connection stats files, e.g. stats_2.csv.
	StatsPrefix = "stats_"
)

// IsSeqFile reports whether name is a tracer sequence file.
func IsSeqFile(name string) bool {
	return strings.Contains(name, SeqMarker) && strings.HasSuffix(name, ".csv")
}

// IsStatsFile reports whether name is a tracer stats file.
func IsStatsFile(name string) bool {
	return strings.HasPrefix(name, StatsPrefix) && strings.HasSuffix(name, ".csv")
}

// ConnectionID returns the connection id encoded in a tracer file name: the
// text between the last '_' and the last '.'.
func ConnectionID(name string) (string, error) {
	name = filepath.Base(name)
	underscore := strings.LastIndex(name, "_")
	dot := strings.LastIndex(name, ".")
	if underscore < 0 || dot < 0 || dot <= underscore+1 {
		return "", fmt.Errorf("no connection id in file name %q", name)
	}
	return name[underscore+1 : dot], nil
}

// DirectionOf returns the direction encoded in the prefix of a sequence file name.
func DirectionOf(name string) model.Direction {
	name = filepath.Base(name)
	if i := strings.Index(name, "_"); i > 0 && name[:i] == model.ServerToClient.Short() {
		return model.ServerToClient
	}
	return model.ClientToServer
}
