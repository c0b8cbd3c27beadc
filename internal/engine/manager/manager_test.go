package manager

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"MPSpectra/internal/config"
	core "MPSpectra/internal/core/model"
	"MPSpectra/internal/metrics"
	"MPSpectra/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metadata = `MPTCP connection 0 with id 2
	Subflow 0 with wscale : 6 0 IPv4 sport 59570 dport 443 saddr 192.168.1.10 daddr 194.78.99.114
`

type fakeTracer struct{}

func (fakeTracer) Trace(_ context.Context, pcapPath, workDir string) ([]byte, error) {
	if strings.Contains(pcapPath, "broken") {
		return nil, errors.New("tracer crashed")
	}
	if strings.Contains(pcapPath, "panic") {
		panic("unexpected capture")
	}
	seq := "1.0,100,1,1,110,-1\n2.0,150,1,1,160,-1\n"
	if err := os.WriteFile(filepath.Join(workDir, "c2s_seq_2.csv"), []byte(seq), 0644); err != nil {
		return nil, err
	}
	return []byte(metadata), nil
}

type recordingWriter struct {
	mu    sync.Mutex
	pcaps []string
	err   error
}

func (w *recordingWriter) Name() string { return "recording" }

func (w *recordingWriter) Write(_ context.Context, result *core.TraceResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pcaps = append(w.pcaps, result.Pcap)
	return w.err
}

func setup(t *testing.T, names ...string) (*config.Config, []string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Input.Dir = filepath.Join(root, "in")
	cfg.Input.TraceDir = filepath.Join(root, "traces")
	cfg.Analyzer.NumWorkers = 3
	require.NoError(t, os.MkdirAll(cfg.Input.Dir, 0755))

	var files []string
	for _, name := range names {
		path := filepath.Join(cfg.Input.Dir, name)
		require.NoError(t, os.WriteFile(path, []byte("capture"), 0644))
		files = append(files, path)
	}
	return cfg, files
}

func TestQueue(t *testing.T) {
	q := NewQueue([]string{"a", "b", "c"})
	assert.Equal(t, 3, q.Len())
	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestRunIsolatesFailures(t *testing.T) {
	cfg, files := setup(t, "mptcp_good.pcap", "mptcp_broken.pcap", "mptcp_panic.pcap", "tcp_plain.pcap", "mptcp_other.pcap")
	w := &recordingWriter{}
	m := metrics.New()

	summary := NewManager(cfg, fakeTracer{}, []model.Writer{w}, m).Run(context.Background(), files)

	assert.Equal(t, Summary{OK: 2, Failed: 2, Skipped: 1}, summary)
	assert.ElementsMatch(t, []string{"mptcp_good", "mptcp_other"}, w.pcaps)
	count, err := testutil.GatherAndCount(m.Registry(), "mpspectra_files_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "one series per outcome")
}

func TestRunWriterFailureIsNotFileFailure(t *testing.T) {
	cfg, files := setup(t, "mptcp_good.pcap")
	w := &recordingWriter{err: errors.New("disk full")}

	summary := NewManager(cfg, fakeTracer{}, []model.Writer{w}, nil).Run(context.Background(), files)
	assert.Equal(t, Summary{OK: 1}, summary)
}

func TestRunPurge(t *testing.T) {
	cfg, files := setup(t, "mptcp_good.pcap")
	cfg.Analyzer.Purge = true

	NewManager(cfg, fakeTracer{}, nil, nil).Run(context.Background(), files)

	_, err := os.Stat(filepath.Join(cfg.Input.TraceDir, "mptcp_good.pcap"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(files[0])
	assert.NoError(t, err, "the input capture is never removed")
}

func TestRunCancelled(t *testing.T) {
	cfg, files := setup(t, "mptcp_a.pcap", "mptcp_b.pcap")
	w := &recordingWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := NewManager(cfg, fakeTracer{}, []model.Writer{w}, nil).Run(ctx, files)
	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, w.pcaps)
}

type removingTracer struct{ fakeTracer }

func (r removingTracer) Trace(ctx context.Context, pcapPath, workDir string) ([]byte, error) {
	if err := os.Remove(pcapPath); err != nil {
		return nil, err
	}
	return r.fakeTracer.Trace(ctx, pcapPath, workDir)
}

func TestRunPurgeFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	cfg, files := setup(t, "mptcp_good.pcap")
	cfg.Analyzer.Purge = true

	summary := NewManager(cfg, removingTracer{}, nil, nil).Run(context.Background(), files)
	assert.Equal(t, Summary{OK: 1}, summary)
	assert.Contains(t, buf.String(), "failed to purge prepared capture")
}
