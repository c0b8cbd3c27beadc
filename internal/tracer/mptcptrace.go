// Package tracer runs mptcptrace on a single pcap file.
package tracer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	core "MPSpectra/internal/core/model"
)

// ToolError reports a failure of the external trace tool on one file.
type ToolError struct {
	Tool   string
	Pcap   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed on %s: %v", e.Tool, e.Pcap, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is makes every ToolError match core.ErrExternalTool.
func (e *ToolError) Is(target error) bool { return target == core.ErrExternalTool }

// MPTCPTrace invokes the mptcptrace binary.
type MPTCPTrace struct {
	Path string
	// Args are passed after "-f <pcap>".
	Args []string
}

// New returns a tracer for the binary at path.
func New(path string, args []string) *MPTCPTrace {
	return &MPTCPTrace{Path: path, Args: args}
}

// Trace runs the tool with workDir as its working directory so the CSV
// files it emits land there. The process is killed when ctx is done.
func (t *MPTCPTrace) Trace(ctx context.Context, pcapPath, workDir string) ([]byte, error) {
	abs, err := filepath.Abs(pcapPath)
	if err != nil {
		return nil, &ToolError{Tool: t.Path, Pcap: pcapPath, Err: err}
	}

	args := append([]string{"-f", abs}, t.Args...)
	cmd := exec.CommandContext(ctx, t.Path, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", ctx.Err(), err)
		}
		return stdout.Bytes(), &ToolError{
			Tool:   filepath.Base(t.Path),
			Pcap:   pcapPath,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}
