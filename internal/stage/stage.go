// Package stage runs one pipeline stage inside an authenticated browser
// session and reports how it ended.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"remoteiot-pipeline/internal/portal"
)

// State is a stage's lifecycle position.
type State string

const (
	StateStart         State = "start"
	StateAuthenticated State = "authenticated"
	StateCompleted     State = "completed"
	StateAborted       State = "aborted"
)

// ErrAborted is returned by stage commands whose run did not complete.
var ErrAborted = errors.New("stage aborted")

// ErrNoReport is returned when process output carries no completion report.
var ErrNoReport = errors.New("no completion report in output")

// Portal is the part of the portal a stage body drives after login.
type Portal interface {
	ExportDevices(ctx context.Context) error
	CreateBatchJob(ctx context.Context, spec portal.JobSpec) error
	ExportJobs(ctx context.Context) error
}

// Stage is the work one process does once authenticated.
// Execute returns an error only for unrecoverable setup failures;
// skipped work is reported through Outcome.Warnings.
type Stage interface {
	Name() string
	Marker() string
	Execute(ctx context.Context, p Portal) (Outcome, error)
}

// Downloader is implemented by stages that expect browser downloads.
type Downloader interface {
	DownloadDir() string
}

// Outcome is what a completed stage body reports.
type Outcome struct {
	Warnings []string
	Detail   string
}

// Warn records a non-fatal problem.
func (o *Outcome) Warn(format string, args ...interface{}) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// Report is the structured completion status a stage prints on stdout.
type Report struct {
	Stage    string `json:"stage"`
	State    State  `json:"state"`
	Marker   string `json:"marker,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	Warnings int    `json:"warnings"`
	Detail   string `json:"detail,omitempty"`
}

// Completed reports whether the stage completed and carries exactly marker.
func (r Report) Completed(marker string) bool {
	return r.State == StateCompleted && r.Marker == marker
}

// ExitCode maps the report state to the process exit code.
func (r Report) ExitCode() int {
	if r.State == StateCompleted {
		return 0
	}
	return 1
}

// WriteReport prints r as a single JSON line.
func WriteReport(w io.Writer, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// ParseReport finds the last JSON report line in a process's stdout.
func ParseReport(output string) (Report, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var r Report
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			continue
		}
		if r.Stage == "" || r.State == "" {
			continue
		}
		return r, nil
	}
	return Report{}, ErrNoReport
}
