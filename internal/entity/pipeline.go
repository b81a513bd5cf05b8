package entity

import "time"

// StageResult records how one stage process ended.
type StageResult struct {
	Stage    string
	State    string
	ExitCode int
	Warnings int
	Detail   string
	Proceed  bool
	Duration time.Duration
}

// PipelineRun summarises one orchestrator run.
type PipelineRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageResult
	Completed  bool
	HaltedAt   string
}
