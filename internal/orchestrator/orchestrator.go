// Package orchestrator runs the pipeline stages in order and gates each one on
// the previous stage's completion report.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/entity"
	"remoteiot-pipeline/internal/stage"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/telegram"
	"remoteiot-pipeline/pkg/utils"
)

// RunSummary is the outcome of one pipeline run.
type RunSummary = entity.PipelineRun

// StageSpec names a stage executable and the marker that lets the pipeline proceed.
type StageSpec struct {
	Name   string
	Marker string
	Path   string
	Args   []string
}

// Orchestrator runs the configured stages sequentially.
type Orchestrator struct {
	stages   []StageSpec
	executor Executor
	delay    time.Duration
	notifier telegram.Notifier
	logger   *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	newID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sends every run summary through n.
func WithNotifier(n telegram.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// New creates an orchestrator for stages.
func New(stages []StageSpec, executor Executor, delay time.Duration, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:   stages,
		executor: executor,
		delay:    delay,
		logger:   log,
		sleep:    utils.Sleep,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the stages once. A stage proceeds only when it exited 0 and its
// report is completed with the stage's exact marker; otherwise the run halts.
// The returned error is set only when ctx ended the run.
func (o *Orchestrator) Run(ctx context.Context) (RunSummary, error) {
	run := RunSummary{ID: o.newID(), StartedAt: o.now()}
	log := o.logger.With(logger.StringField("run_id", run.ID))
	log.Info("Pipeline run starting", logger.IntField("stages", len(o.stages)))

	var runErr error
	for i, spec := range o.stages {
		if i > 0 {
			log.Info("Waiting before next stage", logger.DurationField("delay", o.delay))
			if err := o.sleep(ctx, o.delay); err != nil {
				run.HaltedAt = spec.Name
				runErr = err
				break
			}
		}

		result := o.runStage(ctx, log, spec, run.ID)
		run.Stages = append(run.Stages, result)
		if !result.Proceed {
			run.HaltedAt = spec.Name
			log.Error("Stage did not complete, halting pipeline", logger.StringField("stage", spec.Name))
			runErr = ctx.Err()
			break
		}
	}

	run.FinishedAt = o.now()
	run.Completed = run.HaltedAt == "" && len(run.Stages) == len(o.stages)
	if run.Completed {
		log.Info("Pipeline run completed", logger.DurationField("duration", run.FinishedAt.Sub(run.StartedAt)))
	}

	o.notify(log, run)
	return run, runErr
}

func (o *Orchestrator) runStage(ctx context.Context, log *logger.Logger, spec StageSpec, runID string) entity.StageResult {
	log = log.With(logger.StringField("stage", spec.Name))
	log.Info("Running stage", logger.StringField("path", spec.Path))

	started := o.now()
	res, err := o.executor.Execute(ctx, spec, []string{common.EnvRunID + "=" + runID})
	result := entity.StageResult{Stage: spec.Name, ExitCode: res.ExitCode, Duration: o.now().Sub(started)}
	if err != nil {
		log.Error("Failed to run stage", logger.ErrorField(err))
		result.State = string(stage.StateAborted)
		result.ExitCode = -1
		result.Detail = err.Error()
		return result
	}

	report, err := stage.ParseReport(res.Stdout)
	if err != nil {
		log.Error("Stage produced no completion report", logger.IntField("exit_code", res.ExitCode), logger.ErrorField(err))
		result.State = string(stage.StateAborted)
		result.Detail = err.Error()
		return result
	}

	result.State = string(report.State)
	result.Warnings = report.Warnings
	result.Detail = report.Detail
	result.Proceed = res.ExitCode == 0 && report.Completed(spec.Marker)

	log.Info("Stage finished",
		logger.StringField("state", result.State),
		logger.IntField("exit_code", res.ExitCode),
		logger.StringField("marker", report.Marker),
		logger.IntField("warnings", report.Warnings))
	return result
}

func (o *Orchestrator) notify(log *logger.Logger, run RunSummary) {
	if o.notifier == nil {
		return
	}
	if err := telegram.SendAll(o.notifier, telegram.FormatPipelineRun(run)); err != nil {
		log.Warn("Failed to send run summary", logger.ErrorField(err))
	}
}

// Stages resolves the stage executables from configuration. When none are
// configured, the three stage binaries are expected next to the orchestrator
// and receive the same config and credentials paths.
// A configured stage without args gets the same run arguments.
func Stages(cfg config.Orchestrator, configPath, credentialsPath string) ([]StageSpec, error) {
	args := []string{"run", "--config", configPath, "--credentials", credentialsPath}

	if len(cfg.Stages) > 0 {
		specs := make([]StageSpec, 0, len(cfg.Stages))
		last := -1
		for _, c := range cfg.Stages {
			marker, ok := common.Markers[c.Name]
			if !ok {
				return nil, fmt.Errorf("unknown stage %q", c.Name)
			}
			pos := slices.Index(common.StageOrder, c.Name)
			if pos <= last {
				return nil, fmt.Errorf("stage %q is out of order", c.Name)
			}
			last = pos
			path, err := utils.ExpandHome(c.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to expand path of stage %q: %w", c.Name, err)
			}
			stageArgs := c.Args
			if len(stageArgs) == 0 {
				stageArgs = args
			}
			specs = append(specs, StageSpec{Name: c.Name, Marker: marker, Path: path, Args: stageArgs})
		}
		return specs, nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate orchestrator binary: %w", err)
	}
	dir := filepath.Dir(self)

	specs := make([]StageSpec, 0, len(common.StageOrder))
	for _, name := range common.StageOrder {
		specs = append(specs, StageSpec{
			Name:   name,
			Marker: common.Markers[name],
			Path:   filepath.Join(dir, name),
			Args:   args,
		})
	}
	return specs, nil
}
