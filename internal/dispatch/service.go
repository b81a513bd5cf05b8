// Package dispatch submits the device script job in fixed-size batches.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/portal"
	"remoteiot-pipeline/internal/stage"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/sheet"
	"remoteiot-pipeline/pkg/utils"
)

// Summary counts what a dispatch run did.
type Summary struct {
	Batches   int
	Submitted int
	Failed    int
	Executed  int
}

// Service is the dispatch-jobs stage.
type Service struct {
	cfg       config.DispatchJobs
	portalCfg config.Portal
	logger    *logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewService creates the dispatch-jobs stage.
func NewService(cfg config.DispatchJobs, portalCfg config.Portal, log *logger.Logger) *Service {
	return &Service{cfg: cfg, portalCfg: portalCfg, logger: log, sleep: utils.Sleep}
}

// Name returns the stage name.
func (s *Service) Name() string { return common.StageDispatchJobs }

// Marker returns the stage completion marker.
func (s *Service) Marker() string { return common.MarkerDispatchJobs }

// Execute reads the device list and submits one script job per batch.
// A failed batch is logged and skipped; the next batch still runs.
func (s *Service) Execute(ctx context.Context, p stage.Portal) (stage.Outcome, error) {
	var outcome stage.Outcome

	devices, err := ReadDevices(s.cfg.InputPath)
	if err != nil {
		return outcome, err
	}

	summary, err := s.Dispatch(ctx, p, devices, &outcome)
	outcome.Detail = fmt.Sprintf("%d/%d batches submitted, %d devices executed",
		summary.Submitted, summary.Batches, summary.Executed)
	return outcome, err
}

// Dispatch partitions devices and submits each batch, persisting the executed
// list after every successful submission.
func (s *Service) Dispatch(ctx context.Context, p stage.Portal, devices []string, outcome *stage.Outcome) (Summary, error) {
	size := BatchSize(s.cfg.DeviceCount)
	batches := Partition(devices, size)
	summary := Summary{Batches: len(batches)}

	s.logger.Info("Dispatching batches",
		logger.IntField("devices", len(devices)),
		logger.IntField("batch_size", size),
		logger.IntField("batches", len(batches)))

	executed := make([]string, 0, len(devices))
	for i, batch := range batches {
		if !utils.ShouldContinue(ctx, s.logger) {
			return summary, ctx.Err()
		}

		spec := portal.JobSpec{
			Name:    s.portalCfg.ScriptJobName,
			Devices: batch,
			Script:  s.portalCfg.ScriptName,
			Reload:  true,
		}
		if err := p.CreateBatchJob(ctx, spec); err != nil {
			summary.Failed++
			s.logger.Error("Failed to execute batch job", logger.IntField("batch", i+1), logger.ErrorField(err))
			outcome.Warn("batch %d skipped: %v", i+1, err)
		} else {
			summary.Submitted++
			executed = append(executed, batch...)
			summary.Executed = len(executed)
			if err := WriteExecuted(s.cfg.OutputPath, executed); err != nil {
				s.logger.Error("Failed to save executed devices", logger.ErrorField(err))
				outcome.Warn("executed list not saved: %v", err)
			}
			s.logger.Info("Batch executed", logger.IntField("batch", i+1))
		}

		if i < len(batches)-1 {
			if err := s.sleep(ctx, s.cfg.BatchDelayDuration()); err != nil {
				return summary, err
			}
		}
	}
	return summary, nil
}

// ReadDevices loads the non-empty Device Name values of the input table.
func ReadDevices(path string) ([]string, error) {
	table, err := sheet.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device list: %w", err)
	}
	names, err := table.Column(common.ColumnDeviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to read device list %s: %w", path, err)
	}
	devices := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			devices = append(devices, n)
		}
	}
	return devices, nil
}

// WriteExecuted rewrites the executed-devices list.
func WriteExecuted(path string, executed []string) error {
	t := sheet.New(common.ColumnExecutedDevices)
	for _, d := range executed {
		t.Append(d)
	}
	return sheet.Write(path, t)
}
