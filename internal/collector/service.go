// Package collector runs the version check job, classifies its results and
// retires processed devices from the tracking table.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/download"
	"remoteiot-pipeline/internal/portal"
	"remoteiot-pipeline/internal/stage"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/sheet"
	"remoteiot-pipeline/pkg/utils"
)

// Service is the collect-results stage.
type Service struct {
	cfg          config.CollectResults
	portalCfg    config.Portal
	trackingPath string
	logger       *logger.Logger
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewService creates the collect-results stage.
func NewService(cfg config.CollectResults, portalCfg config.Portal, trackingPath string, log *logger.Logger) *Service {
	return &Service{
		cfg:          cfg,
		portalCfg:    portalCfg,
		trackingPath: trackingPath,
		logger:       log,
		now:          time.Now,
		sleep:        utils.Sleep,
	}
}

// Name returns the stage name.
func (s *Service) Name() string { return common.StageCollectResults }

// Marker returns the stage completion marker.
func (s *Service) Marker() string { return common.MarkerCollectResults }

// DownloadDir is where the browser saves the jobs export.
func (s *Service) DownloadDir() string { return s.cfg.DownloadDir }

// Execute submits the status check, waits for it to run, exports the jobs
// table and post-processes it. Only an unreadable input table aborts.
func (s *Service) Execute(ctx context.Context, p stage.Portal) (stage.Outcome, error) {
	var outcome stage.Outcome

	input, err := sheet.Read(s.cfg.InputPath)
	if err != nil {
		return outcome, fmt.Errorf("failed to read device list: %w", err)
	}
	devices, err := input.Distinct(common.ColumnDeviceName)
	if err != nil {
		return outcome, fmt.Errorf("failed to read device list %s: %w", s.cfg.InputPath, err)
	}

	spec := portal.JobSpec{
		Name:    s.portalCfg.StatusJobName,
		Devices: devices,
		Command: s.portalCfg.StatusCommand,
	}
	if err := p.CreateBatchJob(ctx, spec); err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		s.logger.Error("Failed to submit status check job", logger.ErrorField(err))
		outcome.Warn("status check not submitted: %v", err)
		return outcome, nil
	}

	s.logger.Info("Waiting for status check job", logger.DurationField("wait", s.cfg.JobWait))
	if err := s.sleep(ctx, s.cfg.JobWait); err != nil {
		return outcome, err
	}

	file, err := s.WaitForJobsFile(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		s.logger.Warn("No valid result file found", logger.ErrorField(err))
		outcome.Warn("jobs export not downloaded: %v", err)
		return outcome, nil
	}
	s.logger.Info("Processing latest file", logger.StringField("file", file))

	s.classify(file, &outcome)
	removed := s.retireProcessed(input, &outcome)

	outcome.Detail = fmt.Sprintf("%d devices checked, %d removed from tracking", len(devices), removed)
	return outcome, nil
}

// WaitForJobsFile triggers the jobs export and waits for the browser to save it.
func (s *Service) WaitForJobsFile(ctx context.Context, p stage.Portal) (string, error) {
	// Allow for coarse file system timestamps.
	triggered := s.now().Add(-time.Second)
	if err := p.ExportJobs(ctx); err != nil {
		return "", fmt.Errorf("failed to export jobs: %w", err)
	}
	return download.Wait(ctx, s.logger, s.cfg.DownloadDir, triggered, s.cfg.DownloadTimeout, s.cfg.PollInterval, download.JobsExport)
}

func (s *Service) classify(file string, outcome *stage.Outcome) {
	jobs, err := sheet.ReadCSV(file)
	if err != nil {
		s.logger.Error("Failed to load jobs export", logger.ErrorField(err))
		outcome.Warn("jobs export unreadable: %v", err)
		return
	}
	if missing := MissingColumns(jobs); len(missing) > 0 {
		s.logger.Warn("Jobs export lacks columns, affected rows classified as Failed", logger.StringsField("columns", missing))
		outcome.Warn("jobs export missing columns %v", missing)
	}
	classified := ClassifyTable(jobs, s.portalCfg.ExpectedVersion)
	if err := sheet.Write(s.cfg.ClassifiedPath, classified); err != nil {
		s.logger.Error("Failed to save classified results", logger.ErrorField(err))
		outcome.Warn("classified results not saved: %v", err)
		return
	}
	s.logger.Info("Updated output file saved", logger.StringField("path", s.cfg.ClassifiedPath))
}

func (s *Service) retireProcessed(input *sheet.Table, outcome *stage.Outcome) int {
	filtered, err := FilterByJobName(input, s.portalCfg.JobMarker)
	if err != nil {
		s.logger.Error("Failed to filter device list", logger.ErrorField(err))
		outcome.Warn("%v", err)
		return 0
	}
	if err := sheet.Write(s.cfg.NewOutputPath, filtered); err != nil {
		s.logger.Error("Failed to save filtered device list", logger.ErrorField(err))
		outcome.Warn("filtered device list not saved: %v", err)
		return 0
	}

	saved, err := sheet.Read(s.cfg.NewOutputPath)
	if err != nil {
		s.logger.Error("Failed to reload filtered device list", logger.ErrorField(err))
		outcome.Warn("%v", err)
		return 0
	}
	processed, err := saved.Distinct(common.ColumnDeviceName)
	if err != nil {
		s.logger.Error("Failed to read processed devices", logger.ErrorField(err))
		outcome.Warn("%v", err)
		return 0
	}

	removed, err := UpdateTracking(s.trackingPath, processed)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Warn("Tracking file not found", logger.StringField("path", s.trackingPath))
		outcome.Warn("tracking file not found: %s", s.trackingPath)
	case err != nil:
		s.logger.Error("Error updating tracking file", logger.ErrorField(err))
		outcome.Warn("tracking file not updated: %v", err)
	default:
		s.logger.Info("Processed devices removed from tracking file",
			logger.IntField("processed", len(processed)),
			logger.IntField("removed", removed))
	}
	return removed
}

// UpdateTracking removes the processed devices from the tracking table at path.
// Devices already absent are ignored, so repeating a call changes nothing.
func UpdateTracking(path string, processed []string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	tracking, err := sheet.Read(path)
	if err != nil {
		return 0, err
	}
	updated, removed, err := tracking.Without(common.ColumnDeviceName, processed)
	if err != nil {
		return 0, err
	}
	if err := sheet.Write(path, updated); err != nil {
		return 0, err
	}
	return removed, nil
}
