// Package inventory exports the portal's device list and keeps the
// tracking table of online devices.
package inventory

import (
	"context"
	"fmt"
	"time"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/download"
	"remoteiot-pipeline/internal/entity"
	"remoteiot-pipeline/internal/stage"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/sheet"
)

// Service is the fetch-devices stage.
type Service struct {
	cfg    config.FetchDevices
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates the fetch-devices stage.
func NewService(cfg config.FetchDevices, log *logger.Logger) *Service {
	return &Service{cfg: cfg, logger: log, now: time.Now}
}

// Name returns the stage name.
func (s *Service) Name() string { return common.StageFetchDevices }

// Marker returns the stage completion marker.
func (s *Service) Marker() string { return common.MarkerFetchDevices }

// DownloadDir is where the browser saves the device export.
func (s *Service) DownloadDir() string { return s.cfg.DownloadPath }

// Execute exports the device list and writes the online devices to the tracking table.
// A missing download or Status column is reported as a warning.
func (s *Service) Execute(ctx context.Context, p stage.Portal) (stage.Outcome, error) {
	var outcome stage.Outcome

	// Allow for coarse file system timestamps.
	triggered := s.now().Add(-time.Second)
	if err := p.ExportDevices(ctx); err != nil {
		s.logger.Error("Error downloading device list", logger.ErrorField(err))
		outcome.Warn("device export failed: %v", err)
		return outcome, nil
	}

	file, err := download.Wait(ctx, s.logger, s.cfg.DownloadPath, triggered, s.cfg.DownloadTimeout, s.cfg.PollInterval, download.DeviceExport)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		s.logger.Warn("Download failed. No file found.", logger.ErrorField(err))
		outcome.Warn("device export not downloaded: %v", err)
		return outcome, nil
	}

	online, err := s.saveOnline(file)
	if err != nil {
		s.logger.Warn("Tracking table not written", logger.ErrorField(err))
		outcome.Warn("%v", err)
		return outcome, nil
	}

	outcome.Detail = fmt.Sprintf("%d online devices tracked", online)
	return outcome, nil
}

func (s *Service) saveOnline(file string) (int, error) {
	devices, err := sheet.ReadCSV(file)
	if err != nil {
		return 0, fmt.Errorf("failed to load device list: %w", err)
	}
	s.logger.Info("Device list loaded successfully", logger.StringField("file", file), logger.IntField("devices", devices.Len()))

	online, err := FilterOnline(devices)
	if err != nil {
		return 0, err
	}

	path := s.cfg.TrackingPath()
	if err := sheet.Write(path, online); err != nil {
		return 0, fmt.Errorf("failed to save online devices: %w", err)
	}
	s.logger.Info("Online devices saved", logger.StringField("path", path), logger.IntField("devices", online.Len()))
	return online.Len(), nil
}

// FilterOnline keeps the rows whose Status is "online", ignoring case.
func FilterOnline(devices *sheet.Table) (*sheet.Table, error) {
	if !devices.HasColumn(common.ColumnStatus) {
		return nil, fmt.Errorf("%w: %q in downloaded file", sheet.ErrColumnNotFound, common.ColumnStatus)
	}
	return devices.Filter(func(r sheet.Row) bool {
		return entity.Device{Name: r.Get(common.ColumnDeviceName), Status: r.Get(common.ColumnStatus)}.IsOnline()
	}), nil
}
