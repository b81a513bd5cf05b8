// Package download finds files the browser has finished saving.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/utils"
)

// partialSuffix marks a download Chrome has not finished writing.
const partialSuffix = ".crdownload"

// ErrTimeout is returned when no matching download completed in time.
var ErrTimeout = errors.New("download not completed before timeout")

// Matcher selects candidate file names.
type Matcher func(name string) bool

// DeviceExport matches the portal's device list export, "Devices*.csv".
func DeviceExport(name string) bool {
	return strings.HasPrefix(name, "Devices") && strings.HasSuffix(name, ".csv")
}

// JobsExport matches the portal's jobs table export: any .csv whose name contains "jobs".
func JobsExport(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "jobs") && strings.HasSuffix(lower, ".csv")
}

// Latest returns the most recently modified regular file in dir that matches,
// is not a partial download, was modified no earlier than since, and is readable.
// It returns "" when no such file exists yet.
func Latest(dir string, since time.Time, match Matcher) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var (
		latest    string
		latestMod time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, partialSuffix) || !match(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(since) {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(dir, name)
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", nil
	}
	if err := readable(latest); err != nil {
		return "", nil
	}
	return latest, nil
}

// Wait polls dir once per interval until Latest finds a file or timeout elapses.
func Wait(ctx context.Context, log *logger.Logger, dir string, since time.Time, timeout, interval time.Duration, match Matcher) (string, error) {
	log.Info("Waiting for download to complete",
		logger.StringField("dir", dir),
		logger.DurationField("timeout", timeout))

	var found string
	err := utils.Poll(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		path, err := Latest(dir, since, match)
		if err != nil {
			log.Debug("Download dir not readable yet", logger.ErrorField(err))
			return false, nil
		}
		found = path
		return path != "", nil
	})
	if errors.Is(err, utils.ErrTimeout) {
		return "", ErrTimeout
	}
	if err != nil {
		return "", err
	}

	log.Info("Download completed", logger.StringField("file", found))
	return found, nil
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, 10)
	if _, err := f.Read(buf); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
