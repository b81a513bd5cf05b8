package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remoteiot-pipeline/pkg/logger"
)

func touch(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("Device Name,Status\n"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestMatchers(t *testing.T) {
	assert.True(t, DeviceExport("Devices_2024-01-01.csv"))
	assert.False(t, DeviceExport("devices.csv"))
	assert.False(t, DeviceExport("Devices.xlsx"))

	assert.True(t, JobsExport("Jobs (3).csv"))
	assert.True(t, JobsExport("batch_jobs.CSV"))
	assert.False(t, JobsExport("Devices.csv"))
}

func TestLatestPicksNewestMatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, dir, "jobs_old.csv", now.Add(-2*time.Minute))
	want := touch(t, dir, "jobs_new.csv", now.Add(-time.Minute))
	touch(t, dir, "Devices.csv", now)

	got, err := Latest(dir, time.Time{}, JobsExport)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLatestSkipsPartialAndStaleFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	touch(t, dir, "jobs.csv.crdownload", now)
	touch(t, dir, "jobs_stale.csv", now.Add(-time.Hour))

	got, err := Latest(dir, now.Add(-time.Minute), JobsExport)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLatestMissingDir(t *testing.T) {
	_, err := Latest(filepath.Join(t.TempDir(), "missing"), time.Time{}, JobsExport)
	assert.Error(t, err)
}

func TestWaitFindsLateFile(t *testing.T) {
	dir := t.TempDir()
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "jobs.csv"), []byte("Status\n"), 0o644)
	}()

	got, err := Wait(context.Background(), logger.NewNop(), dir, time.Time{}, 2*time.Second, 10*time.Millisecond, JobsExport)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "jobs.csv"), got)
}

func TestWaitTimeout(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "jobs.csv.crdownload", time.Now())

	_, err := Wait(context.Background(), logger.NewNop(), dir, time.Time{}, 30*time.Millisecond, 10*time.Millisecond, JobsExport)
	assert.ErrorIs(t, err, ErrTimeout)
}
