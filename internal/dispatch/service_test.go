package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/portal"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/sheet"
)

type fakePortal struct {
	jobs   []portal.JobSpec
	failAt map[int]error
}

func (p *fakePortal) ExportDevices(ctx context.Context) error { return nil }
func (p *fakePortal) ExportJobs(ctx context.Context) error    { return nil }
func (p *fakePortal) CreateBatchJob(ctx context.Context, spec portal.JobSpec) error {
	p.jobs = append(p.jobs, spec)
	return p.failAt[len(p.jobs)]
}

type sleepRecorder struct {
	calls []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return ctx.Err()
}

func newTestService(t *testing.T, devices []string, deviceCount int) (*Service, *sleepRecorder, config.DispatchJobs) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DispatchJobs{
		InputPath:   filepath.Join(dir, "Tracking_online_Devices.xlsx"),
		OutputPath:  filepath.Join(dir, "Executed_Devices.xlsx"),
		BatchDelay:  30,
		DeviceCount: deviceCount,
	}
	input := sheet.New(common.ColumnDeviceName, common.ColumnStatus)
	for _, d := range devices {
		input.Append(d, "online")
	}
	require.NoError(t, sheet.Write(cfg.InputPath, input))

	portalCfg := config.Portal{ScriptJobName: "IotSecurity batch job_automation_execution", ScriptName: "eru_misc.sh"}
	svc := NewService(cfg, portalCfg, logger.NewNop())
	rec := &sleepRecorder{}
	svc.sleep = rec.sleep
	return svc, rec, cfg
}

func readExecuted(t *testing.T, path string) []string {
	t.Helper()
	tbl, err := sheet.Read(path)
	require.NoError(t, err)
	got, err := tbl.Column(common.ColumnExecutedDevices)
	require.NoError(t, err)
	return got
}

func TestExecuteSubmitsEveryBatch(t *testing.T) {
	devices := names(12)
	svc, rec, cfg := newTestService(t, devices, 100)
	p := &fakePortal{}

	outcome, err := svc.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, outcome.Warnings)

	require.Len(t, p.jobs, 2)
	assert.Equal(t, devices[:10], p.jobs[0].Devices)
	assert.Equal(t, devices[10:], p.jobs[1].Devices)
	assert.Equal(t, "eru_misc.sh", p.jobs[0].Script)
	assert.Empty(t, p.jobs[0].Command)
	assert.True(t, p.jobs[0].Reload)

	assert.Equal(t, []time.Duration{30 * time.Second}, rec.calls)
	assert.Equal(t, devices, readExecuted(t, cfg.OutputPath))
}

func TestExecuteSkipsFailedBatch(t *testing.T) {
	devices := names(12)
	svc, _, cfg := newTestService(t, devices, 10)
	p := &fakePortal{failAt: map[int]error{2: errors.New("submit button missing")}}

	outcome, err := svc.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, p.jobs, 3)
	assert.Len(t, outcome.Warnings, 1)

	executed := append(append([]string{}, devices[:5]...), devices[10:]...)
	assert.Equal(t, executed, readExecuted(t, cfg.OutputPath))
}

func TestExecuteAllBatchesFailLeavesNoExecutedFile(t *testing.T) {
	svc, _, cfg := newTestService(t, names(3), 10)
	p := &fakePortal{failAt: map[int]error{1: errors.New("boom")}}

	outcome, err := svc.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, outcome.Warnings, 1)
	assert.NoFileExists(t, cfg.OutputPath)
}

func TestExecuteMissingInputAborts(t *testing.T) {
	svc, _, cfg := newTestService(t, names(1), 10)
	svc.cfg.InputPath = filepath.Join(filepath.Dir(cfg.InputPath), "missing.xlsx")

	_, err := svc.Execute(context.Background(), &fakePortal{})
	assert.Error(t, err)
}

func TestExecuteStopsWhenCancelled(t *testing.T) {
	svc, _, _ := newTestService(t, names(12), 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakePortal{}
	_, err := svc.Execute(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.jobs)
}

func TestReadDevicesSkipsBlankNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.csv")
	tbl := sheet.New(common.ColumnDeviceName)
	tbl.Append("pi-01")
	tbl.Append("  ")
	tbl.Append("pi-02")
	require.NoError(t, sheet.Write(path, tbl))

	got, err := ReadDevices(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pi-01", "pi-02"}, got)
}
