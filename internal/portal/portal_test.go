package portal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/pkg/credentials"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/utils"
)

type fakeDriver struct {
	actions []string
	inputs  map[string]string
	html    string
	failOn  map[string]error
	// visibleFor is how many more Visible checks report true per xpath.
	visibleFor map[string]int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		inputs: map[string]string{},
		html:   `<html><body><div id="dashboard-menu"></div></body></html>`,
		failOn:     map[string]error{},
		visibleFor: map[string]int{},
	}
}

func (d *fakeDriver) record(action, xpath string) error {
	d.actions = append(d.actions, action+" "+xpath)
	return d.failOn[xpath]
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	return d.record("navigate", url)
}

func (d *fakeDriver) Click(ctx context.Context, xpath string) error {
	return d.record("click", xpath)
}

func (d *fakeDriver) Input(ctx context.Context, xpath, text string) error {
	if err := d.record("input", xpath); err != nil {
		return err
	}
	d.inputs[xpath] += text
	return nil
}

func (d *fakeDriver) Value(ctx context.Context, xpath string) (string, error) {
	return d.inputs[xpath], d.record("value", xpath)
}

func (d *fakeDriver) Press(ctx context.Context, xpath string, keys ...input.Key) error {
	return d.record(fmt.Sprintf("press%d", len(keys)), xpath)
}

func (d *fakeDriver) SelectAll(ctx context.Context, xpath string) error {
	return d.record("selectall", xpath)
}

func (d *fakeDriver) WaitVisible(ctx context.Context, xpath string) error {
	return d.record("visible", xpath)
}

func (d *fakeDriver) Visible(ctx context.Context, xpath string) (bool, error) {
	if d.visibleFor[xpath] > 0 {
		d.visibleFor[xpath]--
		return true, d.record("shown", xpath)
	}
	return false, d.record("hidden", xpath)
}

func (d *fakeDriver) ScrollIntoView(ctx context.Context, xpath string) error {
	return d.record("scroll", xpath)
}

func (d *fakeDriver) Reload(ctx context.Context) error {
	return d.record("reload", "")
}

func (d *fakeDriver) HTML(ctx context.Context) (string, error) {
	return d.html, nil
}

func testPortalConfig() config.Portal {
	return config.Portal{
		LoginURL:     "https://portal.example/login",
		LoginTimeout: 50 * time.Millisecond,
		LoginPoll:     5 * time.Millisecond,
		SubmitTimeout: 50 * time.Millisecond,
		SubmitPoll:    time.Millisecond,
	}
}

func TestLoginSuccess(t *testing.T) {
	d := newFakeDriver()
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.Login(context.Background(), credentials.Credentials{Username: "ops", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "ops", d.inputs[xpathUsername])
	assert.Contains(t, d.actions, "press1 "+xpathPassword)
}

func TestLoginEmptyPassword(t *testing.T) {
	d := newFakeDriver()
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.Login(context.Background(), credentials.Credentials{Username: "ops"})
	assert.ErrorIs(t, err, ErrEmptyPassword)
	assert.NotContains(t, d.actions, "press1 "+xpathPassword)
}

func TestLoginMissingUsername(t *testing.T) {
	d := newFakeDriver()
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.Login(context.Background(), credentials.Credentials{Password: "secret"})
	assert.ErrorIs(t, err, credentials.ErrMissingCredentials)
	assert.Empty(t, d.actions)
}

func TestLoginElementTimeout(t *testing.T) {
	d := newFakeDriver()
	d.failOn[xpathPassword] = errors.New("context deadline exceeded")
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.Login(context.Background(), credentials.Credentials{Username: "ops", Password: "secret"})
	assert.Error(t, err)
}

func TestLoginDashboardNeverAppears(t *testing.T) {
	d := newFakeDriver()
	d.html = `<html><body><form></form></body></html>`
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.Login(context.Background(), credentials.Credentials{Username: "ops", Password: "secret"})
	assert.ErrorIs(t, err, utils.ErrTimeout)
}

func TestDashboardReady(t *testing.T) {
	ok, err := DashboardReady(`<div id="dashboard-menu"><span>Jobs</span></div>`)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = DashboardReady(`<div id="login"></div>`)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchText(t *testing.T) {
	spec := JobSpec{Devices: []string{"pi-01", "pi-02", "pi-03"}}
	assert.Equal(t, `"pi-01|pi-02|pi-03"`, spec.SearchText())
}

func TestCreateBatchJobScript(t *testing.T) {
	d := newFakeDriver()
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.CreateBatchJob(context.Background(), JobSpec{
		Name:    "IotSecurity batch job_automation_execution",
		Devices: []string{"pi-01", "pi-02"},
		Script:  "eru_misc.sh",
		Reload:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, `"pi-01|pi-02"`, d.inputs[xpathDeviceSearch])
	assert.Equal(t, "eru_misc.sh", d.inputs[xpathScriptField])
	assert.Contains(t, d.actions, "press2 "+xpathScriptField)
	assert.NotContains(t, d.inputs, xpathCommandField)
	assert.Equal(t, []string{
		"click " + xpathSubmitJob,
		"hidden " + xpathSubmitJob,
		"reload ",
	}, d.actions[len(d.actions)-3:])
}

func TestCreateBatchJobCommand(t *testing.T) {
	d := newFakeDriver()
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.CreateBatchJob(context.Background(), JobSpec{
		Name:    "IotSecurity",
		Devices: []string{"pi-01"},
		Command: "cat /etc/version",
	})
	require.NoError(t, err)

	assert.Equal(t, "cat /etc/version", d.inputs[xpathCommandField])
	assert.Contains(t, d.actions, "scroll "+xpathSubmitJob)
	assert.NotContains(t, d.actions, "click "+xpathExecuteScript)
	assert.NotContains(t, d.actions, "reload ")
	assert.Equal(t, "hidden "+xpathSubmitJob, d.actions[len(d.actions)-1])
}

func TestCreateBatchJobReloadsOnlyAfterSubmitCompletes(t *testing.T) {
	d := newFakeDriver()
	d.visibleFor[xpathSubmitJob] = 3
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.CreateBatchJob(context.Background(), JobSpec{Name: "job", Devices: []string{"pi-01"}, Script: "x.sh", Reload: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"click " + xpathSubmitJob,
		"shown " + xpathSubmitJob,
		"shown " + xpathSubmitJob,
		"shown " + xpathSubmitJob,
		"hidden " + xpathSubmitJob,
		"reload ",
	}, d.actions[len(d.actions)-6:])
}

func TestCreateBatchJobSubmitNeverCompletes(t *testing.T) {
	d := newFakeDriver()
	d.visibleFor[xpathSubmitJob] = 1 << 30
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.CreateBatchJob(context.Background(), JobSpec{Name: "job", Devices: []string{"pi-01"}, Script: "x.sh", Reload: true})
	assert.ErrorIs(t, err, utils.ErrTimeout)
	assert.NotContains(t, d.actions, "reload ")
}

func TestCreateBatchJobStopsAtFailingStep(t *testing.T) {
	d := newFakeDriver()
	d.failOn[xpathNewJob] = errors.New("element not found")
	p := New(d, testPortalConfig(), logger.NewNop())

	err := p.CreateBatchJob(context.Background(), JobSpec{Name: "job", Devices: []string{"pi-01"}, Script: "x.sh"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select new job")
	assert.NotContains(t, d.actions, "click "+xpathSubmitJob)
}

func TestCreateBatchJobValidation(t *testing.T) {
	p := New(newFakeDriver(), testPortalConfig(), logger.NewNop())

	assert.ErrorIs(t, p.CreateBatchJob(context.Background(), JobSpec{Script: "x.sh"}), ErrNoDevices)
	assert.ErrorIs(t, p.CreateBatchJob(context.Background(), JobSpec{Devices: []string{"pi-01"}}), ErrNoAction)
}

func TestExportFlows(t *testing.T) {
	d := newFakeDriver()
	p := New(d, testPortalConfig(), logger.NewNop())

	require.NoError(t, p.ExportDevices(context.Background()))
	require.NoError(t, p.ExportJobs(context.Background()))
	assert.Equal(t, []string{
		"click " + xpathDeviceMenu,
		"click " + xpathDeviceExport,
		"click " + xpathJobsMenu,
		"click " + xpathJobsTableExport,
	}, d.actions)
}
