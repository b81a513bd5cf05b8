// Package portal scripts the RemoteIoT web portal: login, device export,
// batch job creation and job result export.
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod/lib/input"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/pkg/browser"
	"remoteiot-pipeline/pkg/credentials"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/utils"
)

var (
	// ErrEmptyPassword is returned when the password field is still empty after typing.
	ErrEmptyPassword = errors.New("password field is empty")
	// ErrNoDevices is returned when a batch job is requested for no devices.
	ErrNoDevices = errors.New("no devices selected")
	// ErrNoAction is returned when a job spec names neither a script nor a command.
	ErrNoAction = errors.New("job has neither script nor command")
)

// JobSpec describes one batch job to submit through the new-job wizard.
// Exactly one of Script or Command should be set. Reload refreshes the page
// once the submission went through, leaving a clean wizard for the next job.
type JobSpec struct {
	Name    string
	Devices []string
	Script  string
	Command string
	Reload  bool
}

// SearchText is the device filter typed into the wizard: "a|b|c" in quotes.
func (j JobSpec) SearchText() string {
	return `"` + strings.Join(j.Devices, "|") + `"`
}

// step is one named wizard interaction.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// Portal runs the portal flows over a browser driver.
type Portal struct {
	driver browser.Driver
	cfg    config.Portal
	logger *logger.Logger
}

// New creates a Portal.
func New(driver browser.Driver, cfg config.Portal, log *logger.Logger) *Portal {
	return &Portal{driver: driver, cfg: cfg, logger: log}
}

// Login fills the login form and waits until the dashboard is rendered.
func (p *Portal) Login(ctx context.Context, creds credentials.Credentials) error {
	if creds.Username == "" {
		return fmt.Errorf("%w: username", credentials.ErrMissingCredentials)
	}

	if err := p.driver.Navigate(ctx, p.cfg.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	p.logger.Info("Navigated to login page", logger.StringField("url", p.cfg.LoginURL))

	if err := p.driver.Input(ctx, xpathUsername, creds.Username); err != nil {
		return fmt.Errorf("failed to enter username: %w", err)
	}
	p.logger.Debug("Entered username")

	if err := p.driver.Input(ctx, xpathPassword, creds.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}
	p.logger.Debug("Entered password")

	value, err := p.driver.Value(ctx, xpathPassword)
	if err != nil {
		return fmt.Errorf("failed to read password field: %w", err)
	}
	if value == "" {
		return ErrEmptyPassword
	}

	if err := p.driver.Press(ctx, xpathPassword, input.Enter); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}
	p.logger.Info("Submitted login form")

	err = utils.Poll(ctx, p.cfg.LoginTimeout, p.cfg.LoginPoll, func(ctx context.Context) (bool, error) {
		html, err := p.driver.HTML(ctx)
		if err != nil {
			p.logger.Debug("Page not readable yet", logger.ErrorField(err))
			return false, nil
		}
		return DashboardReady(html)
	})
	if err != nil {
		return fmt.Errorf("dashboard did not load after login: %w", err)
	}

	p.logger.Info("Login successful")
	return nil
}

// DashboardReady reports whether the page HTML contains the dashboard menu.
func DashboardReady(html string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("failed to parse page html: %w", err)
	}
	return doc.Find(dashboardSelector).Length() > 0, nil
}

// ExportDevices opens the device menu and triggers the CSV export.
func (p *Portal) ExportDevices(ctx context.Context) error {
	if err := p.driver.Click(ctx, xpathDeviceMenu); err != nil {
		return fmt.Errorf("failed to open device menu: %w", err)
	}
	p.logger.Info("Navigated to device menu")

	if err := p.driver.Click(ctx, xpathDeviceExport); err != nil {
		return fmt.Errorf("failed to click export: %w", err)
	}
	p.logger.Info("Clicked export button")
	return nil
}

// CreateBatchJob walks the new-job wizard for spec and submits it.
func (p *Portal) CreateBatchJob(ctx context.Context, spec JobSpec) error {
	if len(spec.Devices) == 0 {
		return ErrNoDevices
	}
	if spec.Script == "" && spec.Command == "" {
		return ErrNoAction
	}
	p.logger.Info("Creating batch job",
		logger.StringField("job", spec.Name),
		logger.StringsField("devices", spec.Devices))

	steps := []step{
		{"open batch jobs", p.click(xpathBatchJobsMenu)},
		{"open jobs dropdown", p.click(xpathJobsDropdown)},
		{"select new job", p.click(xpathNewJob)},
		{"enter job name", p.input(xpathJobName, spec.Name)},
		{"search devices", p.input(xpathDeviceSearch, spec.SearchText())},
		{"run device search", p.click(xpathSearchIcon)},
		{"wait for search results", p.settle(p.cfg.SearchSettleTime)},
		{"select listed devices", func(ctx context.Context) error { return p.driver.SelectAll(ctx, xpathAvailableList) }},
		{"add selected devices", p.click(xpathAddSelected)},
		{"verify selected devices", func(ctx context.Context) error { return p.driver.WaitVisible(ctx, xpathSelectedList) }},
	}
	if spec.Script != "" {
		steps = append(steps,
			step{"choose script action", p.click(xpathExecuteScript)},
			step{"enter script name", p.input(xpathScriptField, spec.Script)},
			step{"pick script suggestion", func(ctx context.Context) error {
				return p.driver.Press(ctx, xpathScriptField, input.ArrowDown, input.Enter)
			}},
			step{"maximize wizard", p.click(xpathMaximizeWizard)},
		)
	} else {
		steps = append(steps,
			step{"enter command", p.input(xpathCommandField, spec.Command)},
			step{"scroll to submit", func(ctx context.Context) error { return p.driver.ScrollIntoView(ctx, xpathSubmitJob) }},
		)
	}

	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("failed to %s: %w", s.name, err)
		}
		p.logger.Debug("Wizard step done", logger.StringField("step", s.name))
	}

	if err := p.driver.Click(ctx, xpathSubmitJob); err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	if err := p.waitSubmitted(ctx); err != nil {
		return err
	}
	if spec.Reload {
		if err := p.driver.Reload(ctx); err != nil {
			return fmt.Errorf("failed to reload after submit: %w", err)
		}
	}

	p.logger.Info("Batch job submitted", logger.StringField("job", spec.Name), logger.IntField("devices", len(spec.Devices)))
	return nil
}

// waitSubmitted blocks until the wizard's submit button is gone, which the
// portal does only after it accepted the job.
func (p *Portal) waitSubmitted(ctx context.Context) error {
	err := utils.Poll(ctx, p.cfg.SubmitTimeout, p.cfg.SubmitPoll, func(ctx context.Context) (bool, error) {
		visible, err := p.driver.Visible(ctx, xpathSubmitJob)
		if err != nil {
			p.logger.Debug("Submit button not readable yet", logger.ErrorField(err))
			return false, nil
		}
		return !visible, nil
	})
	if err != nil {
		return fmt.Errorf("job submission not confirmed: %w", err)
	}
	return nil
}

// ExportJobs opens the jobs table menu and triggers its CSV export.
func (p *Portal) ExportJobs(ctx context.Context) error {
	if err := p.driver.Click(ctx, xpathJobsMenu); err != nil {
		return fmt.Errorf("failed to open jobs menu: %w", err)
	}
	if err := p.driver.Click(ctx, xpathJobsTableExport); err != nil {
		return fmt.Errorf("failed to click jobs export: %w", err)
	}
	p.logger.Info("Triggered jobs export")
	return nil
}

func (p *Portal) click(xpath string) func(ctx context.Context) error {
	return func(ctx context.Context) error { return p.driver.Click(ctx, xpath) }
}

func (p *Portal) input(xpath, text string) func(ctx context.Context) error {
	return func(ctx context.Context) error { return p.driver.Input(ctx, xpath, text) }
}

func (p *Portal) settle(d time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error { return utils.Sleep(ctx, d) }
}
