package stage

import (
	"context"
	"fmt"
	"io"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/portal"
	"remoteiot-pipeline/pkg/browser"
	"remoteiot-pipeline/pkg/credentials"
	"remoteiot-pipeline/pkg/logger"
)

// Browser is an exclusively owned browser session.
type Browser interface {
	browser.Driver
	io.Closer
}

// LaunchFunc starts a browser whose downloads land in downloadDir.
type LaunchFunc func(ctx context.Context, downloadDir string) (Browser, error)

// ChromeLauncher returns a LaunchFunc backed by a local Chrome.
func ChromeLauncher(cfg config.Browser) LaunchFunc {
	return func(ctx context.Context, downloadDir string) (Browser, error) {
		s, err := browser.Launch(ctx, browser.Options{
			Bin:               cfg.Bin,
			Headless:          cfg.Headless,
			DownloadDir:       downloadDir,
			ElementTimeout:    cfg.ElementTimeout,
			NavigationTimeout: cfg.NavigationTimeout,
			WindowWidth:       cfg.WindowWidth,
			WindowHeight:      cfg.WindowHeight,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Runner drives a stage through start -> authenticated -> completed|aborted.
type Runner struct {
	launch    LaunchFunc
	portalCfg config.Portal
	creds     credentials.Credentials
	logger    *logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(launch LaunchFunc, portalCfg config.Portal, creds credentials.Credentials, log *logger.Logger) *Runner {
	return &Runner{
		launch:    launch,
		portalCfg: portalCfg,
		creds:     creds,
		logger:    log,
	}
}

// Run executes st and returns its report. The browser is closed on every
// path out of Run, including a panic in the stage body.
func (r *Runner) Run(ctx context.Context, st Stage) (report Report) {
	report = Report{Stage: st.Name(), State: StateStart}
	log := r.logger.With(logger.StringField("stage", st.Name()))
	log.Info("Starting stage")

	var downloadDir string
	if d, ok := st.(Downloader); ok {
		downloadDir = d.DownloadDir()
	}

	session, err := r.launch(ctx, downloadDir)
	if err != nil {
		log.Error("Failed to start browser", logger.ErrorField(err))
		return aborted(report, fmt.Errorf("failed to start browser: %w", err))
	}
	log.Info("Browser started")

	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Failed to close browser", logger.ErrorField(err))
		}
		log.Info("Browser closed")
	}()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Stage panicked", logger.Field("panic", rec))
			report = aborted(report, fmt.Errorf("panic: %v", rec))
		}
	}()

	p := portal.New(session, r.portalCfg, log.Named("portal"))
	if err := p.Login(ctx, r.creds); err != nil {
		log.Error("Login failed, terminating stage", logger.ErrorField(err))
		return aborted(report, fmt.Errorf("login failed: %w", err))
	}
	report.State = StateAuthenticated

	outcome, err := st.Execute(ctx, p)
	if err != nil {
		log.Error("Stage failed", logger.ErrorField(err))
		return aborted(report, err)
	}

	for _, w := range outcome.Warnings {
		log.Warn("Stage warning", logger.StringField("warning", w))
	}
	report.State = StateCompleted
	report.Marker = st.Marker()
	report.Warnings = len(outcome.Warnings)
	report.Detail = outcome.Detail
	log.Info("Stage completed", logger.IntField("warnings", report.Warnings))
	return report
}

func aborted(r Report, err error) Report {
	r.State = StateAborted
	r.Marker = ""
	r.Detail = err.Error()
	return r
}
