package config

import (
	"fmt"
	"path/filepath"
	"time"

	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/config"
	"remoteiot-pipeline/pkg/utils"
)

// Browser holds Chrome launch settings.
type Browser struct {
	Bin               string        `mapstructure:"bin"`
	Headless          bool          `mapstructure:"headless"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	WindowWidth       int           `mapstructure:"window_width"`
	WindowHeight      int           `mapstructure:"window_height"`
}

// Portal holds the vendor portal endpoints and job definitions.
type Portal struct {
	LoginURL         string        `mapstructure:"login_url"`
	LoginTimeout     time.Duration `mapstructure:"login_timeout"`
	LoginPoll        time.Duration `mapstructure:"login_poll"`
	ExpectedVersion  string        `mapstructure:"expected_version"`
	JobMarker        string        `mapstructure:"job_marker"`
	ScriptJobName    string        `mapstructure:"script_job_name"`
	ScriptName       string        `mapstructure:"script_name"`
	StatusJobName    string        `mapstructure:"status_job_name"`
	StatusCommand    string        `mapstructure:"status_command"`
	SearchSettleTime time.Duration `mapstructure:"search_settle_time"`
	SubmitTimeout    time.Duration `mapstructure:"submit_timeout"`
	SubmitPoll       time.Duration `mapstructure:"submit_poll"`
}

// FetchDevices holds stage 1 settings.
type FetchDevices struct {
	DownloadPath    string        `mapstructure:"download_path"`
	SavePath        string        `mapstructure:"save_path"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// TrackingPath is where the online-device tracking table lives.
func (c FetchDevices) TrackingPath() string {
	return filepath.Join(c.SavePath, common.TrackingFileName)
}

// DispatchJobs holds stage 2 settings.
type DispatchJobs struct {
	InputPath   string `mapstructure:"input_path"`
	OutputPath  string `mapstructure:"output_path"`
	BatchDelay  int    `mapstructure:"batch_delay"`
	DeviceCount int    `mapstructure:"device_count"`
}

// BatchDelayDuration converts batch_delay (seconds) to a duration.
func (c DispatchJobs) BatchDelayDuration() time.Duration {
	return time.Duration(c.BatchDelay) * time.Second
}

// CollectResults holds stage 3 settings.
type CollectResults struct {
	InputPath       string        `mapstructure:"input_path"`
	DownloadDir     string        `mapstructure:"download_dir"`
	NewOutputPath   string        `mapstructure:"new_output_path"`
	ClassifiedPath  string        `mapstructure:"classified_path"`
	JobWait         time.Duration `mapstructure:"job_wait"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// StageCommand is one executable the orchestrator runs.
type StageCommand struct {
	Name string   `mapstructure:"name"`
	Path string   `mapstructure:"path"`
	Args []string `mapstructure:"args"`
}

// Orchestrator holds pipeline driver settings.
type Orchestrator struct {
	StageDelay time.Duration  `mapstructure:"stage_delay"`
	Stages     []StageCommand `mapstructure:"stages"`
	Cron       string         `mapstructure:"cron"`
}

// Telegram holds configuration for the run summary notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Enabled reports whether a bot token and chat are configured.
func (t Telegram) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// Config holds the full configuration shared by every pipeline process.
// It is built once at start-up and passed down explicitly.
type Config struct {
	App          config.App     `mapstructure:"app"`
	Logger       config.Logger  `mapstructure:"logger"`
	Browser      Browser        `mapstructure:"browser"`
	Portal       Portal         `mapstructure:"portal"`
	Script1      FetchDevices   `mapstructure:"script_1"`
	Script2      DispatchJobs   `mapstructure:"script_2"`
	Script3      CollectResults `mapstructure:"script_3"`
	Orchestrator Orchestrator   `mapstructure:"orchestrator"`
	Telegram     Telegram       `mapstructure:"telegram"`
}

// Load loads the pipeline configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	setString(&c.App.Name, "remoteiot-pipeline")
	setString(&c.Logger.Level, "debug")
	setString(&c.Logger.Encoding, "console")

	setDuration(&c.Browser.ElementTimeout, 10*time.Second)
	setDuration(&c.Browser.NavigationTimeout, 30*time.Second)
	setInt(&c.Browser.WindowWidth, 1920)
	setInt(&c.Browser.WindowHeight, 1080)

	setString(&c.Portal.LoginURL, "https://remoteiot.com/portal/?link=login")
	setDuration(&c.Portal.LoginTimeout, 15*time.Second)
	setDuration(&c.Portal.LoginPoll, 500*time.Millisecond)
	setString(&c.Portal.ExpectedVersion, common.DefaultExpectedVersion)
	setString(&c.Portal.JobMarker, common.DefaultJobMarker)
	setString(&c.Portal.ScriptJobName, "IotSecurity batch job_automation_execution")
	setString(&c.Portal.ScriptName, "eru_misc.sh")
	setString(&c.Portal.StatusJobName, common.DefaultJobMarker)
	setString(&c.Portal.StatusCommand, `grep -oP 'IoTSecurity_\K[0-9]+\.[0-9]+\.[0-9]+' /home/pi/IoTSecurity/security-release.version | head -1 || echo 0.0.0`)
	setDuration(&c.Portal.SearchSettleTime, 3*time.Second)
	setDuration(&c.Portal.SubmitTimeout, 30*time.Second)
	setDuration(&c.Portal.SubmitPoll, 500*time.Millisecond)

	setString(&c.Script1.DownloadPath, "~/Downloads")
	setString(&c.Script1.SavePath, ".")
	setDuration(&c.Script1.DownloadTimeout, 30*time.Second)
	setDuration(&c.Script1.PollInterval, time.Second)

	setString(&c.Script2.InputPath, c.Script1.TrackingPath())
	setString(&c.Script2.OutputPath, "Executed_Devices.xlsx")

	setString(&c.Script3.InputPath, c.Script1.TrackingPath())
	setString(&c.Script3.DownloadDir, c.Script1.DownloadPath)
	setString(&c.Script3.NewOutputPath, "Command_Status_Output.xlsx")
	setString(&c.Script3.ClassifiedPath, "Command_Status_Classified.xlsx")
	setDuration(&c.Script3.JobWait, 5*time.Minute)
	setDuration(&c.Script3.DownloadTimeout, 60*time.Second)
	setDuration(&c.Script3.PollInterval, time.Second)

	setDuration(&c.Orchestrator.StageDelay, 5*time.Second)
}

func (c *Config) expandPaths() error {
	paths := []*string{
		&c.Logger.Dir,
		&c.Script1.DownloadPath,
		&c.Script1.SavePath,
		&c.Script2.InputPath,
		&c.Script2.OutputPath,
		&c.Script3.InputPath,
		&c.Script3.DownloadDir,
		&c.Script3.NewOutputPath,
		&c.Script3.ClassifiedPath,
	}
	for _, p := range paths {
		expanded, err := utils.ExpandHome(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
