package orchestrator

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/telegram"
)

// cronLogger adapts the pipeline logger to cron's logging interface.
type cronLogger struct {
	logger *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// ParseSchedule validates a standard five-field cron expression or descriptor.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// Schedule runs the pipeline on every tick of expr until ctx is done.
// A tick that fires while a run is still in progress is skipped.
func (o *Orchestrator) Schedule(ctx context.Context, expr string) error {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	cl := cronLogger{logger: o.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	c.Schedule(schedule, cron.FuncJob(func() {
		run, err := o.Run(ctx)
		if err != nil {
			o.logger.Warn("Scheduled run interrupted", logger.StringField("run_id", run.ID), logger.ErrorField(err))
			o.NotifyFailure("scheduled run interrupted", err)
		}
	}))

	o.logger.Info("Pipeline scheduled",
		logger.StringField("cron", expr),
		logger.Field("next_run", schedule.Next(o.now())))
	c.Start()

	<-ctx.Done()
	o.logger.Info("Scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// NotifyFailure sends an error alert when a notifier is configured.
func (o *Orchestrator) NotifyFailure(errType string, err error) {
	if o.notifier == nil || err == nil {
		return
	}
	if sendErr := o.notifier.SendMessage(telegram.FormatErrorAlertMessage(o.now(), errType, err.Error())); sendErr != nil {
		o.logger.Warn("Failed to send error alert", logger.ErrorField(sendErr))
	}
}
