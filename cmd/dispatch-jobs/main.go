package main

import (
	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/dispatch"
	"remoteiot-pipeline/internal/stage"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
)

func main() {
	rootCmd := stage.NewCommand(common.StageDispatchJobs, "Submits the device script job in batches",
		func(cfg *config.Config, log *logger.Logger) stage.Stage {
			return dispatch.NewService(cfg.Script2, cfg.Portal, log)
		})
	stage.Main(rootCmd)
}
