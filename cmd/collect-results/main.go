package main

import (
	"remoteiot-pipeline/internal/collector"
	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/stage"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
)

func main() {
	rootCmd := stage.NewCommand(common.StageCollectResults, "Checks the installed version on every device and classifies the results",
		func(cfg *config.Config, log *logger.Logger) stage.Stage {
			return collector.NewService(cfg.Script3, cfg.Portal, cfg.Script1.TrackingPath(), log)
		})
	stage.Main(rootCmd)
}
