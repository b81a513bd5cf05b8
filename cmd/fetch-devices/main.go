package main

import (
	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/inventory"
	"remoteiot-pipeline/internal/stage"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/logger"
)

func main() {
	rootCmd := stage.NewCommand(common.StageFetchDevices, "Exports the portal device list and tracks online devices",
		func(cfg *config.Config, log *logger.Logger) stage.Stage {
			return inventory.NewService(cfg.Script1, log)
		})
	stage.Main(rootCmd)
}
