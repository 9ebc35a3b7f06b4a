package main

import (
	"log"

	corecmd "github.com/m3rciful/tripbot/core/cmd"
	"github.com/m3rciful/tripbot/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.BootstrapApp,
	})
	if err != nil {
		log.Fatalf("tripbot: %v", err)
	}
}
