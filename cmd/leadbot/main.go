// Command leadbot serves the LINE webhook and the client management API.
package main

import (
	"log"

	corecmd "github.com/m3rciful/leadbot/core/cmd"
	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
