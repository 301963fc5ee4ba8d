package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/telemetrydev/propdefs/cmd"
	"github.com/telemetrydev/propdefs/settings"
)

func main() {
	settings.ResetSettings()
	cmd.Execute()
}
