package main

import (
	"os"

	apicmder "github.com/papercomputeco/churnsense/cmd/churnsense/serve/api"
)

func main() {
	cmd := apicmder.NewAPICmd()
	cmd.Use = "churnsenseapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .churnsense/ config directory")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
