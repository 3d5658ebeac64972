package main

import (
	"os"

	proxycmder "github.com/papercomputeco/churnsense/cmd/churnsense/serve/proxy"
)

func main() {
	cmd := proxycmder.NewProxyCmd()
	cmd.Use = "churnsenseproxy"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .churnsense/ config directory")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
