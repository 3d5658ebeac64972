package main

import (
	"os"

	churnsensecmder "github.com/papercomputeco/churnsense/cmd/churnsense"
)

func main() {
	cmd := churnsensecmder.NewChurnsenseCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
