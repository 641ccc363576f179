package main

import (
	"os"

	"github.com/nicholaszhao/uptime-report-pdf/tools/report-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
