// Command shortload runs load test profiles against the URL shortener API.
//
// Exit status is 0 after a run that met its thresholds, 1 after a run that
// missed one or failed, and 2 when the run could not be set up.
package main

import (
	"fmt"
	"os"

	"github.com/patric-chuzhbe/urlshrtload/internal/app"
)

var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func main() {
	fmt.Printf("Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)

	theApp, err := app.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	err = theApp.Run()
	theApp.Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
