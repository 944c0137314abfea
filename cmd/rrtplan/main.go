// Package main is the rrtplan command: plan paths for GeoJSON scenarios or serve the
// planners over HTTP.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
