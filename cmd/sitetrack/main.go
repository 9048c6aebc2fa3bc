// Package main is the entry point for the sitetrack CLI.
package main

import "github.com/warp/sitetrack/cli"

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0"
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
