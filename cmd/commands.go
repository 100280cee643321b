package cmd

import (
	"github.com/urfave/cli/v2"
)

// Version is stamped into telemetry and the CLI help output.
const Version = "v0.0.1"

var Commands = []*cli.Command{
	WebServer,
	ScanCommand,
	ProbeCommand,
}
