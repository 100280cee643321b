package cmd

import (
	"encoding/json"
	"fmt"

	"provwatch/features/coordinator"
	"provwatch/features/providers"
	"provwatch/internal/db"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// ScanCommand runs one full status scan and prints the resulting snapshot.
var ScanCommand = &cli.Command{
	Name:  "scan",
	Usage: "Run one full provider status scan and print the snapshot",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output the snapshot in JSON format.",
			Value:   false,
		},
	},
	Action: runScan,
}

func runScan(c *cli.Context) error {
	coord, _, err := buildStack()
	if err != nil {
		return fmt.Errorf("failed to wire status stack: %w", err)
	}
	defer db.DeferClose()

	ran, err := coord.RefreshAll(c.Context, coordinator.TriggerManual)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if !ran {
		log.Warn().Msg("Scan did not run, another refresh was already in flight")
	}

	return printSnapshot(coord.Table().Snapshot(), c.Bool("json"))
}

func printSnapshot(snapshot map[string]providers.StatusRecord, asJSON bool) error {
	if asJSON {
		jsonData, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	}

	for id, rec := range snapshot {
		var responseTime int64
		if rec.ResponseTimeMs != nil {
			responseTime = *rec.ResponseTimeMs
		}

		log.Info().
			Str("provider", id).
			Str("state", string(rec.State)).
			Bool("connected", rec.Connected).
			Int64("response_time_ms", responseTime).
			Float64("success_rate", rec.SuccessRatePercent).
			Int64("errors", rec.ErrorCount).
			Msg("Provider status")
	}

	return nil
}
