package cmd

import (
	"encoding/json"
	"fmt"

	"provwatch/internal/db"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// ProbeCommand runs manual verification tests against one or more providers.
var ProbeCommand = &cli.Command{
	Name:  "probe",
	Usage: "Run manual verification tests against providers",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Provider id to test; repeat for several. Tests every registered provider when omitted.",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output results in JSON format.",
			Value:   false,
		},
	},
	Action: runProbe,
}

func runProbe(c *cli.Context) error {
	coord, _, err := buildStack()
	if err != nil {
		return fmt.Errorf("failed to wire status stack: %w", err)
	}
	defer db.DeferClose()

	ids := c.StringSlice("provider")
	if len(ids) == 0 {
		ids = coord.Table().Registry().IDs()
	}

	aggregate := coord.TestMany(c.Context, ids)

	if c.Bool("json") {
		jsonData, err := json.MarshalIndent(aggregate, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	}

	for _, result := range aggregate.Results {
		event := log.Info()
		if !result.Success && !result.Skipped {
			event = log.Warn()
		}
		event.
			Str("provider", result.ProviderID).
			Bool("success", result.Success).
			Bool("skipped", result.Skipped).
			Bool("cached", result.Cached).
			Str("state", string(result.State)).
			Int64("response_time_ms", result.ResponseTimeMs).
			Str("error", result.Error).
			Msg("Probe result")
	}

	log.Info().
		Int("success", aggregate.SuccessCount).
		Int("failed", aggregate.FailureCount).
		Int("skipped", aggregate.SkippedCount).
		Int64("elapsed_ms", aggregate.ElapsedMs).
		Msg("Probe finished")

	return nil
}
