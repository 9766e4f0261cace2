package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootOpts stationOptions

var rootCmd = &cobra.Command{
	Use:   "jig",
	Short: "Manufacturing test station for tracker boards",
	Long: `jig tests, flashes and reports on every board placed in the fixture.
Run without a subcommand to start the station.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStation(cmd.Context(), rootOpts)
	},
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	rootOpts.register(rootCmd)
	rootCmd.AddCommand(
		newRunCmd(),
		newPortsCmd(),
		newFailuresCmd(),
		newHistoryCmd(),
		newDrainCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("jig command failed")
	}
}
