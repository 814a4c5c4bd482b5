package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/fetcher/packages/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := output.New(outputFlag, output.Options{
			Writer:  cmd.OutOrStdout(),
			Verbose: verboseFlag,
			NoColor: noColorFlag,
		})
		if err != nil {
			return &usageError{err}
		}
		f.FormatVersion(output.VersionInfo{
			Version:   version,
			BuildTime: buildTime,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		})
		return nil
	},
}
