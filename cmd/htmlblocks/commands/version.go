package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/htmlblocks/internal/output"
	"github.com/jmylchreest/htmlblocks/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatStr, _ := cmd.Flags().GetString("format")
		if formatStr == "" {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return err
		}

		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		w, err := output.NewWriter(cmd.OutOrStdout(), format)
		if err != nil {
			return err
		}
		if err := w.Write(version.Get()); err != nil {
			return err
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringP("format", "f", "", "print as json or yaml instead of text")
}
