package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

const defaultVersion = "dev"

// Populated via -ldflags at release build time.
var (
	Version        = defaultVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

type versionInfo struct {
	Version        string `json:"version"`
	CommitHash     string `json:"commitHash,omitempty"`
	BuildTimestamp string `json:"buildTimestamp,omitempty"`
}

func newVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the adtrecover version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:        Version,
				CommitHash:     CommitHash,
				BuildTimestamp: BuildTimestamp,
			}
			if asJSON {
				encoded, err := json.Marshal(info)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "adtrecover %s", info.Version)
			if info.CommitHash != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", info.CommitHash)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
