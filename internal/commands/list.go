package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locks recorded in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := openRegistry(cfg)
			if err != nil {
				return err
			}

			entries, err := registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no held locks recorded")
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Type", "Object", "Group", "Session", "PID", "Held since")
			for _, e := range entries {
				table.Append([]string{
					e.ObjectType,
					e.ObjectName,
					e.FunctionGroup,
					e.SessionID,
					fmt.Sprintf("%d", e.PID),
					e.Timestamp.Format(time.RFC3339),
				})
			}
			return table.Render()
		},
	}
}
