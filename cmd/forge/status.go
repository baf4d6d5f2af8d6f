package forge

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-forge/pkg/state"
)

// newStatusCommand reports the outcome of the last job run against this
// manifest, read from the local .forge/state.yml left behind by run.go.
func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last job run here",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := state.Load()
			if err != nil {
				return err
			}
			if s.ActiveJob != "" {
				color.Yellow("job %s is currently active", s.ActiveJob)
				return nil
			}
			if s.LastWorkflow == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no job has run here yet")
				return nil
			}
			line := fmt.Sprintf("last %s: %s (change id %d)", s.LastWorkflow, s.LastStatus, s.LastChangeID)
			if s.LastJobFailed {
				color.Red(line)
			} else {
				color.Green(line)
			}
			return nil
		},
	}
}
