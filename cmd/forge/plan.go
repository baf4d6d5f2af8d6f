package forge

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-forge/pkg/orchestration"
	"github.com/mattsolo1/grove-forge/pkg/topology"
)

// newPlanCommand builds a "plan" subcommand that prints the candidate
// operations a workflow would consider, without running anything.
func newPlanCommand() *cobra.Command {
	var workflow string
	opts := &orchestration.JobOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the candidate operations a workflow would consider",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Workflow = workflow
			manifestPath, _ := cmd.Flags().GetString("manifest")
			manifest, err := topology.Load(manifestPath)
			if err != nil {
				return err
			}

			planner, err := orchestration.PlannerFor(workflow)
			if err != nil {
				return err
			}
			plan, err := planner.Plan(cmd.Context(), manifest.Root(), opts)
			if err != nil {
				return err
			}
			for _, item := range plan.Items {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-12s %s\n", item.Spec.Priority, item.Spec.Operation, item.Target.Key())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workflow, "workflow", "deploy", "workflow to plan: deploy, undeploy, discover, check")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "restrict the plan to a single instance")
	return cmd
}
