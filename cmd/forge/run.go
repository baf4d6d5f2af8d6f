package forge

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-forge/pkg/orchestration"
	"github.com/mattsolo1/grove-forge/pkg/state"
	"github.com/mattsolo1/grove-forge/pkg/topology"
)

// newRunCommand builds the "deploy"/"undeploy" subcommands, which differ
// only in which workflow they pass to the Runner.
func newRunCommand(workflow string) *cobra.Command {
	opts := &orchestration.JobOptions{Workflow: workflow}

	cmd := &cobra.Command{
		Use:   workflow,
		Short: "Run the " + workflow + " workflow against the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Add, "add", true, "run operations against instances never applied")
	cmd.Flags().BoolVar(&opts.Update, "update", true, "re-run operations whose inputs or dependencies changed")
	cmd.Flags().BoolVar(&opts.Repair, "repair", false, "re-run operations against instances in an error state")
	cmd.Flags().BoolVar(&opts.Upgrade, "upgrade", false, "re-run every operation regardless of change detection")
	cmd.Flags().BoolVar(&opts.All, "all", false, "force every candidate operation to run")
	cmd.Flags().BoolVar(&opts.Readonly, "readonly", false, "refuse to run any operation that writes state")
	cmd.Flags().BoolVar(&opts.Dryrun, "dry-run", false, "report what would run without running it")
	cmd.Flags().BoolVar(&opts.RequiredOnly, "required-only", false, "skip operations below required priority")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "restrict the run to a single instance")
	cmd.Flags().StringSliceVar(&opts.Instances, "instances", nil, "restrict the run to a set of instances")
	cmd.Flags().BoolVar(&opts.Commit, "commit", true, "persist the manifest after a successful run")
	cmd.Flags().BoolVar(&opts.Dirty, "allow-dirty", false, "run even if the manifest has uncommitted changes")

	return cmd
}

func runWorkflow(cmd *cobra.Command, opts *orchestration.JobOptions) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	manifest, err := topology.Load(manifestPath)
	if err != nil {
		return err
	}

	registry := orchestration.NewRegistry()
	validator := orchestration.NewJSONSchemaValidator()
	logger := newLogger()

	var startChangeID int64
	if s, serr := state.Load(); serr == nil {
		startChangeID = s.LastChangeID
	}
	runner := orchestration.NewRunner(manifest, registry, validator, logger, startChangeID)
	runner.LockPath = manifestPath

	requestID := uuid.NewString()
	logger.Infof("starting %s (request %s)", opts.Workflow, requestID)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	if err := state.BeginJob(requestID); err != nil {
		logger.Warnf("could not record active job: %v", err)
	}

	summary, err := runner.Run(ctx, opts)
	failed := err != nil || (summary != nil && summary.Failed > 0)
	var lastChange int64
	if summary != nil && len(summary.Changes) > 0 {
		lastChange = summary.Changes[len(summary.Changes)-1].ChangeID
	}
	if serr := state.FinishJob(opts.Workflow, statusLabel(failed), lastChange, failed); serr != nil {
		logger.Warnf("could not record job outcome: %v", serr)
	}

	if err != nil {
		color.Red("%s failed: %v", opts.Workflow, err)
		return err
	}

	printSummary(summary)
	return nil
}

func statusLabel(failed bool) string {
	if failed {
		return "failed"
	}
	return "ok"
}

func printSummary(summary *orchestration.JobSummary) {
	if summary == nil {
		return
	}
	if summary.Failed > 0 {
		color.Red(summary.String())
	} else if summary.Ran == 0 {
		color.Yellow(summary.String())
	} else {
		color.Green(summary.String())
	}
}
