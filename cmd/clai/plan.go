package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jkaninda/clai/internal/render"
	"github.com/jkaninda/clai/internal/session"
)

var (
	planDir    string
	planDryRun bool
	planYes    bool
)

var planCmd = &cobra.Command{
	Use:   "plan FILE",
	Short: "Execute a JSON command plan in a sandbox",
	Long: `Plan reads a structured command plan (a JSON document with the command,
working directory, and intent), previews it with safety warnings, and
executes it in a sandboxed copy of the target directory. Read-only
intents can skip the approval prompt via approval.auto_safe.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planDir, "dir", "d", ".", "directory to sandbox")
	planCmd.Flags().BoolVar(&planDryRun, "dry-run", false, "preview the plan without executing it")
	planCmd.Flags().BoolVarP(&planYes, "yes", "y", false, "skip the execution prompt")
}

func runPlan(cmd *cobra.Command, args []string) error {
	sc, err := initShared()
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading plan file: %w", err)
	}
	plan, err := session.ParsePlan(data)
	if err != nil {
		return err
	}

	fmt.Println(render.Preview(plan, planDir))
	fmt.Println()

	if plan.NeedsClarification {
		fmt.Println("Plan needs clarification; not executing.")
		return nil
	}
	if planDryRun {
		return nil
	}

	if !approved(plan, sc) {
		fmt.Println("Plan not approved; nothing executed.")
		return nil
	}

	ctx := cmd.Context()
	sess, err := session.New(planDir, sc.sessionOptions(planDir))
	if err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer discardQuietly(sess, sc.Logger)

	result, err := sess.RunPlan(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Println(render.Result(result))
	fmt.Println()

	return reviewAndFinish(ctx, sess, sc)
}

// approved decides whether the plan may execute: --yes always wins,
// auto_safe skips the prompt for read-only intents with no safety
// warnings, everything else asks.
func approved(plan *session.Plan, sc *SharedComponents) bool {
	if planYes {
		return true
	}
	if sc.Config.Approval.AutoSafe &&
		session.IsSafeIntent(plan.Intent) &&
		len(session.SafetyWarnings(plan.Command)) == 0 {
		fmt.Println("Auto-approved: read-only intent.")
		return true
	}
	return confirm(os.Stdin, "Execute this plan in the sandbox?")
}
