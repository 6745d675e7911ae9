package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jkaninda/clai/internal/render"
	"github.com/jkaninda/clai/internal/session"
	"github.com/jkaninda/clai/internal/tree"
)

var (
	runDir     string
	runTimeout int
)

var runCmd = &cobra.Command{
	Use:   "run -- COMMAND [ARGS...]",
	Short: "Run a command in a sandboxed copy of a directory",
	Long: `Run clones the target directory into a sandbox, executes the command
inside the copy, and shows the resulting change-set. You then choose to
apply the changes back to the real directory or discard them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runDir, "dir", "d", ".", "directory to sandbox")
	runCmd.Flags().IntVarP(&runTimeout, "timeout", "t", 0, "command timeout in seconds (0 = config default)")
}

func runRun(cmd *cobra.Command, args []string) error {
	sc, err := initShared()
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	if runTimeout > 0 {
		sc.Config.Sandbox.TimeoutS = runTimeout
	}

	ctx := cmd.Context()
	sess, err := session.New(runDir, sc.sessionOptions(runDir))
	if err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}
	// The sandbox must not survive the process on any exit path.
	defer discardQuietly(sess, sc.Logger)

	result, err := sess.RunCommand(ctx, args, "")
	if err != nil {
		return err
	}
	fmt.Println(render.Result(result))
	fmt.Println()

	return reviewAndFinish(ctx, sess, sc)
}

// reviewAndFinish persists the session transcript, shows the
// change-set, and drives the apply/discard decision. Shared by run and
// plan.
func reviewAndFinish(ctx context.Context, sess *session.Session, sc *SharedComponents) error {
	if err := sc.saveTranscript(sess); err != nil {
		sc.Logger.Warn("could not save session transcript", slog.String("error", err.Error()))
	}

	changes, err := sess.Changes(ctx)
	if err != nil {
		return err
	}
	fmt.Println(render.Changes(changes))
	fmt.Println()

	if len(changes) == 0 {
		return sess.Discard(ctx)
	}

	if !confirm(os.Stdin, "Apply these changes to the original directory?") {
		if err := sess.Discard(ctx); err != nil {
			return err
		}
		fmt.Println("Changes discarded; original directory untouched.")
		return nil
	}

	outcomes, err := sess.Apply(ctx)
	if err != nil {
		var ae *tree.ApplyError
		if errors.As(err, &ae) {
			for _, o := range ae.Failures {
				fmt.Fprintf(os.Stderr, "failed to apply %s: %v\n", o.Path, o.Err)
			}
			if ae.Total() {
				fmt.Fprintf(os.Stderr, "no files were applied; sandbox preserved at %s\n", sess.SandboxRoot())
				return err
			}
			fmt.Printf("Applied %d of %d files (%d failed).\n",
				ae.Applied, len(outcomes), len(ae.Failures))
			return nil
		}
		return err
	}

	fmt.Printf("Applied %d files.\n", len(outcomes))
	return nil
}

// discardQuietly releases the sandbox if the session is still active.
// Terminated sessions make this a no-op.
func discardQuietly(sess *session.Session, logger *slog.Logger) {
	if err := sess.Discard(context.Background()); err != nil {
		logger.Warn("could not remove sandbox",
			slog.String("sandbox", sess.SandboxRoot()),
			slog.String("error", err.Error()),
		)
	}
}
