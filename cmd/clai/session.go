package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jkaninda/clai/internal/render"
	"github.com/jkaninda/clai/internal/session"
)

var sessionDir string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start an interactive sandbox session",
	Long: `Session opens an interactive loop over a single sandbox. Each line is
executed as a shell command inside the sandbox copy. Built-in commands:

  changes   show the current change-set
  history   show the commands run so far
  apply     apply the change-set to the original directory and exit
  discard   drop all changes and exit (also: exit, quit)`,
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().StringVarP(&sessionDir, "dir", "d", ".", "directory to sandbox")
}

func runSession(cmd *cobra.Command, _ []string) error {
	sc, err := initShared()
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	ctx := cmd.Context()
	sess, err := session.New(sessionDir, sc.sessionOptions(sessionDir))
	if err != nil {
		return err
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer discardQuietly(sess, sc.Logger)

	fmt.Printf("Sandbox session %s started over %s\n", sess.ID(), sess.OriginalRoot())
	fmt.Println("Commands run in the sandbox copy; type 'apply' or 'discard' to finish.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("clai> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "changes":
			changes, err := sess.Changes(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(render.Changes(changes))

		case "history":
			fmt.Println(render.History(sess.ID(), sess.History()))

		case "apply":
			return reviewAndFinish(ctx, sess, sc)

		case "discard", "exit", "quit":
			if err := sc.saveTranscript(sess); err != nil {
				sc.Logger.Warn("could not save session transcript", slog.String("error", err.Error()))
			}
			if err := sess.Discard(ctx); err != nil {
				return err
			}
			fmt.Println("Changes discarded; original directory untouched.")
			return nil

		case "help":
			fmt.Println("built-ins: changes, history, apply, discard (exit, quit), help")

		default:
			result, err := sess.RunCommand(ctx, []string{"sh", "-c", line}, "")
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(render.Result(result))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// EOF without an explicit decision drops the sandbox.
	return sess.Discard(ctx)
}
