package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jkaninda/clai/internal/config"
	"github.com/jkaninda/clai/internal/workspace"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file and create the workspace",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
}

func runInit(_ *cobra.Command, _ []string) error {
	path := config.DefaultPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Audit = &config.AuditConfig{Backend: "file"}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote config to %s\n", path)

	ws, err := workspace.New(cfg.Workspace)
	if err != nil {
		return err
	}
	if err := ws.EnsureAll(); err != nil {
		return err
	}
	fmt.Printf("Workspace ready at %s\n", ws.Root)
	return nil
}
