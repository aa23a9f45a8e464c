package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/TurnGo/internal/config"
	"github.com/cjeanneret/TurnGo/internal/debug"
)

// app carries the state shared by the subcommands.
type app struct {
	cfgPath string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "turngo",
		Short: "Motorized turntable for photo sequences and continuous scans",
		Long: `TurnGo drives a stepper turntable and a camera over its remote cable.
It takes evenly spaced photos over a sweep, or rotates continuously for
video scans, controlled from a four-key keypad.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")

	root.AddCommand(newRunCmd(a), newPlanCmd(a), newConfigCmd(a))
	return root
}

// loadConfig reads the config file, applies TURNGO_* overrides and
// initializes the debug log.
func (a *app) loadConfig() error {
	if err := config.ValidateConfigPath(a.cfgPath); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if err := config.ApplyEnv(cfg, nil); err != nil {
		return err
	}
	a.cfg = cfg

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", a.cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	for _, w := range cfg.Warnings {
		debug.Info("config: %s", w)
	}
	return nil
}
