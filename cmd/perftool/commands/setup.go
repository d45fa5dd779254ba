// Package commands implements the perftool CLI commands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xmozak/perftool/internal/config"
	"github.com/0xmozak/perftool/internal/workspace"
)

// ConfigFlag is the persistent flag naming the configuration file.
const ConfigFlag = "config"

// environment bundles the collaborators every command starts from: the loaded
// configuration and the workspace layout rooted at the working directory.
type environment struct {
	cfg    *config.Config
	layout workspace.Layout
}

// loadEnvironment reads the configuration named by --config and builds the
// workspace layout. Called at the top of every RunE.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	path, flagErr := cmd.Flags().GetString(ConfigFlag)
	if flagErr != nil {
		return nil, flagErr
	}

	if path == "" {
		path = config.DefaultFile
	}

	cfg, loadErr := config.Load(path)
	if loadErr != nil {
		return nil, loadErr
	}

	wd, wdErr := os.Getwd()
	if wdErr != nil {
		return nil, fmt.Errorf("working directory: %w", wdErr)
	}

	return &environment{cfg: cfg, layout: workspace.NewLayout(wd)}, nil
}

// resolveBench looks up the benchmark named on the command line.
func (e *environment) resolveBench(name string) (config.Bench, error) {
	return e.cfg.Bench(name)
}
