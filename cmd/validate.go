package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/activecm/netgauge/config"
	"github.com/activecm/netgauge/util"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ErrInvalidConfig = errors.New("encountered invalid configuration values")

var ValidateConfigCommand = &cli.Command{
	Name:        "validate",
	Usage:       "check a netgauge configuration file",
	UsageText:   "validate [--config FILE]",
	Description: "reads the configuration file and the environment, validates every setting and prints what the analyses will use",
	Args:        false,
	Flags: []cli.Flag{
		ConfigFlag(false),
	},
	Action: func(cCtx *cli.Context) error {
		if cCtx.String("config") == "" {
			return ErrMissingConfigPath
		}
		if cCtx.NArg() > 0 {
			return ErrTooManyArguments
		}

		cfg, err := RunValidateConfigCommand(afero.NewOsFs(), os.Stdout, cCtx.String("config"))
		if err != nil {
			return err
		}

		return CheckForUpdate(cfg)
	},
}

// RunValidateConfigCommand loads the config at configPath and writes the settings the
// analyses will run with to out
func RunValidateConfigCommand(afs afero.Fs, out io.Writer, configPath string) (*config.Config, error) {
	if err := ValidateConfigPath(afs, configPath); err != nil {
		return nil, err
	}

	cfg, err := config.ReadFileConfig(afs, configPath)
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrInvalidConfig, configPath, err)
	}

	fmt.Fprintf(out, "\n\t[✨] %s is valid\n\n", configPath)
	fmt.Fprintf(out, "\tsource:     %s database %q at %s\n", cfg.Database.Driver, cfg.Database.Name, cfg.Env.DBConnection)
	fmt.Fprintf(out, "\tanomalies:  byte averages grouped by %s\n", cfg.Anomaly.GroupBy)
	fmt.Fprintf(out, "\tclustering: %d clusters (elbow up to %d) on %s\n\n",
		cfg.Clustering.Clusters, cfg.Clustering.MaxElbowClusters, strings.Join(cfg.Clustering.Features, ", "))

	return cfg, nil
}

// ValidateConfigPath checks that configPath names an existing file
func ValidateConfigPath(afs afero.Fs, configPath string) error {
	if configPath == "" {
		return ErrMissingConfigPath
	}

	if _, err := util.ParseRelativePath(configPath); err != nil {
		return err
	}

	return util.ValidateFile(afs, configPath)
}
