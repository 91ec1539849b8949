package main

import (
	"fmt"
	"os"

	"github.com/activecm/netgauge/cmd"
	"github.com/activecm/netgauge/config"
	"github.com/activecm/netgauge/logger"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version is populated by build flags with the current Git tag
var Version string

const defaultEnvFile = "./.env"

func main() {
	config.Version = Version

	if err := newApp().Run(os.Args); err != nil {
		logger := logger.GetLogger()
		logger.Fatal().Err(err).Send()
	}
}

func newApp() *cli.App {
	return &cli.App{
		EnableBashCompletion: true,
		Commands:             cmd.Commands(),
		Name:                 "netgauge",
		Usage:                "Profile SDN servers from their traffic and path telemetry",
		UsageText:            "netgauge [--debug] [--env-file FILE] command [command options]",
		Version:              Version,
		Args:                 true,
		ExitErrHandler:       exitErrHandler,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Log every query and analysis step with its run id",
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Read the database address and credentials from `FILE`",
				Value:   defaultEnvFile,
			},
		},
		Before: loadEnvironment,
	}
}

// loadEnvironment sets the log mode and loads the database settings into the environment.
// Global flags must come before the subcommand.
func loadEnvironment(cCtx *cli.Context) error {
	logger.DebugMode = os.Getenv("APP_ENV") == "dev" || cCtx.Bool("debug")

	// variables already set in the environment win over the file
	if err := godotenv.Load(cCtx.String("env-file")); err != nil {
		return fmt.Errorf("could not load environment file %q: %w", cCtx.String("env-file"), err)
	}
	return nil
}

// exitErrHandler implements cli.ExitErrHandlerFunc
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(c.App.ErrWriter, "\n\n\t[!] %+v\n\n", err.Error())
	cli.OsExiter(1)
}
