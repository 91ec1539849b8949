package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/activecm/netgauge/analysis"
	"github.com/activecm/netgauge/config"
	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/database"
	"github.com/activecm/netgauge/progressbar"
	"github.com/activecm/netgauge/table"
	"github.com/activecm/netgauge/util"
	"github.com/activecm/netgauge/viewer"

	"github.com/google/go-github/github"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ErrMissingConfigPath = errors.New("config path parameter is required")
var ErrTooManyArguments = errors.New("too many arguments provided")
var ErrConflictingFormats = errors.New("only one of --csv and --json may be set")
var ErrInvalidRowLimit = errors.New("rows must not be negative")

const (
	FormatTable = ""
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// connect opens the telemetry source named by the config
var connect = database.Connect

func Commands() []*cli.Command {
	return []*cli.Command{
		DuplicatesCommand,
		BytesCommand,
		ServersCommand,
		InterfacesCommand,
		PacketLossCommand,
		CorrelateCommand,
		ElbowCommand,
		ClusterCommand,
		ValidateConfigCommand,
	}
}

func ConfigFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Load configuration from `FILE`",
		Value:    config.DefaultConfigPath,
		Required: required,
		Action: func(_ *cli.Context, path string) error {
			return ValidateConfigPath(afero.NewOsFs(), path)
		},
	}
}

func ColumnFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "column",
		Usage: fmt.Sprintf("group sdn_metrics bytes by `COLUMN` (%s), overrides the config", constants.GroupColumns),
		Action: func(_ *cli.Context, column string) error {
			return database.ValidateGroupColumn(column)
		},
	}
}

func ClustersFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "clusters",
		Aliases: []string{"k"},
		Usage:   "number of clusters, overrides the config",
	}
}

func OutputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "csv",
			Usage: "print the result table as comma-delimited data instead of the report",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print the result table as JSON instead of the report",
		},
		&cli.IntFlag{
			Name:    "rows",
			Aliases: []string{"r"},
			Usage:   "maximum number of rows printed per report table, 0 prints every row",
			Value:   viewer.DefaultMaxRows,
		},
	}
}

// analysisFlags are shared by every command that reads the telemetry
func analysisFlags(clusters bool) []cli.Flag {
	flags := []cli.Flag{ConfigFlag(false), ColumnFlag()}
	if clusters {
		flags = append(flags, ClustersFlag())
	}
	return append(flags, OutputFlags()...)
}

// Options holds the command line settings of an analysis command
type Options struct {
	ConfigPath string
	Column     string
	Clusters   int
	Format     string
	Rows       int

	// Pick asks for the cluster count once the elbow is shown
	Pick bool

	// Out receives the report or result table
	Out io.Writer

	// Progress receives spinners and progress bars while a result table is computed, nil disables them
	Progress io.Writer
}

// ParseOptions reads the analysis flags of a command
func ParseOptions(cCtx *cli.Context) (Options, error) {
	// check if too many arguments were provided
	if cCtx.NArg() > 0 {
		return Options{}, ErrTooManyArguments
	}

	if cCtx.String("config") == "" {
		return Options{}, ErrMissingConfigPath
	}

	opts := Options{
		ConfigPath: cCtx.String("config"),
		Column:     cCtx.String("column"),
		Clusters:   cCtx.Int("clusters"),
		Rows:       cCtx.Int("rows"),
		Pick:       cCtx.Bool("pick"),
		Out:        os.Stdout,
		Progress:   os.Stderr,
	}

	switch {
	case cCtx.Bool("csv") && cCtx.Bool("json"):
		return Options{}, ErrConflictingFormats
	case cCtx.Bool("csv"):
		opts.Format = FormatCSV
	case cCtx.Bool("json"):
		opts.Format = FormatJSON
	}

	if opts.Rows < 0 {
		return Options{}, ErrInvalidRowLimit
	}

	if opts.Pick && opts.Format != FormatTable {
		return Options{}, ErrPickRequiresReport
	}

	return opts, nil
}

// LoadConfig reads the config file and applies the command line overrides
func LoadConfig(afs afero.Fs, opts Options) (*config.Config, error) {
	cfg, err := config.ReadFileConfig(afs, opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.Column != "" {
		cfg.Anomaly.GroupBy = opts.Column
	}
	if opts.Clusters > 0 {
		cfg.Clustering.Clusters = opts.Clusters
		cfg.Clustering.MaxElbowClusters = max(cfg.Clustering.MaxElbowClusters, opts.Clusters)
	}

	// overrides have to pass the same rules as the file
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newAnalyzer connects to the telemetry source and returns an analyzer reporting to
// opts.Out, unless a result table format was requested
func newAnalyzer(ctx context.Context, cfg *config.Config, opts Options) (*analysis.Analyzer, error) {
	src, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var reporter analysis.Reporter = analysis.NopReporter{}
	if opts.Format == FormatTable {
		printer := viewer.NewPrinter(opts.Out)
		printer.MaxRows = opts.Rows
		reporter = printer
	}

	analyzer, err := analysis.NewAnalyzer(src, cfg, reporter)
	if err != nil {
		src.Close()
		return nil, err
	}
	return analyzer, nil
}

// runAnalysis loads the config, runs fn against a connected analyzer and checks for
// updates once it is done
func runAnalysis(afs afero.Fs, opts Options, fn func(ctx context.Context, analyzer *analysis.Analyzer) error) error {
	cfg, err := LoadConfig(afs, opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	analyzer, err := newAnalyzer(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer analyzer.Source.Close()

	if err := fn(ctx, analyzer); err != nil {
		return err
	}

	// check for updates after running the command
	return CheckForUpdate(cfg)
}

// spin shows a spinner while fn runs if a result table was requested. The report
// format prints every step as it finishes instead.
func (o Options) spin(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if o.Format == FormatTable || o.Progress == nil {
		return fn(ctx)
	}
	return progressbar.Spin(ctx, o.Progress, name, fn)
}

// writeTable prints t in the requested result format. The report format has already
// been printed by the analyzer.
func (o Options) writeTable(t *table.Table) error {
	var out string
	var err error
	switch o.Format {
	case FormatCSV:
		out, err = viewer.FormatToCSV(t)
	case FormatJSON:
		out, err = viewer.FormatToJSON(t)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(o.Out, out)
	return err
}

func CheckForUpdate(cfg *config.Config) error {
	// get the current version
	currentVersion := config.Version

	// check for update if version is set
	if cfg.UpdateCheckEnabled && currentVersion != "" && currentVersion != "dev" {
		newer, latestVersion, err := util.CheckForNewerVersion(github.NewClient(nil), currentVersion)
		if err != nil {
			return fmt.Errorf("error checking for newer version of netgauge: %w", err)
		}
		if newer {
			fmt.Fprintf(os.Stderr, "\n\t✨ A newer version (%s) of netgauge is available! https://github.com/activecm/netgauge/releases ✨\n\n", latestVersion)
		}
	}
	return nil
}
