package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/util"
	"github.com/go-playground/validator/v10"

	"github.com/hjson/hjson-go/v4"
	"github.com/spf13/afero"
)

var Version string

const DefaultConfigPath = "./config.hjson"

const (
	ClickHouseDriver = "clickhouse"
	PostgresDriver   = "postgres"
)

var errReadingConfigFile = errors.New("encountered an error while reading the config file")

type (
	Config struct {
		Env        Env `json:"env" validate:"required"`
		NetGauge   `validate:"required"`
		Database   Database   `json:"database" validate:"required"`
		Anomaly    Anomaly    `json:"anomaly" validate:"required"`
		Clustering Clustering `json:"clustering" validate:"required"`
	}

	Env struct { // set by .env file
		DBConnection string `validate:"required,hostname_port"` // DB_ADDRESS
		DBUsername   string `json:"-"`                          // DB_USERNAME
		DBPassword   string `json:"-"`                          // DB_PASSWORD
		LogLevel     int8   `validate:"min=0,max=6"`            // LOG_LEVEL
	}

	NetGauge struct {
		UpdateCheckEnabled    bool    `json:"update_check_enabled" validate:"boolean"`
		MaxQueryExecutionTime int32   `json:"max_query_execution_time" validate:"gte=1,lte=2000000"`
		DuplicateChecksPerSec float64 `json:"duplicate_checks_per_second" validate:"gt=0,lte=1000"`
	}

	Database struct {
		Driver  string `json:"driver" validate:"oneof=clickhouse postgres"`
		Name    string `json:"name" validate:"required"`
		SSLMode string `json:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	}

	Anomaly struct {
		// column the sdn_metrics byte averages are grouped by before looking for outliers
		GroupBy string `json:"group_by" validate:"group_column"`
	}

	Clustering struct {
		Clusters         int      `json:"clusters" validate:"gte=1,lte=50"`
		MaxElbowClusters int      `json:"max_elbow_clusters" validate:"gte=1,lte=50"`
		PCAComponents    int      `json:"pca_components" validate:"gte=1"`
		Seed             int64    `json:"seed"`
		Inits            int      `json:"inits" validate:"gte=1,lte=100"`
		MaxIterations    int      `json:"max_iterations" validate:"gte=1"`
		Tolerance        float64  `json:"tolerance" validate:"gte=0"`
		AlignLabels      bool     `json:"align_labels" validate:"boolean"`
		Features         []string `json:"features" validate:"required,min=2,unique,dive,feature_column"`
	}
)

// ReadFileConfig attempts to read the config file at the specified path and
// returns a config object, with defaults for every value the file leaves out
func ReadFileConfig(afs afero.Fs, path string) (*Config, error) {
	// read the config file
	contents, err := util.GetFileContents(afs, path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := unmarshal(contents, &cfg, nil); err != nil {
		return nil, fmt.Errorf("%w, located by default at '%s', please correct the issue in the config and try again:\n\t- %w", errReadingConfigFile, path, err)
	}

	return &cfg, nil
}

// ReadConfigFromMemory reads the config from bytes already read into memory as opposed to reading from a file
// It also provides its own environment struct that must already be completely set
func ReadConfigFromMemory(data []byte, env Env) (*Config, error) {
	var cfg Config
	if err := unmarshal(data, &cfg, &env); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setEnv() error {
	// get the database connection string
	connection := os.Getenv("DB_ADDRESS")
	if connection == "" {
		return errors.New("environment variable DB_ADDRESS not set")
	}
	c.Env.DBConnection = connection

	dbUsername := os.Getenv("DB_USERNAME")
	if dbUsername == "" {
		return errors.New("environment variable DB_USERNAME not set")
	}
	c.Env.DBUsername = dbUsername
	// don't check if DB_PASSWORD is set because it can be empty
	c.Env.DBPassword = os.Getenv("DB_PASSWORD")

	// get the log level
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		return errors.New("environment variable LOG_LEVEL not set")
	}
	logLevel, err := strconv.Atoi(logLevelStr)
	if err != nil {
		return fmt.Errorf("unable to convert LOG_LEVEL to int: %w", err)
	}
	c.Env.LogLevel = int8(logLevel)

	return nil
}

// unmarshal unmarshals the data into the config struct, sets the environment variables, and validates the values
func unmarshal(data []byte, cfg *Config, env *Env) error {
	if err := hjson.Unmarshal(data, &cfg); err != nil {
		return err
	}

	// the environment MUST be set before validating, since validation
	// checks for the presence of the environment variables
	if env == nil {
		if err := cfg.setEnv(); err != nil {
			return fmt.Errorf("unable to set environment: %w", err)
		}
	} else {
		cfg.Env = *env
	}

	return cfg.Validate()
}

// UnmarshalJSON unmarshals the JSON bytes on top of the default config
func (c *Config) UnmarshalJSON(bytes []byte) error {
	// unmarshalling into Config directly would loop forever
	type tmpConfig Config
	tmpCfg := tmpConfig(GetDefaultConfig())

	if err := hjson.Unmarshal(bytes, &tmpCfg); err != nil {
		return err
	}

	*c = Config(tmpCfg)
	return nil
}

// GetDefaultConfig returns a Config object with default values
func GetDefaultConfig() Config {
	// set version to dev if not set
	if Version == "" {
		Version = "dev"
	}

	return defaultConfig()
}

// Reset resets the config values to default
// note: Env values are not reset
func (cfg *Config) Reset() error {
	env := cfg.Env

	*cfg = GetDefaultConfig()
	cfg.Env = env

	return cfg.Validate()
}

// Validate validates the config struct values
func (cfg *Config) Validate() error {
	zlog := logger.GetLogger()
	zlog.Debug().Interface("config", cfg).Msg("validating config")

	validate, err := NewValidator()
	if err != nil {
		return err
	}

	return validate.Struct(cfg)
}

// NewValidator creates a new validator with custom validation rules
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// only the allow-listed sdn_metrics columns may be interpolated into a grouping query
	if err := v.RegisterValidation("group_column", func(fl validator.FieldLevel) bool {
		return slices.Contains(constants.GroupColumns, fl.Field().String())
	}); err != nil {
		return nil, err
	}

	if err := v.RegisterValidation("feature_column", func(fl validator.FieldLevel) bool {
		return slices.Contains(constants.FeatureColumns, fl.Field().String())
	}); err != nil {
		return nil, err
	}

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		value := sl.Current().Interface().(Clustering)
		if value.MaxElbowClusters < value.Clusters {
			sl.ReportError(value.MaxElbowClusters, "MaxElbowClusters", "MaxElbowClusters", "elbow_covers_clusters", "")
		}
	}, Clustering{})

	return v, nil
}

// return a copy of the default config object
func defaultConfig() Config {
	return Config{
		NetGauge: NetGauge{
			UpdateCheckEnabled:    true,
			MaxQueryExecutionTime: 240,
			DuplicateChecksPerSec: 2,
		},
		Database: Database{
			Driver:  ClickHouseDriver,
			Name:    "sdn",
			SSLMode: "disable",
		},
		Anomaly: Anomaly{
			GroupBy: constants.AgentsPairColumn,
		},
		Clustering: Clustering{
			Clusters:         2,
			MaxElbowClusters: 7,
			PCAComponents:    2,
			Seed:             0,
			Inits:            10,
			MaxIterations:    300,
			Tolerance:        1e-4,
			AlignLabels:      false,
			Features:         slices.Clone(constants.FeatureColumns),
		},
	}
}
