package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/activecm/netgauge/cluster"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v2"
)

var ErrPickRequiresReport = errors.New("--pick shows the elbow in the report, it cannot be combined with --csv or --json")

func PickFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "pick",
		Aliases: []string{"p"},
		Usage:   "show the elbow first and ask for the number of clusters",
	}
}

// promptClusters asks for a cluster count between 1 and maxClusters
var promptClusters = func(defaultClusters, maxClusters int) (int, error) {
	prompt := promptui.Prompt{
		Label:    fmt.Sprintf("Number of clusters (1-%d)", maxClusters),
		Default:  strconv.Itoa(min(defaultClusters, maxClusters)),
		Validate: validateClusterCount(maxClusters),
	}

	result, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(result))
}

func validateClusterCount(maxClusters int) promptui.ValidateFunc {
	return func(input string) error {
		k, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", cluster.ErrInvalidClusterCount, input)
		}
		if k < 1 || k > maxClusters {
			return fmt.Errorf("%w: must be between 1 and %d", cluster.ErrInvalidClusterCount, maxClusters)
		}
		return nil
	}
}
