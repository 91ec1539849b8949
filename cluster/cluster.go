// Package cluster groups entities into behavioural clusters two ways, KMeans on min-max
// scaled features and KMeans on a PCA projection of standard scaled features, and
// reconciles the two labelings into agreement or disagreement per entity.
package cluster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrKeyCount = errors.New("number of keys does not match number of rows")

// RunOptions configures both clusterings of a Run
type RunOptions struct {
	Options
	Components  int
	AlignLabels bool
}

// Result holds the output of both methods and their reconciliation
type Result struct {
	KNN            Labels
	PCA            Labels
	KNNModel       *Model
	PCAModel       *Model
	Reconciliation *Reconciliation
}

// KNNLabels min-max scales data and clusters the scaled rows
func KNNLabels(keys []string, data mat.Matrix, opts Options) (Labels, *Model, error) {
	if err := checkKeys(keys, data); err != nil {
		return nil, nil, err
	}
	model, err := KMeans(MinMaxScale(data), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to cluster scaled features: %w", err)
	}
	labels, err := NewLabels(keys, model.Labels)
	return labels, model, err
}

// PCALabels standard scales data, projects it onto its principal components and
// clusters the projection
func PCALabels(keys []string, data mat.Matrix, components int, opts Options) (Labels, *Model, error) {
	if err := checkKeys(keys, data); err != nil {
		return nil, nil, err
	}
	projected, err := ProjectPCA(StandardScale(data), components)
	if err != nil {
		return nil, nil, err
	}
	model, err := KMeans(projected, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to cluster principal components: %w", err)
	}
	labels, err := NewLabels(keys, model.Labels)
	return labels, model, err
}

// Run clusters the rows of data with both methods and reconciles the results.
// keys identify the rows of data in order.
func Run(keys []string, data mat.Matrix, opts RunOptions) (*Result, error) {
	if opts.Components == 0 {
		opts.Components = DefaultComponents
	}

	knn, knnModel, err := KNNLabels(keys, data, opts.Options)
	if err != nil {
		return nil, err
	}
	pca, pcaModel, err := PCALabels(keys, data, opts.Components, opts.Options)
	if err != nil {
		return nil, err
	}
	if opts.AlignLabels {
		pca = AlignLabels(knn, pca)
	}

	reconciliation, err := Reconcile(knn, pca)
	if err != nil {
		return nil, err
	}
	return &Result{
		KNN:            knn,
		PCA:            pca,
		KNNModel:       knnModel,
		PCAModel:       pcaModel,
		Reconciliation: reconciliation,
	}, nil
}

func checkKeys(keys []string, data mat.Matrix) error {
	r, _ := data.Dims()
	if len(keys) != r {
		return fmt.Errorf("%w: %d keys, %d rows", ErrKeyCount, len(keys), r)
	}
	return nil
}
