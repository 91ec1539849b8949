package cluster

import (
	"gonum.org/v1/gonum/mat"
)

// ElbowPoint is the inertia of a KMeans fit with a given number of clusters
type ElbowPoint struct {
	Clusters int     `json:"clusters"`
	Inertia  float64 `json:"inertia"`
}

// Elbow fits KMeans on the min-max scaled data for every cluster count from 1 to
// maxClusters (capped at the number of rows). step, if set, is called after each fit.
func Elbow(data mat.Matrix, maxClusters int, opts Options, step func(ElbowPoint)) ([]ElbowPoint, error) {
	if maxClusters < 1 {
		return nil, ErrInvalidClusterCount
	}
	r, _ := data.Dims()
	if r == 0 {
		return nil, ErrTooFewSamples
	}
	maxClusters = min(maxClusters, r)

	scaled := MinMaxScale(data)
	points := make([]ElbowPoint, 0, maxClusters)
	for k := 1; k <= maxClusters; k++ {
		opts.Clusters = k
		model, err := KMeans(scaled, opts)
		if err != nil {
			return nil, err
		}
		point := ElbowPoint{Clusters: k, Inertia: model.Inertia}
		points = append(points, point)
		if step != nil {
			step(point)
		}
	}
	return points, nil
}
