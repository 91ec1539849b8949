package cluster

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidClusterCount = errors.New("number of clusters must be at least 1")
	ErrTooFewSamples       = errors.New("fewer samples than clusters")
	ErrMissingValues       = errors.New("data contains missing values")
)

const (
	DefaultInits         = 10
	DefaultMaxIterations = 300
	DefaultTolerance     = 1e-4
)

// Options controls a KMeans fit. Two fits with the same options over the same data
// produce the same labels.
type Options struct {
	Clusters      int
	Seed          int64
	Inits         int
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions returns the options used when only the cluster count is known
func DefaultOptions(clusters int) Options {
	return Options{
		Clusters:      clusters,
		Inits:         DefaultInits,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

func (o Options) withDefaults() Options {
	if o.Inits < 1 {
		o.Inits = DefaultInits
	}
	if o.MaxIterations < 1 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance < 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Model is a fitted KMeans clustering.
// Labels are ordered by cluster size, so cluster 0 is always the largest.
type Model struct {
	Centroids  *mat.Dense
	Labels     []int
	Sizes      []int
	Inertia    float64
	Iterations int
}

// KMeans clusters the rows of data with Lloyd's algorithm, seeding each of opts.Inits runs
// with k-means++ and keeping the run with the lowest inertia.
// A cluster left empty during an iteration takes over the point farthest from its centroid.
func KMeans(data mat.Matrix, opts Options) (*Model, error) {
	opts = opts.withDefaults()
	if opts.Clusters < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidClusterCount, opts.Clusters)
	}

	points := rows(data)
	if len(points) < opts.Clusters {
		return nil, fmt.Errorf("%w: %d samples, %d clusters", ErrTooFewSamples, len(points), opts.Clusters)
	}
	for _, p := range points {
		if floats.HasNaN(p) {
			return nil, ErrMissingValues
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	var best *Model
	for run := 0; run < opts.Inits; run++ {
		centroids := seedPlusPlus(points, opts.Clusters, rng)
		model := lloyd(points, centroids, opts)
		if best == nil || model.Inertia < best.Inertia {
			best = model
		}
	}

	best.orderBySize()
	return best, nil
}

// Predict assigns each row of data to its nearest centroid
func (m *Model) Predict(data mat.Matrix) []int {
	centroids := rows(m.Centroids)
	labels := make([]int, 0)
	for _, p := range rows(data) {
		label, _ := nearest(p, centroids)
		labels = append(labels, label)
	}
	return labels
}

func rows(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// nearest returns the index of the closest centroid, preferring the lowest index on ties
func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centroids {
		if d := sqDist(p, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// seedPlusPlus picks k initial centroids, each new one drawn with probability
// proportional to its squared distance from the centroids already chosen
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, slices.Clone(points[rng.Intn(len(points))]))

	dists := make([]float64, len(points))
	for i, p := range points {
		dists[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		next := len(points) - 1
		if total := floats.Sum(dists); total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range dists {
				acc += d
				if acc > target {
					next = i
					break
				}
			}
		} else {
			// every point already coincides with a centroid
			next = rng.Intn(len(points))
		}

		c := slices.Clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			dists[i] = math.Min(dists[i], sqDist(p, c))
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, opts Options) *Model {
	k := len(centroids)
	dim := len(points[0])
	labels := make([]int, len(points))
	dists := make([]float64, len(points))

	iterations := 0
	for iterations < opts.MaxIterations {
		iterations++
		for i, p := range points {
			labels[i], dists[i] = nearest(p, centroids)
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		for c := range counts {
			if counts[c] > 0 {
				continue
			}
			// empty cluster takes over the point farthest from its own centroid
			far, farDist := -1, -1.0
			for i, d := range dists {
				if counts[labels[i]] > 1 && d > farDist {
					far, farDist = i, d
				}
			}
			floats.Sub(sums[labels[far]], points[far])
			counts[labels[far]]--
			copy(sums[c], points[far])
			counts[c] = 1
			labels[far], dists[far] = c, 0
		}

		next := make([][]float64, k)
		for c := range next {
			floats.Scale(1/float64(counts[c]), sums[c])
			next[c] = sums[c]
		}

		var shift float64
		for c := range next {
			shift += sqDist(centroids[c], next[c])
		}
		centroids = next
		if shift <= opts.Tolerance {
			break
		}
	}

	model := &Model{
		Centroids:  mat.NewDense(k, dim, nil),
		Labels:     labels,
		Sizes:      make([]int, k),
		Iterations: iterations,
	}
	// a point only leaves its cluster for a strictly closer centroid, so coinciding
	// centroids keep the clusters re-seeded above
	for i, p := range points {
		label, d := nearest(p, centroids)
		if current := sqDist(p, centroids[labels[i]]); current <= d {
			label, d = labels[i], current
		}
		labels[i] = label
		model.Inertia += d
		model.Sizes[label]++
	}
	for c, centroid := range centroids {
		model.Centroids.SetRow(c, centroid)
	}
	return model
}

// orderBySize renumbers clusters by descending size, breaking ties by first appearance
func (m *Model) orderBySize() {
	k := len(m.Sizes)
	first := make([]int, k)
	for c := range first {
		first[c] = math.MaxInt
	}
	for i, l := range m.Labels {
		first[l] = min(first[l], i)
	}

	order := make([]int, k)
	for c := range order {
		order[c] = c
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if m.Sizes[a] != m.Sizes[b] {
			return cmp.Compare(m.Sizes[b], m.Sizes[a])
		}
		return cmp.Compare(first[a], first[b])
	})

	rename := make([]int, k)
	_, dim := m.Centroids.Dims()
	centroids := mat.NewDense(k, dim, nil)
	sizes := make([]int, k)
	for to, from := range order {
		rename[from] = to
		centroids.SetRow(to, m.Centroids.RawRowView(from))
		sizes[to] = m.Sizes[from]
	}
	for i, l := range m.Labels {
		m.Labels[i] = rename[l]
	}
	m.Centroids = centroids
	m.Sizes = sizes
}
