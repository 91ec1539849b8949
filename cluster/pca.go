package cluster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrPCAFailed         = errors.New("principal component decomposition failed")
	ErrInvalidComponents = errors.New("number of components must be at least 1")
)

// DefaultComponents is the dimensionality the PCA view of the data is reduced to
const DefaultComponents = 2

// ProjectPCA projects the centred rows of data onto its first principal components.
// The component count is capped at the smaller dimension of data.
func ProjectPCA(data mat.Matrix, components int) (*mat.Dense, error) {
	if components < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidComponents, components)
	}
	r, c := data.Dims()
	components = min(components, r, c)

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, ErrPCAFailed
	}
	var vectors mat.Dense
	pc.VectorsTo(&vectors)

	centred := mat.DenseCopyOf(data)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, centred)
		mean := stat.Mean(col, nil)
		for i := range col {
			col[i] -= mean
		}
		centred.SetCol(j, col)
	}

	var projected mat.Dense
	projected.Mul(centred, vectors.Slice(0, c, 0, components))
	return &projected, nil
}
