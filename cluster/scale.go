package cluster

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinMaxScale maps every column of m onto [0, 1].
// Constant columns map to 0.
func MinMaxScale(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		lo, hi := floats.Min(col), floats.Max(col)
		span := hi - lo
		for i, v := range col {
			if span == 0 {
				col[i] = 0
				continue
			}
			col[i] = (v - lo) / span
		}
		out.SetCol(j, col)
	}
	return out
}

// StandardScale centres every column of m on zero and divides it by its population
// standard deviation. Constant columns map to 0.
func StandardScale(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		mean, std := stat.PopMeanStdDev(col, nil)
		for i, v := range col {
			if std == 0 {
				col[i] = 0
				continue
			}
			col[i] = (v - mean) / std
		}
		out.SetCol(j, col)
	}
	return out
}
