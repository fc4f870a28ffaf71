// Package stats holds the small aggregation helpers shared by the engine,
// the penalty scorer and the report output.
package stats

import (
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type Number interface {
	constraints.Integer | constraints.Float
}

// Average returns the arithmetic mean of list, or 0 for an empty list.
func Average[T Number](list []T) float64 {
	if len(list) == 0 {
		return 0
	}

	var sum T
	for _, val := range list {
		sum += val
	}
	return float64(sum) / float64(len(list))
}

// Mean is Average for float samples backed by gonum.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Max returns the largest sample, or 0 for an empty slice.
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Max(data)
}

// Interval is a two-sided confidence interval around a sample mean.
type Interval struct {
	Mean       float64
	Lower      float64
	Upper      float64
	Confidence float64
	N          int
}

// HalfWidth is the distance from the mean to either bound.
func (i Interval) HalfWidth() float64 {
	return i.Upper - i.Mean
}

// MeanConfidenceInterval returns the Student-t interval of the mean at the
// given confidence (0.95 for 95%). Fewer than two samples give a zero-width
// interval.
func MeanConfidenceInterval(data []float64, confidence float64) Interval {
	iv := Interval{Confidence: confidence, N: len(data)}
	if len(data) == 0 {
		return iv
	}
	iv.Mean = Mean(data)
	iv.Lower, iv.Upper = iv.Mean, iv.Mean
	if len(data) < 2 || confidence <= 0 || confidence >= 1 {
		return iv
	}

	se := stat.StdErr(stat.StdDev(data, nil), float64(len(data)))
	if se == 0 || math.IsNaN(se) {
		return iv
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(data) - 1)}
	h := se * t.Quantile((1+confidence)/2)
	iv.Lower = iv.Mean - h
	iv.Upper = iv.Mean + h
	return iv
}

// Column extracts column i of a ragged matrix, skipping short rows.
func Column(rows [][]float64, i int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if i < len(r) {
			out = append(out, r[i])
		}
	}
	return out
}

// Flatten concatenates the rows of a matrix.
func Flatten(rows [][]float64) []float64 {
	n := 0
	for _, r := range rows {
		n += len(r)
	}
	out := make([]float64, 0, n)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
