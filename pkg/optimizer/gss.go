// Package optimizer implements a golden-section search over an integer
// control parameter.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/markphelps/optional"

	"github.com/powersim/powersim/pkg/logging"
	"github.com/powersim/powersim/pkg/metrics"
)

// Phi is the inverse golden ratio.
var Phi = (math.Sqrt(5) - 1) / 2

var ErrInvalidBounds = errors.New("invalid search bounds")

// Objective is the function being minimized. Each call may be expensive.
type Objective func(ctx context.Context, x int) (float64, error)

// Config bounds the search.
type Config struct {
	Lower         int
	Upper         int
	Tolerance     float64
	MaxIterations int
}

// Iteration is one row of the search trace, taken before the bracket update.
type Iteration struct {
	Iteration int
	X1, X2    int
	FX1, FX2  float64
	Width     float64
}

// Result is the final state of a search. Converged is false when the
// iteration budget ran out first; that is a normal outcome.
type Result struct {
	A, B        int
	X1, X2      int
	FX1, FX2    float64
	Iterations  int
	Evaluations int
	Converged   bool
	Trace       []Iteration
}

// Width is the final bracket width |b - a|.
func (r *Result) Width() float64 {
	return math.Abs(float64(r.B - r.A))
}

// Best returns the interior point with the lower objective value.
func (r *Result) Best() (int, float64) {
	if r.FX1 <= r.FX2 {
		return r.X1, r.FX1
	}
	return r.X2, r.FX2
}

// GSS is a golden-section search minimizer.
type GSS struct {
	config   Config
	recorder *metrics.Recorder
}

func New(cfg Config, recorder *metrics.Recorder) *GSS {
	return &GSS{config: cfg, recorder: recorder}
}

// Minimize searches [Lower, Upper] for the minimum of f. Interior points are
// rounded outwards (floor for x1, ceil for x2) to stay on integers.
func (g *GSS) Minimize(ctx context.Context, f Objective) (*Result, error) {
	cfg := g.config
	if cfg.Upper < cfg.Lower {
		return nil, fmt.Errorf("%w: lower %d > upper %d", ErrInvalidBounds, cfg.Lower, cfg.Upper)
	}
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("%w: maxIterations must be at least 1", ErrInvalidBounds)
	}

	log := logging.FromContext(ctx)
	res := &Result{A: cfg.Lower, B: cfg.Upper}
	eval := func(x int) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		res.Evaluations++
		fx, err := f(ctx, x)
		if err != nil {
			return 0, fmt.Errorf("objective at %d: %w", x, err)
		}
		return fx, nil
	}

	var err error
	res.X1 = lowerPoint(res.A, res.B)
	res.X2 = upperPoint(res.A, res.B)
	if res.FX1, err = eval(res.X1); err != nil {
		return nil, err
	}
	if res.FX2, err = eval(res.X2); err != nil {
		return nil, err
	}
	res.Iterations = 1

	for !g.converged(res) && res.Iterations < cfg.MaxIterations {
		res.Trace = append(res.Trace, Iteration{
			Iteration: res.Iterations,
			X1:        res.X1,
			X2:        res.X2,
			FX1:       res.FX1,
			FX2:       res.FX2,
			Width:     res.Width(),
		})
		log.V(logging.DEBUG).Info("Golden-section iteration",
			"iteration", res.Iterations, "x1", res.X1, "x2", res.X2, "fx1", res.FX1, "fx2", res.FX2, "a", res.A, "b", res.B)

		if res.FX1 < res.FX2 {
			// minimum lies in [a, x2]
			res.B = res.X2
			res.X2, res.FX2 = res.X1, res.FX1
			res.X1 = lowerPoint(res.A, res.B)
			if res.FX1, err = eval(res.X1); err != nil {
				return nil, err
			}
		} else {
			// minimum lies in [x1, b]
			res.A = res.X1
			res.X1, res.FX1 = res.X2, res.FX2
			res.X2 = upperPoint(res.A, res.B)
			if res.FX2, err = eval(res.X2); err != nil {
				return nil, err
			}
		}
		res.Iterations++
		g.recorder.ObserveIteration(res.Iterations, res.Width())
	}

	res.Converged = g.converged(res)
	x, fx := res.Best()
	if res.Converged {
		log.Info("Golden-section search converged", "iterations", res.Iterations, "a", res.A, "b", res.B, "best", x, "penalty", fx)
	} else {
		log.Info("Golden-section search did not converge", "iterations", res.Iterations, "a", res.A, "b", res.B, "best", x, "penalty", fx)
	}
	return res, nil
}

func (g *GSS) converged(res *Result) bool {
	return res.Width() <= g.config.Tolerance
}

func lowerPoint(a, b int) int {
	return int(math.Floor(Phi*float64(a) + (1-Phi)*float64(b)))
}

func upperPoint(a, b int) int {
	return int(math.Ceil((1-Phi)*float64(a) + Phi*float64(b)))
}

// Memoize wraps f so that every point is evaluated once. Only useful for
// deterministic objectives; the penalty scorer is stochastic.
func Memoize(f Objective) Objective {
	cache := map[int]optional.Float64{}
	return func(ctx context.Context, x int) (float64, error) {
		if v, err := cache[x].Get(); err == nil {
			return v, nil
		}
		fx, err := f(ctx, x)
		if err != nil {
			return 0, err
		}
		cache[x] = optional.NewFloat64(fx)
		return fx, nil
	}
}
