// Package optim searches training hyperparameters by exhaustive grid
// evaluation.
package optim

import (
	"context"
	"math"
)

// RunFunc trains with the given hyperparameters and returns a score to
// minimize, typically the final training loss.
type RunFunc func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search evaluates every grid point and returns the best parameters and
// score. Failed runs are skipped; cancellation stops the sweep and
// returns the context error along with the best point seen so far.
func (g *GridSearch) Search(ctx context.Context, run RunFunc) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), run, &best, &bestParams)

	return bestParams, best, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	run RunFunc,
	best *float64,
	bestParams *map[string]float64,
) error {
	if depth == len(g.paramNames) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		score, err := run(ctx, current)
		if err != nil {
			return nil
		}

		if score < *best {
			*best = score
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, run, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
