/*
 * Copyright (c) 2023, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package plan

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// A Stage is one independent sub-query producing the ids matching a single
// facet of the request.
type Stage struct {
	Name string
	Run  func(context.Context) (IDSet, error)
}

type Result struct {
	IDs IDSet
	// Restricted is false when no stage ran, meaning the request names no
	// facet and the caller should treat it as unrestricted.
	Restricted bool
	// ShortCircuited is set when a stage came back empty and the remaining
	// stages were abandoned.
	ShortCircuited string
}

// Execute runs every stage concurrently and intersects their results in
// stage order. As soon as one stage returns an empty set the others are
// cancelled and the result is empty. Otherwise every stage is awaited, and
// the first failing stage (in stage order) decides the returned error.
func Execute(ctx context.Context, log zerolog.Logger, stages []Stage) (Result, error) {
	if len(stages) == 0 {
		return Result{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sets  = make([]NamedSet, len(stages))
		errs  = make([]error, len(stages))
		empty atomic.Value
	)

	p := pool.New().WithContext(ctx)
	for i, stage := range stages {
		p.Go(func(ctx context.Context) error {
			ids, err := stage.Run(ctx)
			if err != nil {
				errs[i] = err
				return err
			}
			sets[i] = NamedSet{Name: stage.Name, IDs: ids}
			log.Trace().Str("stage", stage.Name).Int("matches", len(ids)).Msg("stage finished")
			if len(ids) == 0 && empty.CompareAndSwap(nil, stage.Name) {
				cancel()
			}
			return nil
		})
	}
	_ = p.Wait()

	if name, ok := empty.Load().(string); ok {
		log.Debug().Str("stage", name).Msg("empty stage, short circuiting")
		return Result{IDs: IDSet{}, Restricted: true, ShortCircuited: name}, nil
	}

	for i, err := range errs {
		if err != nil {
			log.Debug().Str("stage", stages[i].Name).Err(err).Msg("stage failed")
			return Result{}, err
		}
	}

	ids, _ := Intersect(sets)
	return Result{IDs: ids, Restricted: true}, nil
}
