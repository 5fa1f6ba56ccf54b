// Copyright © 2018 The ELPS authors

package dispatch

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	// MeasureResolutions counts calls resolved, tagged by KeyDispatch.
	MeasureResolutions = stats.Int64("macrodispatch/resolutions", "Number of calls resolved", stats.UnitDimensionless)
	// MeasureExpansions counts successful macro expansions.
	MeasureExpansions = stats.Int64("macrodispatch/expansions", "Number of macro expansions", stats.UnitDimensionless)
	// MeasureFailures counts resolver errors, tagged by KeyCondition.
	MeasureFailures = stats.Int64("macrodispatch/failures", "Number of failed resolutions", stats.UnitDimensionless)

	KeyDispatch  = tag.MustNewKey("dispatch")
	KeyCondition = tag.MustNewKey("condition")
)

// Views returns views aggregating the resolver's measures.  Callers register
// them with view.Register.
func Views() []*view.View {
	return []*view.View{
		{
			Name:        "macrodispatch/resolutions",
			Description: "Calls resolved by dispatch kind",
			Measure:     MeasureResolutions,
			TagKeys:     []tag.Key{KeyDispatch},
			Aggregation: view.Count(),
		},
		{
			Name:        "macrodispatch/expansions",
			Description: "Macro expansions performed",
			Measure:     MeasureExpansions,
			Aggregation: view.Count(),
		},
		{
			Name:        "macrodispatch/failures",
			Description: "Resolver errors by condition",
			Measure:     MeasureFailures,
			TagKeys:     []tag.Key{KeyCondition},
			Aggregation: view.Count(),
		},
	}
}

func recordResolution(ctx context.Context, kind DispatchKind) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyDispatch, kind.String())}, MeasureResolutions.M(1))
}

func recordFailure(ctx context.Context, err error) {
	cond := "unknown"
	if e, ok := err.(Error); ok {
		cond = e.Condition()
	}
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyCondition, cond)}, MeasureFailures.M(1))
}
