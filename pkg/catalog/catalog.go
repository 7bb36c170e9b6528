// Package catalog declares the fixed set of metadata-fetch operations: one
// descriptor per operation, each with its own timeout and retry policy, paired
// with the function that executes it. The catalog order defines the positional
// slot every outcome keeps through aggregation.
package catalog

import (
	"context"
	"math"
	"time"

	"github.com/neosense/neosense/pkg/graph"
)

// RetryPolicy bounds the attempts of a single operation. Waits grow
// exponentially and are capped at MaxBackoff.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// Backoff returns the wait before retry number retry (zero-based):
// min(initial × multiplier^retry, max).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	wait := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(retry))
	if wait > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}

	return time.Duration(wait)
}

// Fetch executes one metadata-collection operation against the shared client.
type Fetch func(ctx context.Context, client graph.Client) (any, error)

// Operation is one immutable catalog entry, shared read-only by all runs.
type Operation struct {
	Name    string
	Timeout time.Duration
	Retry   RetryPolicy
	Fetch   Fetch
}

// Outcome is the positional result of one operation: either a payload or an
// error, never both.
type Outcome struct {
	Name    string
	Payload any
	Err     error
}

// Failed reports whether the operation exhausted its retries.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Positional slots of the default catalog. Aggregation assumes this order.
const (
	SlotNodeLabels = iota
	SlotRelationshipTypes
	SlotSchemaDetails
	SlotIndexes
	SlotLineagePatterns
	SlotQualityMetrics
	SlotBusinessContext
	SlotGraphStatistics

	SlotCount
)

const (
	fetchTimeout  = 5 * time.Minute
	gatingTimeout = time.Minute
)

func fetchPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
	}
}

// Default returns the process-wide operation catalog, slot-aligned to the
// Slot constants above.
func Default() []Operation {
	policy := fetchPolicy()

	return []Operation{
		SlotNodeLabels:        {Name: "node_labels", Timeout: fetchTimeout, Retry: policy, Fetch: fetchNodeLabels},
		SlotRelationshipTypes: {Name: "relationship_types", Timeout: fetchTimeout, Retry: policy, Fetch: fetchRelationshipTypes},
		SlotSchemaDetails:     {Name: "schema_details", Timeout: fetchTimeout, Retry: policy, Fetch: fetchSchemaDetails},
		SlotIndexes:           {Name: "indexes", Timeout: fetchTimeout, Retry: policy, Fetch: fetchIndexes},
		SlotLineagePatterns:   {Name: "lineage_patterns", Timeout: fetchTimeout, Retry: policy, Fetch: fetchLineagePatterns},
		SlotQualityMetrics:    {Name: "quality_metrics", Timeout: fetchTimeout, Retry: policy, Fetch: QualityFetch(DefaultQualityProbes())},
		SlotBusinessContext:   {Name: "business_context", Timeout: fetchTimeout, Retry: policy, Fetch: fetchBusinessContext},
		SlotGraphStatistics:   {Name: "graph_statistics", Timeout: fetchTimeout, Retry: policy, Fetch: fetchGraphStatistics},
	}
}

// Preflight is the gating connectivity check. It carries a higher attempt
// budget than the fan-out operations since exhausting it fails the whole run.
func Preflight() Operation {
	return Operation{
		Name:    "preflight_check",
		Timeout: gatingTimeout,
		Retry: RetryPolicy{
			MaxAttempts:    5,
			InitialBackoff: time.Second,
			MaxBackoff:     15 * time.Second,
			Multiplier:     2,
		},
		Fetch: func(ctx context.Context, client graph.Client) (any, error) {
			return nil, client.VerifyConnectivity(ctx)
		},
	}
}
