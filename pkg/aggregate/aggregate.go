// Package aggregate merges positional operation outcomes into the fixed
// four-section report and computes the derived quality and lineage analytics.
// Everything here is pure: no I/O, total over any outcome set.
package aggregate

import (
	"github.com/neosense/neosense/pkg/catalog"
	"github.com/neosense/neosense/pkg/graph"
	"github.com/neosense/neosense/pkg/report"
)

// MaxPotentialFlows caps the potential data flow enumeration.
const MaxPotentialFlows = 10

// Aggregate builds the report from the outcome list, which must be positioned
// by catalog slot. A failed or missing outcome contributes its section's
// empty shape instead of aborting; failed operation names are surfaced on the
// report for observability.
func Aggregate(outcomes []catalog.Outcome) *report.Report {
	aggregated := &report.Report{
		SchemaInformation:  report.EmptySchema(),
		BusinessContext:    report.EmptyBusiness(),
		LineageInformation: report.EmptyLineage(),
		QualityMetrics:     report.EmptyQuality(),
	}

	for _, outcome := range outcomes {
		if outcome.Failed() {
			aggregated.FailedOperations = append(aggregated.FailedOperations, outcome.Name)
		}
	}

	labels, _ := payloadAt[[]string](outcomes, catalog.SlotNodeLabels)
	relTypes, _ := payloadAt[[]string](outcomes, catalog.SlotRelationshipTypes)

	aggregated.SchemaInformation.NodeLabels = orEmpty(labels)
	aggregated.SchemaInformation.RelationshipTypes = orEmpty(relTypes)

	if details, ok := payloadAt[report.SchemaDetails](outcomes, catalog.SlotSchemaDetails); ok {
		if details.Constraints != nil {
			aggregated.SchemaInformation.Constraints = details.Constraints
		}

		if details.NodePropertyDetails != nil {
			aggregated.SchemaInformation.NodePropertyDetails = details.NodePropertyDetails
		}
	}

	if indexes, ok := payloadAt[[]graph.Row](outcomes, catalog.SlotIndexes); ok && indexes != nil {
		aggregated.SchemaInformation.Indexes = indexes
	}

	if snapshot, ok := payloadAt[report.BusinessSnapshot](outcomes, catalog.SlotBusinessContext); ok {
		aggregated.BusinessContext.ProductCatalog = snapshot.ProductCatalog
		if aggregated.BusinessContext.ProductCatalog.Descriptions == nil {
			aggregated.BusinessContext.ProductCatalog.Descriptions = []graph.Row{}
		}

		aggregated.BusinessContext.CustomerSegments = orEmpty(snapshot.CustomerSegments)
		aggregated.BusinessContext.OrderStatistics = orEmpty(snapshot.OrderStatistics)
	}

	if stats, ok := payloadAt[map[string]any](outcomes, catalog.SlotGraphStatistics); ok && stats != nil {
		aggregated.BusinessContext.GraphStatistics = stats
	}

	patterns, _ := payloadAt[[]string](outcomes, catalog.SlotLineagePatterns)
	aggregated.LineageInformation.GraphDependencies = orEmpty(patterns)
	aggregated.LineageInformation.RelationshipPatterns = GroupPatterns(patterns)
	aggregated.LineageInformation.DataFlow = report.DataFlow{
		Entities:       orEmpty(labels),
		Connections:    orEmpty(relTypes),
		PotentialFlows: PotentialFlows(labels, relTypes, MaxPotentialFlows),
	}

	if fields, ok := payloadAt[map[string]report.FieldMetrics](outcomes, catalog.SlotQualityMetrics); ok && fields != nil {
		aggregated.QualityMetrics.Fields = fields
		aggregated.QualityMetrics.DataCompleteness = Completeness(fields)
		aggregated.QualityMetrics.DataUniqueness = Uniqueness(fields)
	}

	return aggregated
}

// payloadAt extracts a typed payload from the slot, treating failures,
// missing slots, and unexpected payload types as absent.
func payloadAt[T any](outcomes []catalog.Outcome, slot int) (T, bool) {
	var zero T

	if slot >= len(outcomes) {
		return zero, false
	}

	outcome := outcomes[slot]
	if outcome.Failed() {
		return zero, false
	}

	payload, ok := outcome.Payload.(T)
	if !ok {
		return zero, false
	}

	return payload, true
}

func orEmpty[T any](values []T) []T {
	if values == nil {
		return []T{}
	}

	return values
}
