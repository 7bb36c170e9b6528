// Package report defines the aggregated metadata report: four fixed sections
// that are always present, even when a contributing operation failed.
package report

import (
	"encoding/json"

	"github.com/neosense/neosense/pkg/graph"
)

// Report is the aggregated output of one extraction run. Every section is
// always present; a section whose source operations failed carries its empty
// shape plus an error description instead of being absent.
type Report struct {
	SchemaInformation  SchemaInformation  `json:"schema_information"`
	BusinessContext    BusinessContext    `json:"business_context"`
	LineageInformation LineageInformation `json:"lineage_information"`
	QualityMetrics     QualityMetrics     `json:"quality_metrics"`

	// FailedOperations lists catalog operations that exhausted their retries,
	// for observability. Empty on a fully successful run.
	FailedOperations []string `json:"failed_operations,omitempty"`
}

type SchemaInformation struct {
	NodeLabels          []string                     `json:"node_labels"`
	RelationshipTypes   []string                     `json:"relationship_types"`
	NodePropertyDetails map[string]map[string]string `json:"node_property_details"`
	Constraints         []graph.Row                  `json:"constraints"`
	Indexes             []graph.Row                  `json:"indexes"`
	Error               string                       `json:"error,omitempty"`
}

type BusinessContext struct {
	ProductCatalog   ProductCatalog `json:"product_catalog"`
	CustomerSegments []graph.Row    `json:"customer_segments"`
	OrderStatistics  []graph.Row    `json:"order_statistics"`
	GraphStatistics  map[string]any `json:"graph_statistics"`
	Error            string         `json:"error,omitempty"`
}

type ProductCatalog struct {
	Descriptions  []graph.Row `json:"descriptions"`
	TotalProducts int         `json:"total_products"`
}

type LineageInformation struct {
	GraphDependencies    []string             `json:"graph_dependencies"`
	RelationshipPatterns RelationshipPatterns `json:"relationship_patterns"`
	DataFlow             DataFlow             `json:"data_flow"`
	Error                string               `json:"error,omitempty"`
}

type RelationshipPatterns struct {
	Patterns                   []string            `json:"patterns"`
	PatternsByRelationshipType map[string][]string `json:"patterns_by_relationship_type"`
	TotalPatterns              int                 `json:"total_patterns"`
	UniqueRelationshipTypes    int                 `json:"unique_relationship_types"`
}

type DataFlow struct {
	Entities       []string `json:"entities"`
	Connections    []string `json:"connections"`
	PotentialFlows []string `json:"potential_flows"`
}

// QualityMetrics carries the per-field metric records together with the two
// derived summaries. On the wire the field records sit directly next to
// data_completeness and data_uniqueness, matching the report contract, so the
// section uses custom JSON encoding.
type QualityMetrics struct {
	Fields           map[string]FieldMetrics
	DataCompleteness CompletenessSummary
	DataUniqueness   map[string]FieldUniqueness
	Error            string
}

// FieldMetrics is one per-field metric record. Counts are pointers so the
// derived summaries can distinguish "absent" from zero and skip incomplete
// records without erroring.
type FieldMetrics struct {
	MetricType   string `json:"metric_type"`
	TotalRecords *int64 `json:"total_records,omitempty"`
	NullCount    *int64 `json:"null_count,omitempty"`
	UniqueValues *int64 `json:"unique_values,omitempty"`
}

type CompletenessSummary struct {
	FieldLevelCompleteness        map[string]FieldCompleteness `json:"field_level_completeness"`
	OverallCompletenessPercentage float64                      `json:"overall_completeness_percentage"`
	TotalFieldsAnalyzed           int                          `json:"total_fields_analyzed"`
}

type FieldCompleteness struct {
	TotalCount             int64   `json:"total_count"`
	NullCount              int64   `json:"null_count"`
	CompletenessPercentage float64 `json:"completeness_percentage"`
}

type FieldUniqueness struct {
	TotalRecords         int64   `json:"total_records"`
	UniqueValues         int64   `json:"unique_values"`
	UniquenessPercentage float64 `json:"uniqueness_percentage"`
	DuplicateRecords     int64   `json:"duplicate_records"`
}

// SchemaDetails is the payload of the schema_details operation: constraints
// plus sampled per-label property types. It feeds SchemaInformation.
type SchemaDetails struct {
	Constraints         []graph.Row                  `json:"constraints"`
	NodePropertyDetails map[string]map[string]string `json:"node_property_details"`
}

// BusinessSnapshot is the payload of the business_context operation.
type BusinessSnapshot struct {
	ProductCatalog   ProductCatalog `json:"product_catalog"`
	CustomerSegments []graph.Row    `json:"customer_segments"`
	OrderStatistics  []graph.Row    `json:"order_statistics"`
}

const (
	completenessKey = "data_completeness"
	uniquenessKey   = "data_uniqueness"
	errorKey        = "error"
)

func (q QualityMetrics) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(q.Fields)+3)

	for field, metrics := range q.Fields {
		doc[field] = metrics
	}

	doc[completenessKey] = q.DataCompleteness
	if q.DataUniqueness != nil {
		doc[uniquenessKey] = q.DataUniqueness
	} else {
		doc[uniquenessKey] = map[string]FieldUniqueness{}
	}

	if q.Error != "" {
		doc[errorKey] = q.Error
	}

	return json.Marshal(doc)
}

func (q *QualityMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	q.Fields = make(map[string]FieldMetrics)
	q.DataUniqueness = make(map[string]FieldUniqueness)

	for key, value := range raw {
		switch key {
		case completenessKey:
			err = json.Unmarshal(value, &q.DataCompleteness)
		case uniquenessKey:
			err = json.Unmarshal(value, &q.DataUniqueness)
		case errorKey:
			err = json.Unmarshal(value, &q.Error)
		default:
			var metrics FieldMetrics

			err = json.Unmarshal(value, &metrics)
			if err == nil {
				q.Fields[key] = metrics
			}
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// EmptySchema returns the section's zero-value shape with no nil collections.
func EmptySchema() SchemaInformation {
	return SchemaInformation{
		NodeLabels:          []string{},
		RelationshipTypes:   []string{},
		NodePropertyDetails: map[string]map[string]string{},
		Constraints:         []graph.Row{},
		Indexes:             []graph.Row{},
	}
}

func EmptyBusiness() BusinessContext {
	return BusinessContext{
		ProductCatalog:   ProductCatalog{Descriptions: []graph.Row{}},
		CustomerSegments: []graph.Row{},
		OrderStatistics:  []graph.Row{},
		GraphStatistics:  map[string]any{},
	}
}

func EmptyLineage() LineageInformation {
	return LineageInformation{
		GraphDependencies: []string{},
		RelationshipPatterns: RelationshipPatterns{
			Patterns:                   []string{},
			PatternsByRelationshipType: map[string][]string{},
		},
		DataFlow: DataFlow{
			Entities:       []string{},
			Connections:    []string{},
			PotentialFlows: []string{},
		},
	}
}

func EmptyQuality() QualityMetrics {
	return QualityMetrics{
		Fields: map[string]FieldMetrics{},
		DataCompleteness: CompletenessSummary{
			FieldLevelCompleteness: map[string]FieldCompleteness{},
		},
		DataUniqueness: map[string]FieldUniqueness{},
	}
}

// Errored builds a report whose four sections each carry the given error
// description instead of data. Used when the run fails before fan-out.
func Errored(description string) *Report {
	schema := EmptySchema()
	schema.Error = description

	business := EmptyBusiness()
	business.Error = description

	lineage := EmptyLineage()
	lineage.Error = description

	quality := EmptyQuality()
	quality.Error = description

	return &Report{
		SchemaInformation:  schema,
		BusinessContext:    business,
		LineageInformation: lineage,
		QualityMetrics:     quality,
	}
}
