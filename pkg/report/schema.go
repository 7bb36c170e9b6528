package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument indicates a report payload does not match the report
// contract.
var ErrInvalidDocument = errors.New("invalid report document")

// reportSchema guards externally supplied report payloads: every one of the
// four sections must be present as an object, whatever its inner degree of
// degradation.
const reportSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": [
		"schema_information",
		"business_context",
		"lineage_information",
		"quality_metrics"
	],
	"properties": {
		"schema_information": {
			"type": "object",
			"required": ["node_labels", "relationship_types", "node_property_details", "constraints", "indexes"],
			"properties": {
				"node_labels":        {"type": "array", "items": {"type": "string"}},
				"relationship_types": {"type": "array", "items": {"type": "string"}},
				"node_property_details": {"type": "object"},
				"constraints": {"type": "array"},
				"indexes":     {"type": "array"},
				"error":       {"type": "string"}
			}
		},
		"business_context": {
			"type": "object",
			"required": ["product_catalog", "customer_segments", "order_statistics", "graph_statistics"],
			"properties": {
				"product_catalog":   {"type": "object"},
				"customer_segments": {"type": "array"},
				"order_statistics":  {"type": "array"},
				"graph_statistics":  {"type": "object"},
				"error":             {"type": "string"}
			}
		},
		"lineage_information": {
			"type": "object",
			"required": ["graph_dependencies", "relationship_patterns", "data_flow"],
			"properties": {
				"graph_dependencies":    {"type": "array", "items": {"type": "string"}},
				"relationship_patterns": {"type": "object"},
				"data_flow":             {"type": "object"},
				"error":                 {"type": "string"}
			}
		},
		"quality_metrics": {
			"type": "object",
			"required": ["data_completeness", "data_uniqueness"]
		},
		"failed_operations": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(reportSchema)

// ValidateDocument checks a raw JSON payload against the report contract.
func ValidateDocument(doc []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate report document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	descriptions := make([]string, 0, len(result.Errors()))
	for _, resultError := range result.Errors() {
		descriptions = append(descriptions, resultError.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(descriptions, "; "))
}
