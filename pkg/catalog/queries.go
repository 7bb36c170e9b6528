package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/neosense/neosense/pkg/graph"
	"github.com/neosense/neosense/pkg/report"
)

const sampleSize = 10

func fetchNodeLabels(ctx context.Context, client graph.Client) (any, error) {
	rows, err := client.RunQuery(ctx,
		"CALL db.labels() YIELD label RETURN label ORDER BY label", nil)
	if err != nil {
		return nil, err
	}

	return stringColumn(rows, "label"), nil
}

func fetchRelationshipTypes(ctx context.Context, client graph.Client) (any, error) {
	rows, err := client.RunQuery(ctx,
		"CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType ORDER BY relationshipType", nil)
	if err != nil {
		return nil, err
	}

	return stringColumn(rows, "relationshipType"), nil
}

func fetchSchemaDetails(ctx context.Context, client graph.Client) (any, error) {
	constraints, err := client.RunQuery(ctx,
		"SHOW CONSTRAINTS YIELD name, type, labelsOrTypes, properties", nil)
	if err != nil {
		return nil, err
	}

	labelRows, err := client.RunQuery(ctx,
		"CALL db.labels() YIELD label RETURN label ORDER BY label", nil)
	if err != nil {
		return nil, err
	}

	details := make(map[string]map[string]string)

	for _, label := range stringColumn(labelRows, "label") {
		sampleQuery := fmt.Sprintf(
			"MATCH (n:`%s`) RETURN properties(n) AS props LIMIT %d", label, sampleSize)

		samples, err := client.RunQuery(ctx, sampleQuery, nil)
		if err != nil {
			return nil, err
		}

		properties := make(map[string]string)

		for _, sample := range samples {
			props, ok := sample["props"].(map[string]any)
			if !ok {
				continue
			}

			for key, value := range props {
				if _, seen := properties[key]; !seen {
					properties[key] = propertyType(value)
				}
			}
		}

		if len(properties) > 0 {
			details[label] = properties
		}
	}

	return report.SchemaDetails{
		Constraints:         constraints,
		NodePropertyDetails: details,
	}, nil
}

func fetchIndexes(ctx context.Context, client graph.Client) (any, error) {
	rows, err := client.RunQuery(ctx,
		"SHOW INDEXES YIELD name, type, labelsOrTypes, properties", nil)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

const lineageQuery = `
MATCH (a)-[r]->(b)
WITH labels(a)[0] AS source_label, type(r) AS rel_type, labels(b)[0] AS target_label
RETURN DISTINCT source_label, rel_type, target_label
ORDER BY source_label, rel_type, target_label`

func fetchLineagePatterns(ctx context.Context, client graph.Client) (any, error) {
	rows, err := client.RunQuery(ctx, lineageQuery, nil)
	if err != nil {
		return nil, err
	}

	patterns := make([]string, 0, len(rows))

	for _, row := range rows {
		source, _ := row["source_label"].(string)
		relType, _ := row["rel_type"].(string)
		target, _ := row["target_label"].(string)

		if source == "" || relType == "" || target == "" {
			continue
		}

		patterns = append(patterns, fmt.Sprintf("(:%s)-[:%s]->(:%s)", source, relType, target))
	}

	return patterns, nil
}

// QualityProbe is one per-field count/null/distinct check. It produces the
// metric record keyed by "Label.property".
type QualityProbe struct {
	Label      string
	Property   string
	MetricType string
}

// Field is the metric record key.
func (p QualityProbe) Field() string {
	return p.Label + "." + p.Property
}

func (p QualityProbe) query() string {
	return fmt.Sprintf(
		"MATCH (n:`%s`) RETURN count(n) AS total, count(n.`%s`) AS non_null, count(DISTINCT n.`%s`) AS unique_values",
		p.Label, p.Property, p.Property)
}

// DefaultQualityProbes returns the built-in probe set.
func DefaultQualityProbes() []QualityProbe {
	return []QualityProbe{
		{Label: "Customer", Property: "email", MetricType: "Null Count"},
		{Label: "Product", Property: "category", MetricType: "Uniqueness"},
		{Label: "Order", Property: "status", MetricType: "Completeness"},
	}
}

// QualityFetch builds the quality_metrics fetch for a probe set, so the
// default probes can be replaced through configuration.
func QualityFetch(probes []QualityProbe) Fetch {
	return func(ctx context.Context, client graph.Client) (any, error) {
		metrics := make(map[string]report.FieldMetrics, len(probes))

		for _, probe := range probes {
			rows, err := client.RunQuery(ctx, probe.query(), nil)
			if err != nil {
				return nil, fmt.Errorf("quality probe %s failed: %w", probe.Field(), err)
			}

			if len(rows) == 0 {
				continue
			}

			total := int64Value(rows[0], "total")
			nonNull := int64Value(rows[0], "non_null")
			unique := int64Value(rows[0], "unique_values")

			record := report.FieldMetrics{
				MetricType:   probe.MetricType,
				TotalRecords: total,
				UniqueValues: unique,
			}

			if total != nil && nonNull != nil {
				nulls := *total - *nonNull
				record.NullCount = &nulls
			}

			metrics[probe.Field()] = record
		}

		return metrics, nil
	}
}

func fetchBusinessContext(ctx context.Context, client graph.Client) (any, error) {
	descriptions, err := client.RunQuery(ctx, `MATCH (p:Product)
WHERE p.description IS NOT NULL
RETURN p.name AS product_name, p.description AS product_description, p.category AS category, p.price AS price
ORDER BY p.name`, nil)
	if err != nil {
		return nil, err
	}

	segments, err := client.RunQuery(ctx, `MATCH (c:Customer)
RETURN c.isPremium AS is_premium, count(c) AS customer_count`, nil)
	if err != nil {
		return nil, err
	}

	orderStats, err := client.RunQuery(ctx, `MATCH (o:Order)
RETURN o.status AS order_status, count(o) AS order_count
ORDER BY order_count DESC`, nil)
	if err != nil {
		return nil, err
	}

	return report.BusinessSnapshot{
		ProductCatalog: report.ProductCatalog{
			Descriptions:  descriptions,
			TotalProducts: len(descriptions),
		},
		CustomerSegments: segments,
		OrderStatistics:  orderStats,
	}, nil
}

// statQueries run in a fixed order; a failing statistic degrades to an error
// string in its slot instead of failing the whole operation.
var statQueries = []struct {
	name  string
	query string
}{
	{"total_nodes", "MATCH (n) RETURN count(n) AS count"},
	{"total_relationships", "MATCH ()-[r]->() RETURN count(r) AS count"},
	{"node_counts_by_label", "MATCH (n) RETURN labels(n)[0] AS label, count(n) AS count ORDER BY count DESC"},
	{"relationship_counts_by_type", "MATCH ()-[r]->() RETURN type(r) AS type, count(r) AS count ORDER BY count DESC"},
}

func fetchGraphStatistics(ctx context.Context, client graph.Client) (any, error) {
	statistics := make(map[string]any, len(statQueries))

	for _, stat := range statQueries {
		rows, err := client.RunQuery(ctx, stat.query, nil)
		if err != nil {
			statistics[stat.name] = fmt.Sprintf("Error: %v", err)

			continue
		}

		statistics[stat.name] = rows
	}

	return statistics, nil
}

func stringColumn(rows []graph.Row, key string) []string {
	values := make([]string, 0, len(rows))

	for _, row := range rows {
		if value, ok := row[key].(string); ok {
			values = append(values, value)
		}
	}

	return values
}

func int64Value(row graph.Row, key string) *int64 {
	switch value := row[key].(type) {
	case int64:
		return &value
	case int:
		converted := int64(value)

		return &converted
	case float64:
		converted := int64(value)

		return &converted
	default:
		return nil
	}
}

// propertyType names the type of a sampled property value. The driver hands
// back dbtype.Date for date properties and dbtype.LocalDateTime or time.Time
// for datetime properties.
func propertyType(value any) string {
	switch value.(type) {
	case bool:
		return "BOOLEAN"
	case int, int64:
		return "INTEGER"
	case float64:
		return "FLOAT"
	case dbtype.Date:
		return "DATE"
	case time.Time, dbtype.LocalDateTime:
		return "DATETIME"
	default:
		return "STRING"
	}
}
