package catalog_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/neosense/neosense/pkg/catalog"
	"github.com/neosense/neosense/pkg/graph"
	"github.com/neosense/neosense/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient answers RunQuery by matching a fragment of the query text.
type scriptedClient struct {
	rows map[string][]graph.Row
}

func (c *scriptedClient) Connect(ctx context.Context) error            { return nil }
func (c *scriptedClient) VerifyConnectivity(ctx context.Context) error { return nil }
func (c *scriptedClient) Close(ctx context.Context) error              { return nil }

func (c *scriptedClient) RunQuery(ctx context.Context, query string, params map[string]any) ([]graph.Row, error) {
	for fragment, rows := range c.rows {
		if strings.Contains(query, fragment) {
			return rows, nil
		}
	}

	return nil, nil
}

func TestRetryPolicyBackoff(t *testing.T) {
	t.Parallel()

	policy := catalog.RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
	}

	t.Run("grows exponentially", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, 500*time.Millisecond, policy.Backoff(0))
		assert.Equal(t, time.Second, policy.Backoff(1))
		assert.Equal(t, 2*time.Second, policy.Backoff(2))
		assert.Equal(t, 4*time.Second, policy.Backoff(3))
	})

	t.Run("caps at max backoff", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, 8*time.Second, policy.Backoff(4))
		assert.Equal(t, 10*time.Second, policy.Backoff(5))
		assert.Equal(t, 10*time.Second, policy.Backoff(20))
	})
}

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	operations := catalog.Default()

	t.Run("slots are aligned", func(t *testing.T) {
		t.Parallel()

		require.Len(t, operations, catalog.SlotCount)
		assert.Equal(t, "node_labels", operations[catalog.SlotNodeLabels].Name)
		assert.Equal(t, "relationship_types", operations[catalog.SlotRelationshipTypes].Name)
		assert.Equal(t, "schema_details", operations[catalog.SlotSchemaDetails].Name)
		assert.Equal(t, "indexes", operations[catalog.SlotIndexes].Name)
		assert.Equal(t, "lineage_patterns", operations[catalog.SlotLineagePatterns].Name)
		assert.Equal(t, "quality_metrics", operations[catalog.SlotQualityMetrics].Name)
		assert.Equal(t, "business_context", operations[catalog.SlotBusinessContext].Name)
		assert.Equal(t, "graph_statistics", operations[catalog.SlotGraphStatistics].Name)
	})

	t.Run("every operation carries timeout and retry policy", func(t *testing.T) {
		t.Parallel()

		for _, op := range operations {
			assert.Positive(t, op.Timeout, op.Name)
			assert.Positive(t, op.Retry.MaxAttempts, op.Name)
			assert.NotNil(t, op.Fetch, op.Name)
		}
	})
}

func TestSchemaDetailsPropertyTypes(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{rows: map[string][]graph.Row{
		"SHOW CONSTRAINTS": {},
		"db.labels":        {{"label": "Event"}},
		"MATCH (n:`Event`)": {{
			"props": map[string]any{
				"active":     true,
				"attendees":  int64(120),
				"rating":     4.5,
				"held_on":    dbtype.Date(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)),
				"created_at": dbtype.LocalDateTime(time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)),
				"updated_at": time.Date(2024, 3, 9, 18, 45, 0, 0, time.UTC),
				"name":       "launch",
			},
		}},
	}}

	payload, err := catalog.Default()[catalog.SlotSchemaDetails].Fetch(context.Background(), client)
	require.NoError(t, err)

	details, ok := payload.(report.SchemaDetails)
	require.True(t, ok)

	assert.Equal(t, map[string]string{
		"active":     "BOOLEAN",
		"attendees":  "INTEGER",
		"rating":     "FLOAT",
		"held_on":    "DATE",
		"created_at": "DATETIME",
		"updated_at": "DATETIME",
		"name":       "STRING",
	}, details.NodePropertyDetails["Event"])
}

func TestPreflight(t *testing.T) {
	t.Parallel()

	preflight := catalog.Preflight()
	fetchBudget := catalog.Default()[catalog.SlotNodeLabels].Retry.MaxAttempts

	assert.Equal(t, "preflight_check", preflight.Name)
	assert.Greater(t, preflight.Retry.MaxAttempts, fetchBudget)
}

func TestOutcomeFailed(t *testing.T) {
	t.Parallel()

	assert.False(t, catalog.Outcome{Name: "node_labels", Payload: []string{"A"}}.Failed())
	assert.True(t, catalog.Outcome{Name: "node_labels", Err: assert.AnError}.Failed())
}
