// Package neo4j implements the graph client boundary on the official Neo4j
// Go driver. Thin by design: the orchestration engine owns all retry and
// timeout policy.
package neo4j

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neosense/neosense/pkg/credentials"
	"github.com/neosense/neosense/pkg/graph"
)

// Client executes Cypher queries against a Neo4j endpoint. The underlying
// driver serializes session handling internally, so concurrent RunQuery calls
// are safe, which the orchestrator depends on during fan-out.
type Client struct {
	creds  credentials.Credentials
	logger *slog.Logger
	driver neo4j.DriverWithContext
}

// NewClient builds an unconnected client; Connect establishes the driver.
func NewClient(creds credentials.Credentials, logger *slog.Logger) *Client {
	return &Client{
		creds:  creds,
		logger: logger.With("module", "neo4j_client", "endpoint", creds.Endpoint),
	}
}

// Dial adapts NewClient to the graph.Dialer contract.
func Dial(logger *slog.Logger) graph.Dialer {
	return func(creds credentials.Credentials) (graph.Client, error) {
		return NewClient(creds, logger), nil
	}
}

func (c *Client) Connect(ctx context.Context) error {
	driver, err := neo4j.NewDriverWithContext(
		c.creds.Endpoint,
		neo4j.BasicAuth(c.creds.Username, c.creds.Secret, ""),
	)
	if err != nil {
		return fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	c.driver = driver
	c.logger.InfoContext(ctx, "Neo4j driver created")

	return nil
}

func (c *Client) VerifyConnectivity(ctx context.Context) error {
	if c.driver == nil {
		return graph.ErrNotConnected
	}

	err := c.driver.VerifyConnectivity(ctx)
	if err != nil {
		return fmt.Errorf("neo4j connectivity verification failed: %w", err)
	}

	return nil
}

func (c *Client) RunQuery(ctx context.Context, query string, params map[string]any) ([]graph.Row, error) {
	if c.driver == nil {
		return nil, graph.ErrNotConnected
	}

	result, err := neo4j.ExecuteQuery(ctx, c.driver, query, params,
		neo4j.EagerResultTransformer)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	rows := make([]graph.Row, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, graph.Row(record.AsMap()))
	}

	c.logger.DebugContext(ctx, "Query executed", "records", len(rows))

	return rows, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}

	err := c.driver.Close(ctx)
	c.driver = nil

	if err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}

	return nil
}
