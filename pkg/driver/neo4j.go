package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/soundprediction/loregraph/pkg/types"
)

// Neo4jStore implements GraphStore on a Neo4j database.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// DefaultMaxRetryTime bounds how long a query retries connection failures
// before the store reports itself unavailable.
const DefaultMaxRetryTime = 5 * time.Second

// Neo4jOption configures the underlying driver.
type Neo4jOption func(*neo4j.Config)

// WithMaxRetryTime sets how long retryable failures are retried. Values of
// zero or less keep DefaultMaxRetryTime.
func WithMaxRetryTime(d time.Duration) Neo4jOption {
	return func(c *neo4j.Config) {
		if d > 0 {
			c.MaxTransactionRetryTime = d
		}
	}
}

// NewNeo4jStore creates a Neo4j store. No connection is made until first use;
// call VerifyConnectivity to check the server eagerly.
func NewNeo4jStore(uri, username, password, database string, opts ...Neo4jOption) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""),
		func(c *neo4j.Config) {
			c.MaxTransactionRetryTime = DefaultMaxRetryTime
			c.ConnectionAcquisitionTimeout = DefaultMaxRetryTime
			c.SocketConnectTimeout = 2 * time.Second
			for _, opt := range opts {
				opt(c)
			}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{
		client:   client,
		database: database,
		logger:   slog.Default(),
	}, nil
}

// WithLogger sets the logger and returns the store.
func (s *Neo4jStore) WithLogger(logger *slog.Logger) *Neo4jStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// VerifyConnectivity checks that the server is reachable.
func (s *Neo4jStore) VerifyConnectivity(ctx context.Context) error {
	if err := s.client.VerifyConnectivity(ctx); err != nil {
		return &StoreUnavailableError{Op: "verify connectivity", Err: err}
	}
	return nil
}

// EnsureIndexes creates an id index for each label.
func (s *Neo4jStore) EnsureIndexes(ctx context.Context, labels []string) error {
	for _, q := range RangeIndexQueries(labels) {
		if _, err := s.execute(ctx, "create index", q, nil); err != nil {
			return err
		}
	}
	return nil
}

// UpsertNode implements GraphStore.
func (s *Neo4jStore) UpsertNode(ctx context.Context, node *types.Node) error {
	if node == nil {
		return fmt.Errorf("cannot upsert nil node")
	}
	if err := node.Validate(); err != nil {
		return err
	}
	if err := ValidateLabel(node.Label); err != nil {
		return err
	}

	props := encodeProperties(node.Properties)
	props["id"] = node.ID
	_, err := s.execute(ctx, "upsert node", upsertNodeQuery(node.Label), map[string]any{
		"id":         node.ID,
		"properties": props,
	})
	return err
}

// UpsertEdge implements GraphStore.
func (s *Neo4jStore) UpsertEdge(ctx context.Context, edge *types.Edge) error {
	if edge == nil {
		return fmt.Errorf("cannot upsert nil edge")
	}
	if err := edge.Validate(); err != nil {
		return err
	}
	for _, label := range []string{edge.Label, edge.SourceLabel, edge.TargetLabel} {
		if err := ValidateLabel(label); err != nil {
			return err
		}
	}

	res, err := s.execute(ctx, "upsert edge", upsertEdgeQuery(edge.Label, edge.SourceLabel, edge.TargetLabel), map[string]any{
		"source_id":  edge.SourceID,
		"target_id":  edge.TargetID,
		"properties": encodeProperties(edge.Properties),
	})
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("%w: %s -[%s]-> %s", ErrEndpointNotFound, edge.SourceID, edge.Label, edge.TargetID)
	}
	if count, _ := res.Records[0].Values[0].(int64); count == 0 {
		return fmt.Errorf("%w: %s -[%s]-> %s", ErrEndpointNotFound, edge.SourceID, edge.Label, edge.TargetID)
	}
	return nil
}

// DeleteEdge implements GraphStore.
func (s *Neo4jStore) DeleteEdge(ctx context.Context, key types.EdgeKey) (bool, error) {
	for _, label := range []string{key.Label, key.Source.Label, key.Target.Label} {
		if err := ValidateLabel(label); err != nil {
			return false, err
		}
	}
	res, err := s.execute(ctx, "delete edge", deleteEdgeQuery(key.Label, key.Source.Label, key.Target.Label), map[string]any{
		"source_id": key.Source.ID,
		"target_id": key.Target.ID,
	})
	if err != nil {
		return false, err
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	count, _ := res.Records[0].Values[0].(int64)
	return count > 0, nil
}

// NodeExists implements GraphStore.
func (s *Neo4jStore) NodeExists(ctx context.Context, label, id string) (bool, error) {
	if err := ValidateLabel(label); err != nil {
		return false, err
	}
	res, err := s.execute(ctx, "node exists", nodeExistsQuery(label), map[string]any{"id": id})
	if err != nil {
		return false, err
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	exists, _ := res.Records[0].Values[0].(bool)
	return exists, nil
}

// GetNode implements GraphStore.
func (s *Neo4jStore) GetNode(ctx context.Context, label, id string) (*types.Node, error) {
	query, err := NodeByIDQuery(label)
	if err != nil {
		return nil, err
	}
	res, err := s.execute(ctx, "get node", query, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	records := recordsFromDB(res.Records)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %q", ErrNodeNotFound, label, id)
	}
	v, _ := records[0].Get("n")
	if v.Kind != types.ValueNode {
		return nil, fmt.Errorf("unexpected type for node: got %s", v.Kind)
	}
	return v.Node, nil
}

// Query implements GraphStore.
func (s *Neo4jStore) Query(ctx context.Context, statement string, params map[string]any) ([]types.Record, error) {
	res, err := s.execute(ctx, "query", statement, params)
	if err != nil {
		return nil, err
	}
	return recordsFromDB(res.Records), nil
}

// Clear implements GraphStore.
func (s *Neo4jStore) Clear(ctx context.Context) error {
	_, err := s.execute(ctx, "clear", QueryClear, nil)
	return err
}

// Close implements GraphStore.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func (s *Neo4jStore) execute(ctx context.Context, op, statement string, params map[string]any) (*neo4j.EagerResult, error) {
	res, err := neo4j.ExecuteQuery(ctx, s.client, statement, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database))
	if err != nil {
		return nil, s.wrapError(op, err)
	}
	return res, nil
}

func (s *Neo4jStore) wrapError(op string, err error) error {
	if isConnectivityError(err) {
		s.logger.Warn("Neo4j unavailable", "op", op, "error", err)
		return &StoreUnavailableError{Op: op, Err: err}
	}
	return fmt.Errorf("neo4j %s failed: %w", op, err)
}

// isConnectivityError reports whether err means the server could not be
// reached. Exhausted retries arrive as a TransactionExecutionLimit, which does
// not unwrap, so its attempts are inspected one by one.
func isConnectivityError(err error) bool {
	var limit *neo4j.TransactionExecutionLimit
	if errors.As(err, &limit) {
		for _, attempt := range limit.Errors {
			if isConnectivityError(attempt) {
				return true
			}
		}
		return false
	}

	var connErr *neo4j.ConnectivityError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Pool timeouts are retryable but are not server errors.
	var dbErr *neo4j.Neo4jError
	return neo4j.IsRetryable(err) && !errors.As(err, &dbErr)
}
