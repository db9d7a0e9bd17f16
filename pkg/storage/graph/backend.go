// Package graph stores association edges in a RedisGraph-compatible server
// (RedisGraph or FalkorDB) through GRAPH.QUERY.
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultGraph is the graph key used by the indexer.
const DefaultGraph = "lto"

const (
	saveQuery = `MERGE (p:Address {address: $sender}) ` +
		`MERGE (c:Address {address: $recipient}) ` +
		`MERGE (p)-[:ASSOCIATION]->(c)`

	removeEdgeQuery = `MATCH (:Address {address: $sender})-[e:ASSOCIATION]->(:Address {address: $recipient}) DELETE e`

	removeDescendantsQuery = `MATCH (:Address {address: $recipient})-[:ASSOCIATION*1..]->(n:Address)-[e:ASSOCIATION]->() ` +
		`WITH DISTINCT e DELETE e`

	removeOutgoingQuery = `MATCH (:Address {address: $recipient})-[e:ASSOCIATION]->() DELETE e`

	childrenQuery = `MATCH (:Address {address: $address})-[:ASSOCIATION]->(c:Address) RETURN c.address ORDER BY c.address`
	parentsQuery  = `MATCH (p:Address)-[:ASSOCIATION]->(:Address {address: $address}) RETURN p.address ORDER BY p.address`
)

// Doer issues raw commands; redis.UniversalClient satisfies it.
type Doer interface {
	Do(ctx context.Context, args ...any) *redis.Cmd
}

// Backend keeps association edges as (:Address)-[:ASSOCIATION]->(:Address).
type Backend struct {
	client Doer
	graph  string
	logger *zap.Logger
}

func New(client Doer, graph string, logger *zap.Logger) *Backend {
	if graph == "" {
		graph = DefaultGraph
	}
	return &Backend{client: client, graph: graph, logger: logger}
}

func (b *Backend) query(ctx context.Context, query string, params map[string]string) ([][]any, error) {
	reply, err := b.client.Do(ctx, "GRAPH.QUERY", b.graph, withParams(query, params)).Result()
	if err != nil {
		return nil, fmt.Errorf("graph query: %w", err)
	}
	return parseRows(reply)
}

func (b *Backend) SaveAssociation(ctx context.Context, sender, recipient string) error {
	_, err := b.query(ctx, saveQuery, map[string]string{"sender": sender, "recipient": recipient})
	if err != nil {
		return err
	}
	b.logger.Debug("Added association to graph", zap.String("parent", sender), zap.String("child", recipient))
	return nil
}

// RemoveAssociation deletes sender -> recipient, then the edges of every
// descendant, then the recipient's own outgoing edges. Each step is
// idempotent, so a rerun after an interruption converges.
func (b *Backend) RemoveAssociation(ctx context.Context, sender, recipient string) error {
	params := map[string]string{"sender": sender, "recipient": recipient}
	for _, q := range []string{removeEdgeQuery, removeDescendantsQuery, removeOutgoingQuery} {
		if _, err := b.query(ctx, q, params); err != nil {
			return err
		}
	}
	b.logger.Debug("Removed association from graph", zap.String("parent", sender), zap.String("child", recipient))
	return nil
}

func (b *Backend) GetAssociations(ctx context.Context, address string) (types.Associations, error) {
	params := map[string]string{"address": address}
	children, err := b.addresses(ctx, childrenQuery, params)
	if err != nil {
		return types.Associations{}, err
	}
	parents, err := b.addresses(ctx, parentsQuery, params)
	if err != nil {
		return types.Associations{}, err
	}
	return types.Associations{Children: children, Parents: parents}, nil
}

func (b *Backend) addresses(ctx context.Context, query string, params map[string]string) ([]string, error) {
	rows, err := b.query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		s, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("graph query: unexpected value %T", row[0])
		}
		out = append(out, s)
	}
	return out, nil
}

// withParams prefixes query with a CYPHER parameter header, keys sorted.
func withParams(query string, params map[string]string) string {
	if len(params) == 0 {
		return query
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("CYPHER")
	for _, k := range keys {
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(quote(params[k]))
	}
	sb.WriteByte(' ')
	sb.WriteString(query)
	return sb.String()
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// parseRows extracts the result rows of a GRAPH.QUERY reply: [header, rows, stats]
// for queries that return data, [stats] otherwise.
func parseRows(reply any) ([][]any, error) {
	parts, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("graph query: unexpected reply %T", reply)
	}
	if len(parts) < 3 {
		return nil, nil
	}
	rawRows, ok := parts[1].([]any)
	if !ok {
		return nil, fmt.Errorf("graph query: unexpected rows %T", parts[1])
	}
	rows := make([][]any, 0, len(rawRows))
	for _, r := range rawRows {
		row, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("graph query: unexpected row %T", r)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
