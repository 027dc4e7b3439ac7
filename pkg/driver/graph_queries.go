package driver

import (
	"fmt"
	"strings"
)

// Canned lookups over the narrative schema. MemoryStore answers exactly these
// statements; Neo4jStore runs them like any other Cypher.
const (
	QueryLocationDetails = `MATCH (l:Location {name: $name})
RETURN l.name AS name, l.description AS description`

	QueryExits = `MATCH (l:Location {name: $location_name})-[r:EXITS_TO]->(destination:Location)
RETURN r.direction AS direction, destination.name AS target, r.description AS description`

	QueryItemsAtLocation = `MATCH (l:Location {name: $location_id})-[:CONTAINS]->(i:Item)
RETURN i.name AS name, i.description AS description`

	QueryCharactersAtLocation = `MATCH (l:Location {name: $location_id})-[:CONTAINS]->(c:Character)
RETURN c.name AS name, c.description AS description`

	QueryInventory = `MATCH (c:Character {id: $player_id})-[:HAS_ITEM]->(i:Item)
RETURN i.name AS name, i.description AS description`

	QueryCurrentLocation = `MATCH (p:Character {id: $player_id})-[:LOCATED_AT]->(l:Location)
RETURN l.name AS name, l.description AS description`

	QueryCountNodes = `MATCH (n) RETURN count(n) AS count`

	QueryClear = `MATCH (n) DETACH DELETE n`
)

// NodeByIDQuery returns a statement matching one node of label by id,
// returned as column "n".
func NodeByIDQuery(label string) (string, error) {
	if err := ValidateLabel(label); err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (n:`%s` {id: $id}) RETURN n", label), nil
}

// NodeByNameQuery returns a statement matching nodes of label by name,
// returned as column "n".
func NodeByNameQuery(label string) (string, error) {
	if err := ValidateLabel(label); err != nil {
		return "", err
	}
	return fmt.Sprintf("MATCH (n:`%s` {name: $name}) RETURN n", label), nil
}

func upsertNodeQuery(label string) string {
	return fmt.Sprintf("MERGE (n:`%s` {id: $id})\nSET n += $properties", label)
}

func upsertEdgeQuery(label, sourceLabel, targetLabel string) string {
	return fmt.Sprintf("MATCH (a:`%s` {id: $source_id}), (b:`%s` {id: $target_id})\n"+
		"MERGE (a)-[r:`%s`]->(b)\n"+
		"SET r += $properties\n"+
		"RETURN count(r) AS count", sourceLabel, targetLabel, label)
}

func deleteEdgeQuery(label, sourceLabel, targetLabel string) string {
	return fmt.Sprintf("MATCH (a:`%s` {id: $source_id})-[r:`%s`]->(b:`%s` {id: $target_id})\n"+
		"WITH collect(r) AS rels\n"+
		"FOREACH (r IN rels | DELETE r)\n"+
		"RETURN size(rels) AS count", sourceLabel, label, targetLabel)
}

func nodeExistsQuery(label string) string {
	return fmt.Sprintf("MATCH (n:`%s` {id: $id}) RETURN count(n) > 0 AS exists", label)
}

// RangeIndexQueries returns the index statements for the given node labels.
// Invalid labels are skipped.
func RangeIndexQueries(labels []string) []string {
	queries := make([]string, 0, len(labels))
	for _, label := range labels {
		if ValidateLabel(label) != nil {
			continue
		}
		queries = append(queries, fmt.Sprintf(
			"CREATE INDEX %s_id IF NOT EXISTS FOR (n:`%s`) ON (n.id)",
			strings.ToLower(label), label))
	}
	return queries
}

// normalizeStatement collapses whitespace so canned statements match
// regardless of formatting.
func normalizeStatement(statement string) string {
	return strings.Join(strings.Fields(statement), " ")
}
