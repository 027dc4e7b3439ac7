// Package driver provides the GraphStore port and its implementations.
//
// # Stores
//
//   - Neo4jStore: persists to Neo4j over bolt using MERGE semantics
//   - MemoryStore: process-local maps, used for tests and as a fallback
//   - FailoverStore: routes to a fallback store once the primary is unreachable
//
// # Usage
//
//	primary, err := driver.NewNeo4jStore(uri, username, password, "neo4j")
//	store := driver.NewFailoverStore(primary, driver.NewMemoryStore())
//
// # Identity
//
// Nodes are identified by (label, id); upserting an existing node merges its
// properties. Edges are identified by their label and endpoints, so at most
// one edge of a label exists between an ordered pair of nodes.
//
// # Thread Safety
//
// All stores are safe for concurrent use from multiple goroutines.
package driver
