// Package types defines the core data types shared across loregraph.
//
// This package contains the fundamental types used throughout the ingestion pipeline:
//   - Node: a labeled vertex with a stable id and ordered properties
//   - Edge: a labeled, directed relationship between two (label, id) endpoints
//   - ExtractionRecord / RelationshipRecord: raw model output before mapping
//   - Record: one row returned by a graph store query
//   - Message / Response / TokenUsage: the chat vocabulary used by the nlp package
//
// # Properties
//
// Node and edge properties are insertion ordered so that mapped output, persisted
// maps and JSON renderings are deterministic:
//
//	props := types.NewProperties()
//	props.Set("id", "loc_mill")
//	props.Set("name", "Old Mill")
//
// # Validation
//
// Node and Edge provide Validate() for the minimal invariants a store relies on:
//
//	if err := node.Validate(); err != nil {
//	    // Handle validation error
//	}
package types
