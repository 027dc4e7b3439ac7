// Package loregraph turns narrative text into a typed knowledge graph.
//
// Entity and relationship kinds are declared in a registry. For each kind a
// language model extracts records from the text, the records are mapped onto
// nodes and edges, deduplicated within the batch, and upserted into a graph
// store. Writes are idempotent: ingesting the same text twice leaves the
// store unchanged.
//
// # Basic Usage
//
//	reg := registry.New()
//	if err := registry.RegisterDefaults(reg); err != nil {
//		log.Fatal(err)
//	}
//
//	store, err := driver.NewNeo4jStore("bolt://localhost:7687", "neo4j", "password", "neo4j")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close(ctx)
//
//	llm, err := nlp.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), nlp.Config{Model: "gpt-4o-mini"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := loregraph.NewClient(store, nlp.NewCompleter(llm), reg, nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Ingesting Text
//
//	result, err := client.Ingest(ctx, chapter, loregraph.DefaultIngestOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//	for kind, nodes := range result.Entities {
//		fmt.Printf("%s: %d\n", kind, len(nodes))
//	}
//
// Restrict extraction to some kinds, or skip persistence to preview what the
// model finds:
//
//	result, err = client.IngestText(ctx, chapter, []string{"Location", "Item"}, []string{"CONTAINS"}, false)
//
// # Failover
//
// Wrap the Neo4j store in a driver.FailoverStore to keep ingesting into
// memory when the server goes away. Once degraded, the store stays on the
// fallback for the life of the process and IngestResult.Degraded is set.
//
// # Reading the World
//
// LocationDetails, Exits, ItemsAt, CharactersAt, Inventory and
// CurrentLocation answer the lookups a game loop needs, against either store.
package loregraph
