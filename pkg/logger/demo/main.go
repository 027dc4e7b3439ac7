package main

import (
	"log/slog"

	"github.com/soundprediction/loregraph/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("loregraph colored logger demo")
	log.Debug("Debug messages are dimmed")
	log.Info("Extracting kinds", "entity_kinds", 5, "relationship_kinds", 8)
	log.Info("Persisting nodes", "count", 42)
	log.Info("Persisting edges", "count", 17)
	log.Warn("Dropping edge with missing endpoint", "kind", "CharacterKnows", "target", "Stranger")
	log.Error("Graph store unreachable, switching to in-memory fallback")
}
