package loregraph

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soundprediction/loregraph/pkg/config"
	"github.com/soundprediction/loregraph/pkg/registry"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the registered entity and relationship kinds",
	Args:  cobra.NoArgs,
	RunE:  runKinds,
}

func init() {
	rootCmd.AddCommand(kindsCmd)
}

func runKinds(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closers, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	reg, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	return printKinds(cmd, reg)
}

func printKinds(cmd *cobra.Command, reg *registry.Registry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tTYPE\tLABEL\tENDPOINTS\tTRANSFORMS")
	for _, kind := range reg.EntityKinds() {
		spec, err := reg.ResolveEntity(kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\tentity\t%s\t\t%s\n", kind, spec.Label, formatTransforms(spec.Transforms))
	}
	for _, kind := range reg.RelationshipKinds() {
		spec, err := reg.ResolveRelationship(kind)
		if err != nil {
			return err
		}
		label, err := reg.RelationshipLabel(kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\trelationship\t%s\t%s -> %s\t%s\n", kind, label, spec.SourceKind, spec.TargetKind, formatTransforms(spec.Transforms))
	}
	return w.Flush()
}

// formatTransforms renders field transforms as "field=name" pairs sorted by field.
func formatTransforms(t map[string]registry.Transform) string {
	names := registry.TransformNames(t)
	pairs := make([]string, 0, len(names))
	for field, name := range names {
		pairs = append(pairs, field+"="+name)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
