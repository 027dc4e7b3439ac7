package loregraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/loregraph"
	"github.com/soundprediction/loregraph/pkg/config"
	"github.com/soundprediction/loregraph/pkg/types"
	"github.com/soundprediction/loregraph/pkg/utils"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|-]",
	Short: "Extract entities and relationships from a text file",
	Long: `Read narrative text from a file (or stdin when the argument is "-" or
missing), extract the requested kinds and write them to the graph store.

The ingest result is printed to stdout. --export also writes the batch as
Parquet files under DIR/nodes and DIR/edges.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var (
	ingestEntityKinds       []string
	ingestRelationshipKinds []string
	ingestNoPersist         bool
	ingestAnalyze           bool
	ingestMaxRecords        int
	ingestOutput            string
	ingestExport            string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringSliceVar(&ingestEntityKinds, "entity-kinds", nil, "Entity kinds to extract (default: all registered)")
	ingestCmd.Flags().StringSliceVar(&ingestRelationshipKinds, "relationship-kinds", nil, "Relationship kinds to extract (default: all registered)")
	ingestCmd.Flags().BoolVar(&ingestNoPersist, "no-persist", false, "Extract and map without writing to the store")
	ingestCmd.Flags().BoolVar(&ingestAnalyze, "analyze", false, "Let the model choose which kinds to extract")
	ingestCmd.Flags().IntVar(&ingestMaxRecords, "max-records", 0, "Cap records per kind (0 uses the configured default)")
	ingestCmd.Flags().StringVarP(&ingestOutput, "output", "o", "json", "Output format (json, yaml)")
	ingestCmd.Flags().StringVar(&ingestExport, "export", "", "Directory to write a Parquet snapshot of the batch")

	addStackFlags(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestOutput != "json" && ingestOutput != "yaml" {
		return fmt.Errorf("unsupported output format %q", ingestOutput)
	}

	source := "-"
	if len(args) == 1 {
		source = args[0]
	}
	text, err := readInput(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)
	if err := validateStackConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	opts := &loregraph.IngestOptions{
		EntityKinds:       ingestEntityKinds,
		RelationshipKinds: ingestRelationshipKinds,
		Persist:           !ingestNoPersist,
		MaxRecords:        ingestMaxRecords,
		Source:            source,
	}

	var result *types.IngestResult
	if ingestAnalyze {
		result, err = a.client.AnalyzeAndIngest(ctx, text, opts)
	} else {
		result, err = a.client.Ingest(ctx, text, opts)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	a.logger.Info("Ingest finished",
		"nodes", result.NodeCount(),
		"edges", result.EdgeCount(),
		"edges_dropped", result.Stats.EdgesDropped,
		"persist_failures", result.Stats.PersistFailures,
		"failed_kinds", result.Stats.FailedKinds,
		"degraded", result.Degraded,
		"duration", result.Stats.Duration)

	if ingestExport != "" {
		if err := exportResult(ctx, ingestExport, result); err != nil {
			return err
		}
		a.logger.Info("Exported batch", "dir", ingestExport)
	}

	return writeResult(cmd.OutOrStdout(), ingestOutput, result)
}

func readInput(stdin io.Reader, source string) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", loregraph.ErrEmptyText
	}
	return text, nil
}

func exportResult(ctx context.Context, dir string, result *types.IngestResult) error {
	w, err := utils.NewParquetGraphWriter(dir)
	if err != nil {
		return fmt.Errorf("failed to open export directory: %w", err)
	}
	defer w.Close()

	if err := w.WriteIngestResult(ctx, uuid.NewString(), result); err != nil {
		return fmt.Errorf("failed to export batch: %w", err)
	}
	return nil
}

func writeResult(out io.Writer, format string, result *types.IngestResult) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return nil
	}
}
