package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/couchcryptid/sheet-ladder-etl/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootFlags hold command-line overrides of the environment configuration.
type rootFlags struct {
	envFile    string
	url        string
	batchSize  int
	sink       string
	itemID     string
	layerIndex int
	topic      string
	dryRun     bool
	listFields bool
	logLevel   string
	logFormat  string
}

// NewRootCmd creates the ladder command.
func NewRootCmd(version string) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "ladder",
		Short: "Expand a published sheet with the unit ladder and upload it as point features",
		Long: `ladder downloads one tab of a publicly shared Google Sheet, expands every
row into one row per unit level of its value columns, converts rows with
coordinates to WGS-84 point features and uploads them in batches to an
ArcGIS feature layer or a Kafka topic.`,
		Version:       version,
		Example:       rootCmdExample,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return &configError{err: err}
			}
			if cfg.SheetURL == "" && !flags.listFields {
				cfg.SheetURL = promptURL(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			return run(cmd.Context(), cfg, flags.listFields, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &configError{err: err}
	})

	f := cmd.Flags()
	f.StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	f.StringVar(&flags.url, "url", "", "Google Sheets sharing URL (env SHEET_URL)")
	f.IntVar(&flags.batchSize, "batch-size", 500, "features per upload request (env BATCH_SIZE)")
	f.StringVar(&flags.sink, "sink", config.SinkArcGIS, "feature sink: arcgis or kafka (env SINK)")
	f.StringVar(&flags.itemID, "item-id", "", "ArcGIS portal item ID of the feature service (env ARCGIS_ITEM_ID)")
	f.IntVar(&flags.layerIndex, "layer-index", 0, "layer index within the feature service (env ARCGIS_LAYER_INDEX)")
	f.StringVar(&flags.topic, "topic", "", "Kafka topic for the kafka sink (env KAFKA_SINK_TOPIC)")
	f.BoolVar(&flags.dryRun, "dry-run", false, "load, expand and convert without uploading (env DRY_RUN)")
	f.BoolVar(&flags.listFields, "list-fields", false, "print the target layer's fields and exit")
	f.StringVar(&flags.logLevel, "log-level", "info", "debug, info, warn or error (env LOG_LEVEL)")
	f.StringVar(&flags.logFormat, "log-format", "text", "text or json (env LOG_FORMAT)")

	return cmd
}

const rootCmdExample = `  # Upload a sheet to the default feature layer
  ladder --url 'https://docs.google.com/spreadsheets/d/<id>/edit?gid=0#gid=0'

  # Check the expansion without uploading
  ladder --url '<sharing url>' --dry-run

  # Inspect the target layer's fields
  ladder --list-fields --item-id 2250ee027e04401dae8c72e09159af25

  # Publish features to Kafka instead
  ladder --url '<sharing url>' --sink kafka --topic ladder-features`

// Execute runs the root command with args and returns the process exit code.
func Execute(ctx context.Context, version string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(version)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// loadConfig reads the dotenv file and environment, then applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", flags.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("url") {
		cfg.SheetURL = flags.url
	}
	if changed("batch-size") {
		cfg.BatchSize = flags.batchSize
	}
	if changed("sink") {
		cfg.Sink = flags.sink
	}
	if changed("item-id") {
		cfg.ArcGISItemID = flags.itemID
	}
	if changed("layer-index") {
		cfg.ArcGISLayerIndex = flags.layerIndex
	}
	if changed("topic") {
		cfg.KafkaSinkTopic = flags.topic
	}
	if changed("dry-run") {
		cfg.DryRun = flags.dryRun
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// promptURL asks for the sheet URL when neither the flag nor the
// environment provides one.
func promptURL(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "Enter Google Sheet URL: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}
