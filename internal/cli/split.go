package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/hivesplit/pkg/config"
	pkgio "github.com/matzehuels/hivesplit/pkg/io"
	"github.com/matzehuels/hivesplit/pkg/pipeline"
	"github.com/matzehuels/hivesplit/pkg/store"
)

// stdio is the file argument meaning stdin or stdout.
const stdio = "-"

type splitOptions struct {
	output  string
	noCache bool
	persist bool
	opts    pipeline.Options
}

// splitCommand creates the split command.
func (c *CLI) splitCommand() *cobra.Command {
	var so splitOptions

	cmd := &cobra.Command{
		Use:   "split [readouts.json]",
		Short: "Split readouts into causally connected subevents",
		Long: `Split readouts into causally connected subevents.

The input is a JSON file holding one readout object, an array of readouts or
one readout per line. Use "-" to read from stdin. Each readout is split
independently with the configured causality profile and topology; the outputs
are written as a JSON array in input order.

Results are cached by readout content and configuration. With --store the
batch is also saved to the MongoDB collection named in the [store] section.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSplit(cmd.Context(), args[0], so)
		},
	}

	cmd.Flags().StringVarP(&so.output, "output", "o", stdio, "output file (default: stdout)")
	cmd.Flags().BoolVar(&so.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&so.opts.Refresh, "refresh", false, "recompute results even when cached")
	cmd.Flags().BoolVar(&so.persist, "store", false, "save the batch to MongoDB")
	cmd.Flags().IntVarP(&so.opts.Workers, "workers", "w", pipeline.DefaultWorkers, "readouts split concurrently")
	cmd.Flags().StringVar(&so.opts.RunID, "run-id", "", "batch label (default: random UUID)")

	return cmd
}

// runSplit loads the readouts, splits them and writes the outputs.
func (c *CLI) runSplit(ctx context.Context, input string, so splitOptions) error {
	cfg, setup, err := c.loadSetup()
	if err != nil {
		return err
	}

	readouts, err := readInput(input)
	if err != nil {
		return err
	}
	c.Logger.Debug("read readouts", "count", len(readouts), "input", input)

	runner, err := c.newRunner(ctx, cfg, setup, so.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if so.persist {
		ms, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer ms.Close(context.WithoutCancel(ctx))
		runner.Sink = ms
	}

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, os.Stderr, "Splitting readouts", len(readouts))
	so.opts.OnDone = func(pkgio.Output) { spin.Advance() }
	if so.output != stdio {
		spin.Start()
	}
	outputs, err := runner.RunAll(ctx, readouts, so.opts)
	spin.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Split %d readouts", len(outputs)))

	if so.output == stdio {
		return pkgio.WriteOutputs(outputs, os.Stdout)
	}
	if err := pkgio.ExportOutputs(outputs, so.output); err != nil {
		return err
	}

	printSuccess("Split %d readouts", len(outputs))
	printSplitStats(outputs)
	printFile(so.output)
	return nil
}

// readInput reads readouts from a file or, for "-", from stdin.
func readInput(input string) ([]pkgio.Readout, error) {
	if input == stdio {
		return pkgio.ReadReadouts(os.Stdin)
	}
	return pkgio.ImportReadouts(input)
}

// openStore connects to the configured MongoDB collection.
func openStore(ctx context.Context, cfg config.Store) (*store.MongoStore, error) {
	ms, err := store.NewMongoStore(ctx, store.MongoOptions{
		URI:        cfg.MongoURI,
		Database:   cfg.Database,
		Collection: cfg.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return ms, nil
}
