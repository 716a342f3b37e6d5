package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
)

// topologyCommand creates the topology inspection command.
func (c *CLI) topologyCommand() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "topology [string]",
		Short: "Inspect the configured honeycomb topology",
		Long: `Inspect the configured honeycomb topology.

Without arguments a summary of the topology is printed. With a string number
the rings around that string are listed. Use --format dot or --format svg to
export the ring-1 neighbour graph instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, setup, err := c.loadSetup()
			if err != nil {
				return err
			}
			topo := setup.Topology

			if format != "" {
				return exportTopology(cmd.Context(), topo, format, output)
			}
			if len(args) == 1 {
				str, err := strconv.Atoi(args[0])
				if err != nil || str < 1 {
					return hserrors.New(hserrors.ErrCodeInvalidInput, "invalid string number %q", args[0])
				}
				return printRings(topo, str)
			}
			printTopologySummary(topo)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "export format: dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", stdio, "export file (default: stdout)")

	return cmd
}

// exportTopology writes the topology graph as DOT or SVG.
func exportTopology(ctx context.Context, topo *honeycomb.Topology, format, output string) error {
	dot := honeycomb.ToDOT(topo)

	var data []byte
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg":
		svg, err := honeycomb.RenderSVG(ctx, dot)
		if err != nil {
			return fmt.Errorf("render topology: %w", err)
		}
		data = svg
	default:
		return hserrors.New(hserrors.ErrCodeInvalidInput, "unsupported format %q (want dot or svg)", format)
	}

	if output == stdio {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Exported topology")
	printFile(output)
	return nil
}

func printTopologySummary(topo *honeycomb.Topology) {
	centers := topo.Centers()
	counts := make(map[honeycomb.Density]int)
	for _, s := range centers {
		counts[topo.Density(s)]++
	}

	fmt.Println(StyleTitle.Render("Topology"))
	printKeyValue("Strings", strconv.Itoa(len(centers)))
	printKeyValue("Max ring", strconv.Itoa(topo.MaxRing()))
	for _, d := range honeycomb.Densities {
		printKeyValue(d.String(), StyleNumber.Render(strconv.Itoa(counts[d])))
	}
}

func printRings(topo *honeycomb.Topology, str int) error {
	if !topo.HasCenter(str) {
		return hserrors.New(hserrors.ErrCodeNotFound, "string %d is not in the topology", str)
	}

	fmt.Println(StyleTitle.Render(fmt.Sprintf("String %d", str)) + " " + StyleDim.Render(topo.Density(str).String()))
	for k := 1; k < topo.RingCount(str); k++ {
		ring := topo.Ring(str, k)
		members := make([]string, len(ring))
		for i, m := range ring {
			members[i] = strconv.Itoa(m)
		}
		printKeyValue(fmt.Sprintf("Ring %d", k), strings.Join(members, " "))
	}
	return nil
}
