package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/graph"
)

var (
	inspectJSON   bool
	inspectRegion string
	inspectTopN   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Report graph structure: components, orphans, depth and fan-out",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cat, d, err := OpenCatalog()
		if err != nil {
			return err
		}
		if d != nil {
			defer d.Close()
		}

		full, err := loadSnapshot(ctx, cat)
		if err != nil {
			return err
		}
		skel, err := cat.Skeleton(ctx)
		if err != nil {
			return errors.Wrap(err, "loading skeleton")
		}
		skelSnap := skel.Snapshot()

		if inspectRegion != "" {
			n, err := ResolveNode(ctx, full, d, inspectRegion)
			if err != nil {
				return err
			}
			full = full.FilterToSubtree(n.ID)
			skelSnap = skelSnap.FilterToSubtree(n.ID)
		}

		report := map[string]*graph.TopologyReport{
			"full":     graph.ComputeTopology(full, inspectTopN),
			"skeleton": graph.ComputeTopology(skelSnap, inspectTopN),
		}

		if inspectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		if err := printTopology("Full graph", report["full"]); err != nil {
			return err
		}
		return printTopology("Skeleton", report["skeleton"])
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
	inspectCmd.Flags().StringVar(&inspectRegion, "region", "", "Scope the report to the subtree of this node")
	inspectCmd.Flags().IntVar(&inspectTopN, "top-n", 10, "Number of widest parents to show")
	rootCmd.AddCommand(inspectCmd)
}

func printTopology(title string, t *graph.TopologyReport) error {
	pterm.DefaultSection.Println(title)

	summary := pterm.TableData{
		{"Nodes", fmt.Sprint(t.TotalNodes)},
		{"Edges", fmt.Sprintf("%d (%d fixed)", t.TotalEdges, t.FixedEdges)},
		{"Skeleton nodes", fmt.Sprint(t.SkeletonNodes)},
		{"Roots", strings.Join(t.Roots, " ")},
		{"Components", fmt.Sprintf("%d (largest %d)", t.NumComponents, t.Largest)},
		{"Max depth", fmt.Sprint(t.MaxDepth)},
	}
	if err := pterm.DefaultTable.WithData(summary).Render(); err != nil {
		return err
	}

	warnList("orphans (no edges)", t.OrphanIDs)
	warnList("unreachable from a root", t.UnreachableIDs)
	warnList("dangling edges", t.DanglingEdges)

	if len(t.Levels) > 0 {
		pterm.Println()
		pterm.Println("  Depth distribution:")
		for _, b := range t.Levels {
			barWidth := 1
			if b.Count > 0 {
				barWidth = int(math.Log2(float64(b.Count))) + 2
			}
			pterm.Printf("    %5d: %4d  %s\n", b.Level, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(t.Fanout) > 0 {
		data := pterm.TableData{{"Parent", "Label", "Children", "Out edges"}}
		for _, f := range t.Fanout {
			data = append(data, []string{truncID(f.ID), truncLabel(f.Label, 40), fmt.Sprint(f.Children), fmt.Sprint(f.OutEdges)})
		}
		pterm.Println()
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}
	pterm.Println()
	return nil
}

func warnList(what string, ids []string) {
	if len(ids) == 0 {
		return
	}
	const limit = 5
	shown := ids[:min(len(ids), limit)]
	msg := fmt.Sprintf("%d %s: %s", len(ids), what, strings.Join(shown, ", "))
	if len(ids) > limit {
		msg += fmt.Sprintf(" ... and %d more", len(ids)-limit)
	}
	pterm.Warning.Println(msg)
}
