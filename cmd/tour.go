package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/graph"
	"canopy/explorer/internal/tour"
)

var (
	tourWalk bool
	tourBack bool
)

var tourCmd = &cobra.Command{
	Use:   "tour [root]",
	Short: "Print the guided-tour path, or walk it step by step",
	Long: `Prints the order in which a tour visits nodes, starting at root or at every
root when none is given. With --walk the tour is run against a session and
each step shows what became visible; --back then walks it back to the start.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cat, d, err := OpenCatalog()
		if err != nil {
			return err
		}
		if d != nil {
			defer d.Close()
		}

		snap, err := loadSnapshot(ctx, cat)
		if err != nil {
			return err
		}
		rootID := ""
		if len(args) == 1 {
			n, err := ResolveNode(ctx, snap, d, args[0])
			if err != nil {
				return err
			}
			rootID = n.ID
		}

		if !tourWalk {
			return printPath(snap, tour.BuildPath(snap, rootID))
		}

		sess, err := newSession(ctx, cat)
		if err != nil {
			return err
		}
		defer sess.Close()
		return walkTour(ctx, sess, rootID, tourBack)
	},
}

func init() {
	tourCmd.Flags().BoolVar(&tourWalk, "walk", false, "Run the tour and show each step")
	tourCmd.Flags().BoolVar(&tourBack, "back", false, "After walking forward, walk back to the first step")
	rootCmd.AddCommand(tourCmd)
}

func printPath(snap *graph.Snapshot, path []string) error {
	data := pterm.TableData{{"Step", "ID", "Label", "Kind", "Children"}}
	for i, id := range path {
		n := snap.Nodes[id]
		kind := "hidden"
		if n.AlwaysVisible {
			kind = "skeleton"
		}
		data = append(data, []string{
			fmt.Sprint(i + 1),
			truncID(id),
			truncLabel(n.Label, 40),
			kind,
			fmt.Sprint(len(snap.Children[id])),
		})
	}
	pterm.DefaultSection.Printf("Tour path (%d steps)", len(path))
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func walkTour(ctx context.Context, sess *explorer.Session, rootID string, back bool) error {
	if err := sess.StartTour(ctx, rootID); err != nil {
		return err
	}

	data := pterm.TableData{{"Step", "Node", "Label", "Visible", "Expanded by tour"}}
	record := func() {
		st := sess.Tour()
		data = append(data, []string{
			fmt.Sprintf("%d/%d", st.Current, st.Total),
			truncID(st.Node),
			truncLabel(st.Label, 30),
			fmt.Sprint(len(sess.Scene().Nodes)),
			strings.Join(sess.TourExpanded(), " "),
		})
	}

	record()
	for {
		moved, err := sess.NextStep(ctx)
		if err != nil {
			return err
		}
		if !moved {
			break
		}
		record()
	}
	if back {
		for {
			moved, err := sess.PrevStep(ctx)
			if err != nil {
				return err
			}
			if !moved {
				break
			}
			record()
		}
	}

	pterm.DefaultSection.Println("Tour walk")
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if err := sess.ExitTour(ctx); err != nil {
		return err
	}
	pterm.Success.Printf("tour finished, %d nodes visible after exit\n", len(sess.Scene().Nodes))
	return nil
}
