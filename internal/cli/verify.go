package cli

import (
	"github.com/spf13/cobra"

	"github.com/flowscope/flowscope/pkg/editor"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <diagram.json>",
		Short: "Verify overlay consistency against the computed layout",
		Long: `Verify recomputes the final position of every node and label (base layout
plus overlay overrides) and checks it for self-consistency. Overlay entries
for elements that no longer exist are reported as stale but are not errors;
they are tolerated until the element reappears.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg := configFromContext(cmd.Context())

			sess, err := openSession(args[0], cfg, logger)
			if err != nil {
				return err
			}

			ok, stale := 0, 0
			check := func(id string, kind editor.Kind, exists bool) {
				if !exists {
					stale++
					printWarning("stale %s override: %s", kind, id)
					return
				}
				var rep editor.Report
				if kind == editor.KindLabel {
					rep = sess.VerifyPosition(id, kind, *sess.FinalLabelPosition(id))
				} else {
					rep = sess.VerifyPosition(id, kind, *sess.FinalPosition(id))
				}
				if rep.OK {
					ok++
					printDetail("%s %s at (%.1f, %.1f)", kind, id, rep.Actual.X, rep.Actual.Y)
				} else {
					printError("%s %s drifted by (%.3f, %.3f)", kind, id, rep.DeltaX, rep.DeltaY)
				}
			}

			for _, id := range sess.Overlay().NodeIDs() {
				check(id, editor.KindNode, sess.FinalPosition(id) != nil)
			}
			for _, id := range sess.Overlay().LabelIDs() {
				check(id, editor.KindLabel, sess.FinalLabelPosition(id) != nil)
			}

			if stale > 0 {
				printWarning("%d stale overlay entries (kept; they apply again if the element returns)", stale)
			}
			printSuccess("%d overrides verified", ok)
			if ok+stale == 0 {
				printInfo("no overlay entries for %s", args[0])
			}
			return nil
		},
	}
}
