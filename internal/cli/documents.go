package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/store"
)

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage stored diagram documents",
		Long: `Documents are diagrams bundled with their layout overlay, persisted in
the configured store backend (file, redis, or mongo).`,
	}
	cmd.AddCommand(newDocumentsListCmd())
	cmd.AddCommand(newDocumentsSaveCmd())
	cmd.AddCommand(newDocumentsExportCmd())
	cmd.AddCommand(newDocumentsDeleteCmd())
	return cmd
}

func newDocumentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			st, err := newStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			ids, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("no documents in %s store", cfg.Store.Backend)
				return nil
			}
			for _, id := range ids {
				doc, err := st.Get(cmd.Context(), id)
				if err != nil {
					printError("%s: %v", id, err)
					continue
				}
				printKeyValue(doc.Title, fmt.Sprintf("%s  (%d nodes, updated %s)",
					id, len(doc.Diagram.Nodes), doc.UpdatedAt.Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
}

func newDocumentsSaveCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "save <diagram.json>",
		Short: "Save a diagram and its overlay as a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg := configFromContext(cmd.Context())

			sess, err := openSession(args[0], cfg, logger)
			if err != nil {
				return err
			}
			st, err := newStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			overlay, err := sess.Overlay().Serialize()
			if err != nil {
				return fmt.Errorf("serialize overlay: %w", err)
			}
			if title == "" {
				title = sess.Diagram().Title
			}
			if title == "" {
				title = args[0]
			}

			doc := store.NewDocument(title, sess.Diagram())
			doc.Overlay = overlay
			if err := st.Put(cmd.Context(), doc); err != nil {
				return err
			}
			printSuccess("saved %q", title)
			printDetail("id: %s", doc.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "document title (default from diagram)")
	return cmd
}

func newDocumentsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <diagram.json>",
		Short: "Export a stored document back to a diagram file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			st, err := newStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			doc, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("document %q does not exist", args[0])
				}
				return err
			}

			if err := diagram.WriteFile(doc.Diagram, args[1]); err != nil {
				return err
			}
			printFile(args[1])
			if len(doc.Overlay) > 0 {
				if err := writeOverlaySidecar(args[1], doc.Overlay); err != nil {
					return err
				}
				printFile(overlaySidecar(args[1]))
			}
			return nil
		},
	}
}

func newDocumentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			st, err := newStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("deleted %s", args[0])
			return nil
		},
	}
}
