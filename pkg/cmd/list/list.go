package list

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/sessionreplay/pkg/cmd/util"
	"github.com/mpapenbr/sessionreplay/pkg/config"
)

func NewListCmd() *cobra.Command {
	cfg := config.Config{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "lists the stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), &cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&cfg.Source, "source", util.SourceDB,
		"where the sessions are stored (db, cache)")
	return cmd
}

func runList(ctx context.Context, cfg *config.Config, w io.Writer) error {
	_, sqlLogger, err := util.SetupLogger()
	if err != nil {
		return err
	}
	h, err := util.OpenSource(ctx, cfg.Source, cfg, sqlLogger)
	if err != nil {
		return err
	}
	defer h.Close()
	lister, ok := h.Source.(util.Lister)
	if !ok {
		return fmt.Errorf("source %s cannot list sessions", cfg.Source)
	}
	items, err := lister.List(ctx)
	if err != nil {
		return err
	}
	for _, sel := range items {
		fmt.Fprintf(w, "%-28s %d\t%s\t%s\n", sel.Key(), sel.Year, sel.Event, sel.Session)
	}
	return nil
}
