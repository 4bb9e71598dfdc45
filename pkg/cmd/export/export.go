package export

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/sessionreplay/pkg/cmd/util"
	"github.com/mpapenbr/sessionreplay/pkg/config"
	"github.com/mpapenbr/sessionreplay/pkg/source/file"
)

func NewExportCmd() *cobra.Command {
	cfg := config.Config{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "writes a stored session as capture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), &cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Source, "source", util.SourceDB,
		"where to load the session from (db, cache)")
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", "-",
		"capture file, the extension selects JSON or YAML, - is JSON on stdout")
	util.AddSelectionFlags(cmd, &cfg)
	return cmd
}

func runExport(ctx context.Context, cfg *config.Config) error {
	_, sqlLogger, err := util.SetupLogger()
	if err != nil {
		return err
	}
	sel, err := util.Selection(cfg)
	if err != nil {
		return err
	}
	h, err := util.OpenSource(ctx, cfg.Source, cfg, sqlLogger)
	if err != nil {
		return err
	}
	defer h.Close()
	input, err := h.Source.Load(ctx, sel)
	if err != nil {
		return err
	}
	w, err := util.OpenOutput(cfg.Output)
	if err != nil {
		return err
	}
	if err := file.Encode(w, file.KindFromPath(cfg.Output), input); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
