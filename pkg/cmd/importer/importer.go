package importer

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/cmd/util"
	"github.com/mpapenbr/sessionreplay/pkg/config"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing"
	"github.com/mpapenbr/sessionreplay/pkg/source"
	"github.com/mpapenbr/sessionreplay/pkg/source/file"
)

func NewImportCmd() *cobra.Command {
	cfg := config.Config{}
	var validate bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "stores the sessions of a capture file",
		Long: `Reads all sessions of a capture file and stores them in the capture
database or the local cache. Existing captures of the same session are replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), &cfg, validate)
		},
	}
	cmd.Flags().StringVarP(&cfg.File, "file", "f", "", "capture file")
	cmd.Flags().StringVar(&cfg.Target, "target", util.SourceDB,
		"where to store the sessions (db, cache)")
	cmd.Flags().BoolVar(&validate, "validate", true,
		"run the pipeline before storing, invalid sessions are not stored")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, cfg *config.Config, validate bool) error {
	_, sqlLogger, err := util.SetupLogger()
	if err != nil {
		return err
	}
	if cfg.Target == util.SourceFile {
		return fmt.Errorf("target must be %s or %s", util.SourceDB, util.SourceCache)
	}
	inputs, err := file.New(cfg.File).ReadAll(ctx)
	if err != nil {
		return err
	}
	h, err := util.OpenSource(ctx, cfg.Target, cfg, sqlLogger)
	if err != nil {
		return err
	}
	defer h.Close()
	return Import(ctx, h.Store, inputs, validate)
}

// Import stores the inputs. With validate every input is processed first,
// nothing is stored if one of them fails.
func Import(
	ctx context.Context,
	store source.Store,
	inputs []*model.SessionInput,
	validate bool,
) error {
	if validate {
		proc := processing.NewProcessor()
		for _, in := range inputs {
			if _, err := proc.Process(ctx, in); err != nil {
				return fmt.Errorf("session %s: %w", in.Info.Selection, err)
			}
		}
	}
	for _, in := range inputs {
		if err := store.Save(ctx, in); err != nil {
			return fmt.Errorf("store session %s: %w", in.Info.Selection, err)
		}
		log.Info("session imported", log.String("session", in.Info.Selection.String()))
	}
	return nil
}
