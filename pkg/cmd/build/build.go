package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/cmd/util"
	"github.com/mpapenbr/sessionreplay/pkg/config"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing"
	"github.com/mpapenbr/sessionreplay/pkg/publish"
	"github.com/mpapenbr/sessionreplay/pkg/replay"
	"github.com/mpapenbr/sessionreplay/pkg/source"
)

const debounce = 300 * time.Millisecond

func NewBuildCmd() *cobra.Command {
	cfg := config.Config{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "builds the race state table of a session",
		Long: `Loads a session, runs the processing pipeline and writes the race state
table as JSON. The table may also be published to NATS, one message per tick.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), &cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Source, "source", util.SourceFile,
		"where to load the session from (file, db, cache)")
	cmd.Flags().StringVarP(&cfg.File, "file", "f", "", "capture file (source file)")
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", "-",
		"output file for the table, - is stdout, empty disables the output")
	cmd.Flags().BoolVar(&cfg.PrettyJSON, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVar(&cfg.Watch, "watch", false,
		"rebuild when the capture file changes (source file)")
	cmd.Flags().BoolVar(&cfg.ReadThrough, "read-through", false,
		"read the db source through the local cache")
	cmd.Flags().StringVar(&config.NatsURL, "nats-url", "",
		"publish the table to this NATS server")
	cmd.Flags().StringVar(&cfg.KVBucket, "kv-bucket", "",
		"store the info message in this jetstream key value bucket")
	util.AddSelectionFlags(cmd, &cfg)
	return cmd
}

//nolint:funlen // setup in sequence
func runBuild(ctx context.Context, cfg *config.Config) error {
	_, sqlLogger, err := util.SetupLogger()
	if err != nil {
		return err
	}
	shutdown := util.SetupTelemetry(ctx)
	defer shutdown()

	sel, err := util.Selection(cfg)
	if err != nil {
		return err
	}
	if cfg.Watch && cfg.Source != util.SourceFile {
		return fmt.Errorf("--watch requires source %s", util.SourceFile)
	}
	if err := util.WaitForServices(ctx, false, true); err != nil {
		return err
	}
	h, err := util.OpenSource(ctx, cfg.Source, cfg, sqlLogger)
	if err != nil {
		return err
	}
	defer h.Close()

	b := &builder{
		cfg:    cfg,
		sel:    sel,
		src:    h.Source,
		holder: replay.NewHolder(processing.NewProcessor()),
		l:      log.Default().Named("build"),
	}
	if config.NatsURL != "" {
		conn, err := publish.Connect(config.NatsURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer conn.Close()
		if b.pub, err = newPublisher(ctx, conn, cfg); err != nil {
			return err
		}
	}

	if err := b.build(ctx); err != nil {
		return err
	}
	if !cfg.Watch {
		return nil
	}
	return b.watch(ctx)
}

func newPublisher(
	ctx context.Context,
	conn *nats.Conn,
	cfg *config.Config,
) (*publish.FramePublisher, error) {
	opts := []publish.Option{}
	if cfg.KVBucket != "" {
		kv, err := publish.NewKeyValue(ctx, conn, cfg.KVBucket)
		if err != nil {
			return nil, fmt.Errorf("setup key value bucket: %w", err)
		}
		opts = append(opts, publish.WithKeyValue(kv))
	}
	return publish.NewFramePublisher(conn, opts...), nil
}

type builder struct {
	cfg    *config.Config
	sel    model.SessionSelection
	src    source.Source
	holder *replay.Holder
	pub    *publish.FramePublisher
	l      *log.Logger
	outMu  sync.Mutex
}

func (b *builder) build(ctx context.Context) error {
	input, err := b.src.Load(ctx, b.sel)
	if err != nil {
		return err
	}
	snap, err := b.holder.Rebuild(ctx, input)
	if err != nil {
		return err
	}
	b.outMu.Lock()
	defer b.outMu.Unlock()
	if b.holder.Current() != snap {
		return replay.ErrSuperseded
	}
	if err := b.writeOutput(snap.Table.State()); err != nil {
		return err
	}
	if b.pub != nil {
		return b.pub.Publish(ctx, snap)
	}
	return nil
}

func (b *builder) writeOutput(state *model.RaceState) error {
	if b.cfg.Output == "" {
		return nil
	}
	w, err := util.OpenOutput(b.cfg.Output)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if b.cfg.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(state); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// watch rebuilds after the capture file was written.
// The directory is watched since editors often replace the file.
//
//nolint:gocognit // event loop
func (b *builder) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	target, err := filepath.Abs(b.cfg.File)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	b.l.Info("watching capture file", log.String("file", target))

	var wg sync.WaitGroup
	defer wg.Wait()
	var timer *time.Timer
	trigger := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.l.Warn("watch error", log.ErrorField(err))
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target ||
				!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case <-trigger:
			// a running build is cancelled by the holder
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := b.build(ctx)
				switch {
				case err == nil:
				case errors.Is(err, replay.ErrSuperseded), errors.Is(err, context.Canceled):
					b.l.Debug("build superseded")
				default:
					b.l.Error("rebuild failed", log.ErrorField(err))
				}
			}()
		}
	}
}
