// Package cli wires configuration, storage and the capture engine behind the
// clipd subcommands.
package cli

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yiblet/clipd/internal/classify"
	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/clipboard"
	"github.com/yiblet/clipd/internal/clipboard/sysboard"
	"github.com/yiblet/clipd/internal/config"
	"github.com/yiblet/clipd/internal/content"
	"github.com/yiblet/clipd/internal/engine"
	"github.com/yiblet/clipd/internal/event"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/store"
	"github.com/yiblet/clipd/internal/store/dbstore"
	"github.com/yiblet/clipd/internal/store/fileindex"
	"github.com/yiblet/clipd/internal/tui"
)

// ErrInvalidArgs marks errors caused by the command line itself.
var ErrInvalidArgs = errors.New("invalid arguments")

const previewWidth = 60

// CLI handles the command-line interface
type CLI struct {
	configManager *config.ConfigManager
	config        *config.Config
	log           logger.Logger
	fs            *remfs.RemFS

	out io.Writer
	in  io.Reader

	// Clipboard access is set up on first use so that commands which never
	// touch it also work without a display.
	system    *sysboard.SystemClipboard
	clipboard clipboard.Writer
	source    clipboard.Source

	engine *engine.Engine
}

// New creates a new CLI instance
func New() (*CLI, error) {
	return NewWithArgs(nil)
}

// NewWithArgs loads the configuration named by args (or the default one),
// applies the --root override and prepares the storage root.
func NewWithArgs(args *Args) (*CLI, error) {
	var cm *config.ConfigManager
	if args != nil && args.ConfigPath != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigPath)
	} else {
		var err error
		if cm, err = config.NewConfigManager(); err != nil {
			return nil, err
		}
	}

	cfg, err := cm.Load()
	if err != nil {
		return nil, err
	}

	root := cfg.StorageRoot
	if args != nil && args.Root != nil {
		root = *args.Root
	}

	rfs, err := remfs.NewWithStorePath(root)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare storage root: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &CLI{
		configManager: cm,
		config:        cfg,
		log:           log,
		fs:            rfs,
		out:           os.Stdout,
		in:            os.Stdin,
	}, nil
}

// Close flushes background saves and releases the index.
func (c *CLI) Close() error {
	var err error
	if c.engine != nil {
		err = c.engine.Close()
		c.engine = nil
	}
	_ = c.log.Sync()
	return err
}

// Execute runs the CLI command based on parsed arguments
func (c *CLI) Execute(ctx context.Context, args *Args) error {
	if err := args.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgs, err)
	}

	switch {
	case args.Watch != nil:
		return c.executeWatch(ctx, args.Watch)
	case args.List != nil:
		return c.executeList(ctx, args.List)
	case args.Get != nil:
		return c.executeGet(ctx, args.Get)
	case args.Search != nil:
		return c.executeSearch(ctx, args.Search)
	case args.Fav != nil:
		return c.executeFav(ctx, args.Fav)
	case args.Rm != nil:
		return c.executeRm(ctx, args.Rm)
	case args.Clear != nil:
		return c.executeClear(ctx, args.Clear)
	case args.Sweep != nil:
		return c.executeSweep(ctx)
	case args.Classify != nil:
		return c.executeClassify(args.Classify)
	case args.Config != nil:
		return c.executeConfig(args.Config)
	default:
		ui := args.UI
		if ui == nil {
			ui = &UICmd{}
		}
		return c.executeUI(ctx, ui)
	}
}

func (c *CLI) openIndex() (store.Index, error) {
	switch c.config.IndexBackend {
	case config.BackendSQLite:
		idx, err := dbstore.New(c.fs, c.log)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite index: %w", err)
		}
		return idx, nil
	default:
		return fileindex.New(c.fs, c.log), nil
	}
}

// openEngine opens the history once per invocation.
func (c *CLI) openEngine(ctx context.Context, skipSweep bool) (*engine.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}

	idx, err := c.openIndex()
	if err != nil {
		return nil, err
	}

	e, err := engine.Open(ctx, engine.Options{
		FS:               c.fs,
		Content:          content.New(c.fs, c.config.MaxCaptureSize, c.log),
		Index:            idx,
		Bus:              event.NewBus(c.log),
		Log:              c.log,
		HydrateLimit:     c.config.HydrateLimit,
		Window:           c.config.RetentionWindow,
		MaxCaptureSize:   c.config.MaxCaptureSize,
		SkipStartupSweep: skipSweep,
	})
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	c.engine = e
	return e, nil
}

func (c *CLI) systemClipboard() (*sysboard.SystemClipboard, error) {
	if c.system == nil {
		c.system = sysboard.New(c.log)
	}
	if err := c.system.Init(); err != nil {
		return nil, err
	}
	return c.system, nil
}

func (c *CLI) writer() (clipboard.Writer, error) {
	if c.clipboard != nil {
		return c.clipboard, nil
	}
	sys, err := c.systemClipboard()
	if err != nil {
		return nil, err
	}
	c.clipboard = sys
	return sys, nil
}

func (c *CLI) watchSource() (clipboard.Source, error) {
	if c.source != nil {
		return c.source, nil
	}
	sys, err := c.systemClipboard()
	if err != nil {
		return nil, err
	}
	c.source = sys
	return sys, nil
}

// executeWatch captures clipboard changes until ctx ends.
func (c *CLI) executeWatch(ctx context.Context, cmd *WatchCmd) error {
	src, err := c.watchSource()
	if err != nil {
		return err
	}

	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	if !cmd.Quiet {
		id := e.Bus().Subscribe(event.TypeItemAdded, func(ev event.Event) {
			if added, ok := ev.(event.ItemAdded); ok {
				fmt.Fprintf(c.out, "captured %s\n", c.formatRow(added.Item, time.Now()))
			}
		})
		defer e.Bus().Unsubscribe(id)
	}

	if !cmd.NoSweep {
		sweeper := engine.NewSweeper(e, c.config.SweepInterval)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	fmt.Fprintf(c.out, "Watching clipboard, storing in %s. Press Ctrl+C to stop.\n", c.fs.Root())
	return e.Run(ctx, src)
}

// executeList handles the 'clipd list' command
func (c *CLI) executeList(ctx context.Context, cmd *ListCmd) error {
	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	items := e.Items()
	if cmd.All {
		records := e.Records()
		items = make([]clip.Item, 0, len(records))
		for _, r := range records {
			items = append(items, r.ToItem())
		}
	}

	if len(items) == 0 {
		fmt.Fprintln(c.out, "History is empty. Run 'clipd watch' to start capturing.")
		return nil
	}

	now := time.Now()
	shown := 0
	for _, it := range items {
		if cmd.Favorites && !it.Favorite {
			continue
		}
		if cmd.Limit > 0 && shown == cmd.Limit {
			break
		}
		fmt.Fprintln(c.out, c.formatRow(it, now))
		shown++
	}
	return nil
}

// executeGet handles the 'clipd get' command
func (c *CLI) executeGet(ctx context.Context, cmd *GetCmd) error {
	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	item, ok := e.Get(cmd.ID)
	if !ok {
		return fmt.Errorf("%w: %d", engine.ErrNotFound, cmd.ID)
	}

	payload, _ := e.LoadContent(ctx, cmd.ID)
	if payload == "" {
		return fmt.Errorf("content of item %d is unavailable", cmd.ID)
	}

	switch {
	case cmd.Clipboard:
		w, err := c.writer()
		if err != nil {
			return err
		}
		if err := clipboard.CopyOut(w, item.Kind, payload); err != nil {
			return fmt.Errorf("failed to write to clipboard: %w", err)
		}
		fmt.Fprintf(c.out, "Copied to clipboard: %s\n", clip.TruncateTitle(item.Preview, previewWidth))
		return nil
	case cmd.Output != nil:
		data, err := payloadBytes(item.Kind, payload)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*cmd.Output, data, 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(c.out, "Written to %s (%s): %s\n", *cmd.Output,
			humanize.IBytes(uint64(len(data))), clip.TruncateTitle(item.Preview, previewWidth))
		return nil
	default:
		data, err := payloadBytes(item.Kind, payload)
		if err != nil {
			return err
		}
		_, err = c.out.Write(data)
		return err
	}
}

// payloadBytes turns a loaded payload into the bytes written to a file or
// stdout. Images are stored base64 encoded in memory.
func payloadBytes(kind clip.Kind, payload string) ([]byte, error) {
	if kind != clip.Image {
		return []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return data, nil
}

// executeSearch handles the 'clipd search' command
func (c *CLI) executeSearch(ctx context.Context, cmd *SearchCmd) error {
	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	now := time.Now()
	found := 0
	for it := range e.Search(cmd.Query) {
		if cmd.IDs {
			fmt.Fprintf(c.out, "%d\n", it.ID)
		} else {
			fmt.Fprintln(c.out, c.formatRow(it, now))
		}
		found++
	}

	if found == 0 {
		return fmt.Errorf("no matches found for %q", cmd.Query)
	}
	return nil
}

// executeFav handles the 'clipd fav' command
func (c *CLI) executeFav(ctx context.Context, cmd *IDCmd) error {
	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	fav, err := e.ToggleFavorite(ctx, cmd.ID)
	if err != nil {
		return err
	}
	e.Wait()

	if fav {
		fmt.Fprintf(c.out, "★ #%d added to favorites\n", cmd.ID)
	} else {
		fmt.Fprintf(c.out, "#%d removed from favorites\n", cmd.ID)
	}
	return nil
}

// executeRm handles the 'clipd rm' command
func (c *CLI) executeRm(ctx context.Context, cmd *IDCmd) error {
	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	if err := e.Remove(ctx, cmd.ID); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed #%d\n", cmd.ID)
	return nil
}

// executeClear handles the 'clipd clear' command
func (c *CLI) executeClear(ctx context.Context, cmd *ClearCmd) error {
	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	n := len(e.Records())
	if n == 0 {
		fmt.Fprintln(c.out, "History is already empty.")
		return nil
	}

	// Prompt for confirmation unless --force is used
	if !cmd.Force {
		msg := fmt.Sprintf("This will delete %d item(s)", n)
		if favs := e.FavoritesCount(); favs > 0 {
			msg += fmt.Sprintf(", including %d favorite(s)", favs)
		}
		fmt.Fprintf(c.out, "%s. Continue? [y/N]: ", msg)

		response, _ := bufio.NewReader(c.in).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Cancelled.")
			return nil
		}
	}

	if err := e.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintf(c.out, "Cleared %d item(s) from history.\n", n)
	return nil
}

// executeSweep applies the retention window once and reports what it removed.
func (c *CLI) executeSweep(ctx context.Context) error {
	e, err := c.openEngine(ctx, true)
	if err != nil {
		return err
	}

	n, err := e.Sweep(ctx, time.Now())
	fmt.Fprintf(c.out, "Swept %d expired item(s); %d remain (%d favorite).\n",
		n, len(e.Records()), e.FavoritesCount())
	if err != nil {
		return fmt.Errorf("some expired content could not be deleted: %w", err)
	}
	return nil
}

// executeClassify reports the kind a text payload would be stored as.
func (c *CLI) executeClassify(cmd *ClassifyCmd) error {
	var (
		data []byte
		err  error
	)
	if cmd.File != nil {
		data, err = os.ReadFile(*cmd.File)
	} else {
		data, err = io.ReadAll(c.in)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	text := string(data)
	fmt.Fprintln(c.out, classify.Classify(text, classify.HintText))

	if cmd.Verbose {
		found := classify.Indicators(text)
		quoted := make([]string, len(found))
		for i, ind := range found {
			quoted[i] = fmt.Sprintf("%q", ind)
		}
		fmt.Fprintf(c.out, "preview: %s\n", clip.Preview(text))
		fmt.Fprintf(c.out, "indicators (%d of %d needed): %s\n",
			len(found), classify.CodeThreshold, strings.Join(quoted, " "))
	}
	return nil
}

// executeConfig handles the 'clipd config' command
func (c *CLI) executeConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		value, err := c.configManager.Get(cmd.Get.Key)
		if err != nil {
			return fmt.Errorf("failed to get config value: %w", err)
		}
		fmt.Fprintln(c.out, value)
		return nil
	case cmd.Set != nil:
		if err := c.configManager.Update(cmd.Set.Key, cmd.Set.Value); err != nil {
			return fmt.Errorf("failed to set config value: %w", err)
		}
		value, err := c.configManager.Get(cmd.Set.Key)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Set %s = %s\n", cmd.Set.Key, value)
		return nil
	case cmd.List != nil:
		values, err := c.configManager.List()
		if err != nil {
			return fmt.Errorf("failed to list config values: %w", err)
		}
		fmt.Fprintf(c.out, "Current configuration (%s):\n", c.configManager.GetConfigPath())
		for _, key := range config.Keys {
			fmt.Fprintf(c.out, "  %s = %s\n", key, values[key])
		}
		return nil
	default:
		return fmt.Errorf("no config subcommand specified")
	}
}

// executeUI opens the browser. With --watch the same process also captures.
func (c *CLI) executeUI(ctx context.Context, cmd *UICmd) error {
	e, err := c.openEngine(ctx, false)
	if err != nil {
		return err
	}

	if cmd.Watch {
		src, err := c.watchSource()
		if err != nil {
			return err
		}
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := e.Run(runCtx, src); err != nil {
				c.log.Error("capture stopped", logger.Error(err))
			}
		}()
	}

	w, err := c.writer()
	if err != nil {
		c.log.Warn("clipboard unavailable, copying is disabled", logger.Error(err))
	}
	return tui.Run(ctx, e, e.Bus(), w)
}

func (c *CLI) formatRow(it clip.Item, now time.Time) string {
	mark := " "
	if it.Favorite {
		mark = "★"
	}
	return fmt.Sprintf("%5d %s %-5s %-16s %s", it.ID, mark, it.Kind,
		humanize.RelTime(it.Timestamp, now, "ago", "from now"),
		clip.TruncateTitle(it.Preview, previewWidth))
}
