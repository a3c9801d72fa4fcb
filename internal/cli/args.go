package cli

import (
	"fmt"
)

// Args represents the top-level command structure
type Args struct {
	ConfigPath *string `arg:"--config" help:"Path to the configuration file (default: ~/.config/clipd/config.yaml)"`
	Root       *string `arg:"--root" help:"Storage root; overrides storage_root from the config"`

	Watch    *WatchCmd    `arg:"subcommand:watch" help:"Capture clipboard changes until interrupted"`
	List     *ListCmd     `arg:"subcommand:list" help:"List captured items, newest first"`
	Get      *GetCmd      `arg:"subcommand:get" help:"Print, save or copy back one item"`
	Search   *SearchCmd   `arg:"subcommand:search" help:"Find items by preview, content or kind"`
	Fav      *IDCmd       `arg:"subcommand:fav" help:"Toggle the favorite flag of an item"`
	Rm       *IDCmd       `arg:"subcommand:rm" help:"Delete an item and its stored content"`
	Clear    *ClearCmd    `arg:"subcommand:clear" help:"Delete the whole history, favorites included"`
	Sweep    *SweepCmd    `arg:"subcommand:sweep" help:"Remove expired non-favorite items now"`
	Classify *ClassifyCmd `arg:"subcommand:classify" help:"Show how a payload would be classified"`
	Config   *ConfigCmd   `arg:"subcommand:config" help:"Manage configuration settings"`
	UI       *UICmd       `arg:"subcommand:ui" help:"Browse the history interactively"`
}

// WatchCmd represents 'clipd watch'
type WatchCmd struct {
	NoSweep bool `arg:"--no-sweep" help:"Do not run the periodic retention sweep"`
	Quiet   bool `arg:"-q,--quiet" help:"Do not print captured items"`
}

// ListCmd represents 'clipd list'
type ListCmd struct {
	All       bool `arg:"-a,--all" help:"Include items older than the loaded working set"`
	Favorites bool `arg:"-f,--favorites" help:"Only show favorites"`
	Limit     int  `arg:"-n,--limit" help:"Show at most this many items (0 = no limit)"`
}

// GetCmd represents 'clipd get <id>'
type GetCmd struct {
	ID        int64   `arg:"positional,required" help:"Item id"`
	Clipboard bool    `arg:"-c,--clipboard" help:"Copy the item back to the clipboard"`
	Output    *string `arg:"-o,--output" help:"Write the item to this file"`
}

// SearchCmd represents 'clipd search <query>'
type SearchCmd struct {
	Query string `arg:"positional,required" help:"Case-insensitive substring"`
	IDs   bool   `arg:"--ids" help:"Only print matching ids"`
}

// IDCmd is shared by commands that take a single item id.
type IDCmd struct {
	ID int64 `arg:"positional,required" help:"Item id"`
}

// ClearCmd represents 'clipd clear'
type ClearCmd struct {
	Force bool `arg:"-f,--force" help:"Skip confirmation prompt"`
}

// SweepCmd represents 'clipd sweep'
type SweepCmd struct{}

// ClassifyCmd represents 'clipd classify [file]'
type ClassifyCmd struct {
	File    *string `arg:"positional" help:"File to classify (default: stdin)"`
	Verbose bool    `arg:"-v,--verbose" help:"List the code indicators found"`
}

// ConfigCmd represents the 'clipd config' command
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Get a configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Set a configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"List all configuration values"`
}

// ConfigGetCmd represents 'clipd config get <key>'
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents 'clipd config set <key> <value>'
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"Configuration value"`
}

// ConfigListCmd represents 'clipd config list'
type ConfigListCmd struct{}

// UICmd represents 'clipd ui'
type UICmd struct {
	Watch bool `arg:"-w,--watch" help:"Also capture clipboard changes while the browser is open"`
}

// Description returns the program description
func (Args) Description() string {
	return "clipd - clipboard history that captures text, code, markup, images and file lists"
}

// Version returns the program version
func (Args) Version() string {
	return "clipd 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  clipd watch                      # Capture until Ctrl+C
  clipd                            # Browse the history (same as 'clipd ui')
  clipd list -n 10                 # Ten newest items
  clipd get 42                     # Print item 42
  clipd get -c 42                  # Copy item 42 back to the clipboard
  clipd search token --ids         # Ids of items mentioning "token"
  clipd fav 42                     # Keep item 42 past the retention window
  clipd config set retention_window 72h`
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	switch {
	case args.Get != nil:
		return args.Get.Validate()
	case args.Fav != nil:
		return args.Fav.Validate()
	case args.Rm != nil:
		return args.Rm.Validate()
	case args.List != nil:
		if args.List.Limit < 0 {
			return fmt.Errorf("limit must be non-negative")
		}
	case args.Config != nil:
		if args.Config.Get == nil && args.Config.Set == nil && args.Config.List == nil {
			return fmt.Errorf("no config subcommand specified")
		}
	}
	return nil
}

// Validate validates get command arguments
func (g *GetCmd) Validate() error {
	if g.ID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	if g.Output != nil && g.Clipboard {
		return fmt.Errorf("cannot specify both output file and clipboard")
	}
	return nil
}

// Validate checks the id
func (c *IDCmd) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	return nil
}

// HasCommand reports whether a subcommand was given.
func (args *Args) HasCommand() bool {
	return args.Watch != nil || args.List != nil || args.Get != nil ||
		args.Search != nil || args.Fav != nil || args.Rm != nil ||
		args.Clear != nil || args.Sweep != nil || args.Classify != nil ||
		args.Config != nil || args.UI != nil
}
