package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/yiblet/clipd/internal/cli"
)

func main() {
	// Parse command-line arguments
	var args cli.Args
	parser := arg.MustParse(&args)

	// Default behavior: browse the history
	if !args.HasCommand() {
		args.UI = &cli.UICmd{}
	}

	os.Exit(run(parser, &args))
}

func run(parser *arg.Parser, args *cli.Args) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliHandler, err := cli.NewWithArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cliHandler.Close()

	if err := cliHandler.Execute(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if errors.Is(err, cli.ErrInvalidArgs) {
			fmt.Fprintln(os.Stderr)
			parser.WriteUsage(os.Stderr)
		}
		return 1
	}
	return 0
}
