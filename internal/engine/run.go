package engine

import (
	"context"
	"fmt"

	"github.com/yiblet/clipd/internal/clipboard"
	"github.com/yiblet/clipd/internal/logger"
)

// Run captures every change src reports until ctx ends or src stops.
func (e *Engine) Run(ctx context.Context, src clipboard.Source) error {
	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch clipboard: %w", err)
	}

	e.log.Info("watching clipboard")
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-changes:
			if !ok {
				return nil
			}
			out := e.HandleChange(ctx, snap)
			e.log.Debug("clipboard change handled", logger.String("outcome", out.String()))
		}
	}
}
