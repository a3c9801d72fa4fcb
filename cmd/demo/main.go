package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/yiblet/clipd/internal/clipboard"
	"github.com/yiblet/clipd/internal/clipboard/mockboard"
	"github.com/yiblet/clipd/internal/content"
	"github.com/yiblet/clipd/internal/engine"
	"github.com/yiblet/clipd/internal/event"
	"github.com/yiblet/clipd/internal/logger"
	"github.com/yiblet/clipd/internal/remfs"
	"github.com/yiblet/clipd/internal/retention"
	"github.com/yiblet/clipd/internal/store/memstore"
)

func main() {
	fmt.Println("clipd capture engine demo")

	dir, err := os.MkdirTemp("", "clipd-demo-")
	if err != nil {
		log.Fatalf("Failed to create storage root: %v", err)
	}
	defer os.RemoveAll(dir)

	rfs, err := remfs.NewWithRoot(dir)
	if err != nil {
		log.Fatalf("Failed to prepare storage root: %v", err)
	}

	lg := logger.NewNop()
	bus := event.NewBus(lg)
	bus.SubscribeAll(func(ev event.Event) {
		fmt.Printf("   event: %s\n", ev.EventType())
	})

	ctx := context.Background()
	e, err := engine.Open(ctx, engine.Options{
		FS:             rfs,
		Content:        content.New(rfs, retention.MaxCaptureSize, lg),
		Index:          memstore.NewMemoryIndex(),
		Bus:            bus,
		Log:            lg,
		HydrateLimit:   engine.DefaultHydrateLimit,
		Window:         retention.DefaultWindow,
		MaxCaptureSize: retention.MaxCaptureSize,
	})
	if err != nil {
		log.Fatalf("Failed to open engine: %v", err)
	}
	defer e.Close()

	// Each change is handled the way 'clipd watch' would handle it.
	changes := []clipboard.Snapshot{
		mockboard.Text("Hello, World! This is the first clipboard entry."),
		mockboard.Text("package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, Go!\")\n}"),
		mockboard.Text("package main\n\nimport \"fmt\"\n\nfunc main() {\n    fmt.Println(\"Hello, Go!\")\n}"),
		mockboard.HTML("<p>Copied from a <b>web page</b></p>").WithText("Copied from a web page"),
		mockboard.Text("   \n\t "),
		mockboard.Text("SELECT * FROM users WHERE created_at > '2023-01-01' ORDER BY created_at DESC LIMIT 10;"),
	}

	fmt.Println("Handling clipboard changes:")
	for i, snap := range changes {
		out := e.HandleChange(ctx, snap)
		fmt.Printf("%d. %s\n", i+1, out)
	}

	items := e.Items()
	fmt.Printf("\nHistory (%d items, newest first):\n", len(items))
	for _, it := range items {
		fmt.Printf("#%d [%s] %-4s %s\n", it.ID, it.Timestamp.Format("15:04:05"), it.Kind, it.Preview)
	}

	if len(items) > 0 {
		newest := items[0]
		payload, ok := e.LoadContent(ctx, newest.ID)
		if !ok {
			log.Printf("Failed to load content of #%d", newest.ID)
		} else {
			fmt.Printf("\nContent of #%d:\n%s\n", newest.ID, payload)
		}
	}
}
