package mockboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yiblet/clipd/internal/clipboard"
)

func TestSnapshotFormats(t *testing.T) {
	snap := Files("/tmp/a").WithText("/tmp/a").WithHTML("<a>")

	want := []clipboard.Format{clipboard.FormatFiles, clipboard.FormatText, clipboard.FormatHTML}
	got := snap.Formats()
	if len(got) != len(want) {
		t.Fatalf("Formats = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Formats[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := snap.Image(context.Background()); !errors.Is(err, ErrNotOffered) {
		t.Errorf("Image error = %v, want ErrNotOffered", err)
	}
}

func TestSnapshotErr(t *testing.T) {
	boom := errors.New("locked")
	snap := Text("x")
	snap.Err = boom
	if _, err := snap.Text(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Text error = %v, want %v", err, boom)
	}
}

func TestSource(t *testing.T) {
	src := NewSource(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := src.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	src.Push(Text("one"))
	select {
	case snap := <-ch:
		text, _ := snap.Text(ctx)
		if text != "one" {
			t.Errorf("got %q, want one", text)
		}
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}

	src.Close()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected the channel to close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Close")
	}
}

func TestWriter(t *testing.T) {
	w := &Writer{}
	_ = w.WriteText("hi")
	if w.Text() != "hi" {
		t.Errorf("Text = %q", w.Text())
	}
	_ = w.WriteImage([]byte{1, 2})
	if w.Text() != "" || len(w.ImageData()) != 2 {
		t.Error("image write should replace text")
	}
}
