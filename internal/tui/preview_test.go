package tui

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/yiblet/clipd/internal/clip"
)

func TestPreview_States(t *testing.T) {
	item := testItems("x")[0]

	p := NewPreview(item)
	p.Wrap(40)
	if len(p.Plain) != 1 || p.Plain[0] != "Loading..." {
		t.Errorf("expected loading line, got %q", p.Plain)
	}

	p.SetPayload("", false)
	p.Wrap(40)
	if !strings.Contains(p.Plain[0], "no longer exists") {
		t.Errorf("expected missing message, got %q", p.Plain)
	}

	p.SetPayload("", true)
	p.Wrap(40)
	if !strings.Contains(p.Plain[0], "Content unavailable") {
		t.Errorf("expected unavailable message, got %q", p.Plain)
	}

	p.SetPayload("the quick brown fox", true)
	p.Wrap(10)
	if len(p.Lines) != 2 {
		t.Errorf("expected wrapped lines, got %q", p.Lines)
	}
}

func TestPreview_WrapCachesWidth(t *testing.T) {
	p := loadedPreview(testItems("x")[0], "one two three")
	p.Wrap(40)
	p.Lines = []string{"sentinel"}

	p.Wrap(40)
	if p.Lines[0] != "sentinel" {
		t.Error("same width should not rewrap")
	}

	p.Wrap(5)
	if p.Lines[0] == "sentinel" {
		t.Error("new width should rewrap")
	}
}

func TestPreview_Image(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}

	item := testItems("Image_20261019_120000")[0]
	item.Kind = clip.Image
	p := loadedPreview(item, base64.StdEncoding.EncodeToString(buf.Bytes()))
	p.Wrap(60)

	if !strings.Contains(p.Plain[0], "PNG image, 3×2") {
		t.Errorf("expected image description, got %q", p.Plain)
	}
}

func TestPreview_ImageUnreadable(t *testing.T) {
	item := testItems("img")[0]
	item.Kind = clip.Image
	p := loadedPreview(item, "not base64 !!")
	p.Wrap(60)

	if !strings.Contains(p.Plain[0], "unreadable") {
		t.Errorf("expected unreadable description, got %q", p.Plain)
	}
}

func TestPreview_Files(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "gone.txt")

	item := testItems("2 files")[0]
	item.Kind = clip.File
	p := loadedPreview(item, strings.Join([]string{file, dir, missing}, "\n"))
	p.Wrap(200)

	want := []string{file + " (5 B)", dir + "/", missing + " (missing)"}
	if len(p.Plain) != len(want) {
		t.Fatalf("expected %q, got %q", want, p.Plain)
	}
	for i := range want {
		if p.Plain[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], p.Plain[i])
		}
	}
}

func TestPreview_CodeIsHighlighted(t *testing.T) {
	code := "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}"
	item := testItems("package main")[0]
	item.Kind = clip.Code
	p := loadedPreview(item, code)
	p.Wrap(80)

	if len(p.Lines) != len(p.Plain) {
		t.Fatalf("highlighting changed the line count: %d vs %d", len(p.Lines), len(p.Plain))
	}
	if p.Plain[0] != "package main" {
		t.Errorf("plain lines should stay unstyled, got %q", p.Plain[0])
	}
}

func TestPreview_Matches(t *testing.T) {
	p := loadedPreview(testItems("x")[0], "Alpha\nbeta\nALPHA beta")
	p.Wrap(40)

	got := p.Matches("alpha")
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("expected [0 2], got %v", got)
	}
	if p.Matches("[bad") != nil {
		t.Error("invalid pattern should match nothing")
	}
	if p.Matches("") != nil {
		t.Error("empty pattern should match nothing")
	}
}

func TestHighlight(t *testing.T) {
	lines := []string{
		"package main",
		"",
		"import \"fmt\"",
		"",
		"func main() {",
		"    fmt.Println(\"hello\")",
		"}",
	}

	out := Highlight(lines)
	if len(out) != len(lines) {
		t.Fatalf("expected %d lines, got %d", len(lines), len(out))
	}
	for i := range lines {
		if got := ansi.Strip(out[i]); got != lines[i] {
			t.Errorf("line %d: expected %q, got %q", i, lines[i], got)
		}
	}
}

func TestModal(t *testing.T) {
	m := NewModalModel()
	background := strings.Repeat(strings.Repeat(".", 80)+"\n", 24)

	if got := ModalView(m, background, 80, 24); got != background {
		t.Error("inactive modal should leave the background unchanged")
	}

	m.Update(ShowDeleteConfirmation("secret token", 12))
	if !m.Active {
		t.Fatal("expected modal to be active")
	}

	view := ModalView(m, background, 80, 24)
	for _, want := range []string{"Delete Item?", "#12 secret token", "[Y] Yes"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected modal to contain %q:\n%s", want, view)
		}
	}
	if !strings.HasPrefix(view, "....") {
		t.Error("background should remain visible around the modal")
	}

	m.Update(HideModalMsg{})
	if m.Active || m.Title != "" {
		t.Errorf("expected hidden modal, got %+v", m)
	}
}
