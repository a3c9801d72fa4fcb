package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/yiblet/clipd/internal/clip"
)

func loadedPreview(item clip.Item, payload string) *Preview {
	p := NewPreview(item)
	p.SetPayload(payload, true)
	return p
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func TestRightPaneModel_Scrolling(t *testing.T) {
	r := NewRightPaneModel(60, 20) // 14 visible lines, half page of 7

	r.Update(JumpMsg{Direction: "j", Lines: 5, MaxScroll: 10})
	if r.ViewPos != 5 {
		t.Errorf("expected 5, got %d", r.ViewPos)
	}

	r.Update(JumpMsg{Direction: "j", Lines: 50, MaxScroll: 10})
	if r.ViewPos != 10 {
		t.Errorf("expected clamp to 10, got %d", r.ViewPos)
	}

	r.Update(PageUpMsg{})
	if r.ViewPos != 3 {
		t.Errorf("expected 3 after half page up, got %d", r.ViewPos)
	}

	r.Update(PageDownMsg{MaxScroll: 8})
	if r.ViewPos != 8 {
		t.Errorf("expected 8 after half page down, got %d", r.ViewPos)
	}

	r.Update(JumpMsg{Direction: "k", Lines: 100})
	if r.ViewPos != 0 {
		t.Errorf("expected 0, got %d", r.ViewPos)
	}

	r.Update(ScrollToBottomMsg{MaxScroll: 42})
	if r.ViewPos != 42 {
		t.Errorf("expected 42, got %d", r.ViewPos)
	}

	r.Update(UpdateContentMsg{})
	if r.ViewPos != 0 {
		t.Errorf("new content should reset scroll, got %d", r.ViewPos)
	}
}

func TestRightPaneView_NoSelection(t *testing.T) {
	view := RightPaneView(NewRightPaneModel(60, 20), nil, NewSearchModel(), false, time.Now())
	if !strings.Contains(view, "No item selected") {
		t.Errorf("expected placeholder:\n%s", view)
	}
}

func TestRightPaneView_Title(t *testing.T) {
	now := time.Now()
	item := testItems("hello")[0]
	item.ID = 7
	item.Timestamp = now.Add(-3 * time.Minute)
	item.Favorite = true

	view := RightPaneView(NewRightPaneModel(60, 20), loadedPreview(item, "hello world"), NewSearchModel(), true, now)

	for _, want := range []string{"● #7 Text", "3 minutes ago", "★", "hello world"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestRightPaneView_ScrollIndicator(t *testing.T) {
	model := NewRightPaneModel(60, 20)
	preview := loadedPreview(testItems("x")[0], numberedLines(30))
	model.ViewPos = 5

	view := RightPaneView(model, preview, NewSearchModel(), false, time.Now())

	if !strings.Contains(view, "(6-19/30)") {
		t.Errorf("expected scroll indicator:\n%s", view)
	}
	if !strings.Contains(view, "line 6") || strings.Contains(view, "line 5") {
		t.Errorf("expected view to start at line 6:\n%s", view)
	}
}

func TestRightPaneView_Loading(t *testing.T) {
	view := RightPaneView(NewRightPaneModel(60, 20), NewPreview(testItems("x")[0]), NewSearchModel(), false, time.Now())
	if !strings.Contains(view, "Loading...") {
		t.Errorf("expected loading message:\n%s", view)
	}
}

func TestGetMaxScroll(t *testing.T) {
	model := NewRightPaneModel(60, 20)

	if got := getMaxScroll(model, nil); got != 0 {
		t.Errorf("expected 0 without preview, got %d", got)
	}

	preview := loadedPreview(testItems("x")[0], numberedLines(30))
	if got := getMaxScroll(model, preview); got != 16 {
		t.Errorf("expected 16, got %d", got)
	}

	short := loadedPreview(testItems("x")[0], "one line")
	if got := getMaxScroll(model, short); got != 0 {
		t.Errorf("expected 0 for short content, got %d", got)
	}
}

func TestScrollToMatch(t *testing.T) {
	model := NewRightPaneModel(60, 20)
	preview := loadedPreview(testItems("x")[0], numberedLines(30))

	if got := scrollToMatch(model, preview, 20); got != 13 {
		t.Errorf("expected match centered at 13, got %d", got)
	}
	if got := scrollToMatch(model, preview, 29); got != 16 {
		t.Errorf("expected clamp to 16, got %d", got)
	}
	if got := scrollToMatch(model, preview, 2); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestHighlightSearchMatches(t *testing.T) {
	line := "Foo bar foo"

	if got := highlightSearchMatches(line, "zzz", false); got != line {
		t.Errorf("line without matches should be unchanged, got %q", got)
	}
	if got := highlightSearchMatches(line, "[bad", false); got != line {
		t.Errorf("invalid pattern should leave line unchanged, got %q", got)
	}
	if got := ansi.Strip(highlightSearchMatches(line, "foo", true)); got != line {
		t.Errorf("highlighting should keep the text, got %q", got)
	}
}
