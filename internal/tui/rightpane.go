package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// RightPaneMsg represents messages that the right pane component handles
type RightPaneMsg interface {
	isRightPaneMsg()
}

type ScrollToTopMsg struct{}

func (ScrollToTopMsg) isRightPaneMsg() {}

type ScrollToBottomMsg struct {
	MaxScroll int
}

func (ScrollToBottomMsg) isRightPaneMsg() {}

type PageUpMsg struct{}

func (PageUpMsg) isRightPaneMsg() {}

type PageDownMsg struct {
	MaxScroll int
}

func (PageDownMsg) isRightPaneMsg() {}

type JumpMsg struct {
	Direction string // "j" for down, "k" for up
	Lines     int
	MaxScroll int
}

func (JumpMsg) isRightPaneMsg() {}

type ResizeRightPaneMsg struct {
	Width  int
	Height int
}

func (ResizeRightPaneMsg) isRightPaneMsg() {}

// UpdateContentMsg resets the scroll position for new content.
type UpdateContentMsg struct{}

func (UpdateContentMsg) isRightPaneMsg() {}

// RightPaneModel holds the state for the right pane (content viewer)
type RightPaneModel struct {
	Width   int
	Height  int
	ViewPos int // first visible line
}

// NewRightPaneModel creates a new right pane model with default values
func NewRightPaneModel(width, height int) RightPaneModel {
	return RightPaneModel{Width: width, Height: height}
}

func (r *RightPaneModel) Update(msg RightPaneMsg) {
	switch m := msg.(type) {
	case ScrollToTopMsg:
		r.ViewPos = 0
	case ScrollToBottomMsg:
		r.ViewPos = max(m.MaxScroll, 0)
	case PageUpMsg:
		r.ViewPos = max(r.ViewPos-r.pageSize(), 0)
	case PageDownMsg:
		r.ViewPos = max(min(r.ViewPos+r.pageSize(), m.MaxScroll), 0)
	case JumpMsg:
		switch m.Direction {
		case "j":
			r.ViewPos = max(min(r.ViewPos+m.Lines, m.MaxScroll), 0)
		case "k":
			r.ViewPos = max(r.ViewPos-m.Lines, 0)
		}
	case ResizeRightPaneMsg:
		r.Width = m.Width
		r.Height = m.Height
	case UpdateContentMsg:
		r.ViewPos = 0
	}
}

// half a screen
func (r *RightPaneModel) pageSize() int {
	return max((r.Height-6)/2, 1)
}

func (r *RightPaneModel) contentWidth() int {
	return max(r.Width-6, 1)
}

func (r *RightPaneModel) availableHeight() int {
	return max(r.Height-6, 1)
}

// RightPaneView renders the selected item's content.
func RightPaneView(model RightPaneModel, preview *Preview, search SearchModel, focused bool, now time.Time) string {
	borderColor := "62"
	if focused {
		borderColor = "205"
		if search.Typing {
			borderColor = "220"
		}
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(model.Width - 2).
		Height(model.Height - 4)

	var b strings.Builder
	if preview == nil {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render("Content") + "\n\n")
		b.WriteString("No item selected")
		return style.Render(b.String())
	}

	preview.Wrap(model.contentWidth())

	item := preview.Item
	title := fmt.Sprintf("#%d %s · %s", item.ID, item.Kind, humanize.RelTime(item.Timestamp, now, "ago", "from now"))
	if item.Favorite {
		title += " ★"
	}
	if focused {
		title = "● " + title
	}

	lines := preview.Lines
	pattern := search.Pattern
	if pattern != "" {
		lines = preview.Plain
	}

	height := model.availableHeight()
	if maxScroll := getMaxScroll(model, preview); maxScroll > 0 {
		top := model.ViewPos + 1
		bottom := min(model.ViewPos+height, len(lines))
		title += fmt.Sprintf(" (%d-%d/%d)", top, bottom, len(lines))
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n\n")

	matchLines := make(map[int]bool)
	for _, l := range search.Matches {
		matchLines[l] = true
	}

	end := min(model.ViewPos+height, len(lines))
	for i := model.ViewPos; i < end; i++ {
		line := lines[i]
		if pattern != "" && matchLines[i] {
			line = highlightSearchMatches(line, pattern, i == search.CurrentLine())
		}
		b.WriteString(line + "\n")
	}

	return style.Render(strings.TrimSuffix(b.String(), "\n"))
}

// highlightSearchMatches highlights search matches in a line (pure function)
func highlightSearchMatches(line, pattern string, isCurrentMatch bool) string {
	regex, err := compileSearch(pattern)
	if err != nil {
		return line
	}

	matches := regex.FindAllStringIndex(line, -1)
	if len(matches) == 0 {
		return line
	}

	bg := "11"
	if isCurrentMatch {
		bg = "220"
	}
	hl := lipgloss.NewStyle().Background(lipgloss.Color(bg)).Foreground(lipgloss.Color("0"))

	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(line[last:m[0]])
		out.WriteString(hl.Render(line[m[0]:m[1]]))
		last = m[1]
	}
	out.WriteString(line[last:])
	return out.String()
}

// getMaxScroll returns the maximum scroll position (pure function)
func getMaxScroll(model RightPaneModel, preview *Preview) int {
	if preview == nil {
		return 0
	}
	preview.Wrap(model.contentWidth())
	return max(len(preview.Plain)-model.availableHeight(), 0)
}

// scrollToMatch returns the view position centering matchLine.
func scrollToMatch(model RightPaneModel, preview *Preview, matchLine int) int {
	pos := max(0, matchLine-model.availableHeight()/2)
	return min(pos, getMaxScroll(model, preview))
}
