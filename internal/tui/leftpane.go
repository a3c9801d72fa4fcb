package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/clipd/internal/clip"
)

// LeftPaneMsg represents messages that the left pane component handles
type LeftPaneMsg interface {
	isLeftPaneMsg()
}

type NavigateUpMsg struct{}

func (NavigateUpMsg) isLeftPaneMsg() {}

type NavigateDownMsg struct {
	MaxIndex int
}

func (NavigateDownMsg) isLeftPaneMsg() {}

type GoToTopMsg struct{}

func (GoToTopMsg) isLeftPaneMsg() {}

type GoToBottomMsg struct {
	MaxIndex int
}

func (GoToBottomMsg) isLeftPaneMsg() {}

type JumpToIndexMsg struct {
	Index    int
	MaxIndex int
}

func (JumpToIndexMsg) isLeftPaneMsg() {}

type ResizeLeftPaneMsg struct {
	Width  int
	Height int
}

func (ResizeLeftPaneMsg) isLeftPaneMsg() {}

// LeftPaneModel holds the state of the history list.
type LeftPaneModel struct {
	Cursor int // selected row
	Offset int // first visible row
	Width  int
	Height int
}

// NewLeftPaneModel creates a new left pane model with default values
func NewLeftPaneModel(width, height int) LeftPaneModel {
	return LeftPaneModel{Width: width, Height: height}
}

func (l *LeftPaneModel) Update(msg LeftPaneMsg) {
	switch m := msg.(type) {
	case NavigateUpMsg:
		if l.Cursor > 0 {
			l.Cursor--
		}
	case NavigateDownMsg:
		if l.Cursor < m.MaxIndex {
			l.Cursor++
		}
	case GoToTopMsg:
		l.Cursor = 0
	case GoToBottomMsg:
		l.Cursor = max(m.MaxIndex, 0)
	case JumpToIndexMsg:
		if m.Index >= 0 && m.Index <= m.MaxIndex {
			l.Cursor = m.Index
		}
	case ResizeLeftPaneMsg:
		l.Width = m.Width
		l.Height = m.Height
	}
	l.keepVisible()
}

// Clamp moves the cursor back inside a list of n rows.
func (l *LeftPaneModel) Clamp(n int) {
	l.Cursor = min(l.Cursor, max(n-1, 0))
	l.keepVisible()
}

func (l *LeftPaneModel) visibleRows() int {
	return max(l.Height-6, 1)
}

func (l *LeftPaneModel) keepVisible() {
	rows := l.visibleRows()
	if l.Cursor < l.Offset {
		l.Offset = l.Cursor
	}
	if l.Cursor >= l.Offset+rows {
		l.Offset = l.Cursor - rows + 1
	}
}

// LeftPaneView renders the history list.
func LeftPaneView(model LeftPaneModel, items []clip.Item, filter string, focused bool) string {
	borderColor := "62"
	if focused {
		borderColor = "205"
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Padding(0, 1).
		Width(model.Width).
		Height(model.Height - 4)

	title := fmt.Sprintf("History (%d)", len(items))
	if filter != "" {
		title = fmt.Sprintf("History /%s (%d)", filter, len(items))
	}
	if focused {
		title = "● " + title
	}

	var content strings.Builder
	content.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n\n")

	if len(items) == 0 {
		content.WriteString("Nothing captured yet.")
		return style.Render(content.String())
	}

	end := min(model.Offset+model.visibleRows(), len(items))
	for i := model.Offset; i < end; i++ {
		line := itemRow(items[i], max(model.Width-15, 1))
		if i == model.Cursor {
			line = lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				Width(model.Width - 2).
				Render(line)
		}
		content.WriteString(line + "\n")
	}

	return style.Render(strings.TrimSuffix(content.String(), "\n"))
}

// itemRow formats one list row, cutting the preview to width runes.
func itemRow(it clip.Item, width int) string {
	mark := " "
	if it.Favorite {
		mark = "★"
	}
	return fmt.Sprintf("%s %s %s", mark, kindBadge(it.Kind), clip.TruncateTitle(it.Preview, width))
}

func kindBadge(k clip.Kind) string {
	switch k {
	case clip.Code:
		return "code"
	case clip.Html:
		return "html"
	case clip.Image:
		return "img "
	case clip.File:
		return "file"
	default:
		return "text"
	}
}
