package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ModalMsg represents messages that the modal component handles
type ModalMsg interface {
	isModalMsg()
}

type ShowModalMsg struct {
	Title   string
	Content string
	Options string
}

func (ShowModalMsg) isModalMsg() {}

type HideModalMsg struct{}

func (HideModalMsg) isModalMsg() {}

// ModalModel holds the state for modal dialogs
type ModalModel struct {
	Active  bool
	Title   string
	Content string
	Options string
	Width   int
	Height  int
}

// NewModalModel creates a new modal model
func NewModalModel() ModalModel {
	return ModalModel{Width: 60, Height: 10}
}

func (m *ModalModel) Update(msg ModalMsg) {
	switch msg := msg.(type) {
	case ShowModalMsg:
		m.Active = true
		m.Title = msg.Title
		m.Content = msg.Content
		m.Options = msg.Options
	case HideModalMsg:
		m.Active = false
		m.Title = ""
		m.Content = ""
		m.Options = ""
	}
}

// ModalView draws the modal centered over backgroundView.
func ModalView(model ModalModel, backgroundView string, windowWidth, windowHeight int) string {
	if !model.Active {
		return backgroundView
	}

	body := model.Title
	if model.Content != "" {
		body += "\n\n" + model.Content
	}
	if model.Options != "" {
		body += "\n\n" + model.Options
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("9")).
		Padding(1, 2).
		Width(min(model.Width, max(windowWidth-4, 10))).
		Height(min(model.Height, max(windowHeight-4, 5))).
		Align(lipgloss.Center, lipgloss.Center).
		Render(body)

	bgLines := strings.Split(backgroundView, "\n")
	modalLines := strings.Split(modal, "\n")

	top := max((windowHeight-len(modalLines))/2, 0)
	left := max((windowWidth-lipgloss.Width(modalLines[0]))/2, 0)

	for i, ml := range modalLines {
		row := top + i
		if row >= len(bgLines) {
			bgLines = append(bgLines, "")
		}
		bg := bgLines[row]
		right := left + lipgloss.Width(ml)

		line := ansi.Truncate(bg, left, "")
		if pad := left - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		line += ml
		if lipgloss.Width(bg) > right {
			line += ansi.TruncateLeft(bg, right, "")
		}
		bgLines[row] = line
	}

	return strings.Join(bgLines, "\n")
}

// ShowDeleteConfirmation creates a delete confirmation modal
func ShowDeleteConfirmation(preview string, id int64) ShowModalMsg {
	return ShowModalMsg{
		Title:   "Delete Item?",
		Content: fmt.Sprintf("#%d %s\n\nThe stored copy will be removed.", id, preview),
		Options: "[Y] Yes, delete    [N] No, cancel",
	}
}
