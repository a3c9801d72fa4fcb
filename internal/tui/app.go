// Package tui is the terminal history browser. It observes the capture
// engine through its accessors and event bus and holds no history state of
// its own.
package tui

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/yiblet/clipd/internal/clip"
	"github.com/yiblet/clipd/internal/clipboard"
	"github.com/yiblet/clipd/internal/engine"
	"github.com/yiblet/clipd/internal/event"
)

// History is the part of the engine the browser drives.
type History interface {
	Items() []clip.Item
	LoadContent(ctx context.Context, id int64) (string, bool)
	ToggleFavorite(ctx context.Context, id int64) (bool, error)
	Remove(ctx context.Context, id int64) error
	Search(query string) iter.Seq[clip.Item]
}

// PaneType represents which pane is focused
type PaneType int

const (
	LeftPane PaneType = iota
	RightPane
)

// UIMode represents the current modal state of the application
type UIMode int

const (
	NormalMode UIMode = iota
	SearchMode
	FilterMode
	HelpMode
	NumberInputMode
	DeleteMode
)

// HistoryChangedMsg tells the browser to re-read the working set.
type HistoryChangedMsg struct{}

type previewLoadedMsg struct {
	ID      int64
	Payload string
	Found   bool
}

type flashExpiredMsg struct{}

// AppModel orchestrates all sub-models
type AppModel struct {
	Width       int
	Height      int
	LeftWidth   int
	RightWidth  int
	ActivePane  PaneType
	CurrentMode UIMode

	LeftPane  LeftPaneModel
	RightPane RightPaneModel
	Search    SearchModel
	Modal     ModalModel

	Items   []clip.Item
	Filter  string // history filter applied through History.Search
	Preview *Preview

	// Vim-style count prefix such as "10j".
	NumberBuffer string
	BufferPane   PaneType

	FlashMessage string
	FlashExpiry  time.Time

	ctx       context.Context
	history   History
	clipboard clipboard.Writer
	gate      *engine.PreviewGate
	pending   bool // a preview was requested while the gate was taken
	now       func() time.Time
}

// NewAppModel creates the browser over h. Copies go to w.
func NewAppModel(ctx context.Context, h History, w clipboard.Writer) *AppModel {
	const (
		defaultWidth      = 120
		defaultHeight     = 20
		defaultLeftWidth  = 40
		defaultRightWidth = 78
	)

	a := &AppModel{
		Width:       defaultWidth,
		Height:      defaultHeight,
		LeftWidth:   defaultLeftWidth,
		RightWidth:  defaultRightWidth,
		ActivePane:  LeftPane,
		CurrentMode: NormalMode,
		LeftPane:    NewLeftPaneModel(defaultLeftWidth, defaultHeight),
		RightPane:   NewRightPaneModel(defaultRightWidth, defaultHeight),
		Search:      NewSearchModel(),
		Modal:       NewModalModel(),
		ctx:         ctx,
		history:     h,
		clipboard:   w,
		gate:        engine.NewPreviewGate(),
		now:         time.Now,
	}
	a.Items = slices.Collect(h.Search(""))
	return a
}

// Run shows the browser until the user quits or ctx ends. Engine
// notifications on bus refresh the list while it is open.
func Run(ctx context.Context, h History, bus *event.Bus, w clipboard.Writer) error {
	model := NewAppModel(ctx, h, w)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if bus != nil {
		id := bus.SubscribeAll(func(event.Event) { go p.Send(HistoryChangedMsg{}) })
		defer bus.Unsubscribe(id)
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init loads the first preview.
func (a *AppModel) Init() tea.Cmd {
	return a.requestPreview()
}

// Update handles app-level messages and routes to appropriate sub-models
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return a, nil
	case tea.KeyMsg:
		return a.handleKeyPress(m.String())
	case HistoryChangedMsg:
		return a, a.refresh()
	case previewLoadedMsg:
		return a, a.previewLoaded(m)
	case flashExpiredMsg:
		a.FlashMessage = ""
		a.FlashExpiry = time.Time{}
		return a, nil
	}
	return a, nil
}

func (a *AppModel) resize(width, height int) {
	const (
		minTotalWidth = 40
		minLeftWidth  = 20
		borderSpacing = 2
	)

	a.Width = max(width, minTotalWidth)
	a.Height = height
	a.LeftWidth = max(min(a.Width*2/5, 60), minLeftWidth)
	a.RightWidth = a.Width - a.LeftWidth - borderSpacing

	a.LeftPane.Update(ResizeLeftPaneMsg{Width: a.LeftWidth, Height: a.Height})
	a.RightPane.Update(ResizeRightPaneMsg{Width: a.RightWidth, Height: a.Height})
	a.RightPane.Update(UpdateContentMsg{})
}

func (a *AppModel) handleKeyPress(key string) (tea.Model, tea.Cmd) {
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.CurrentMode {
	case SearchMode:
		return a.handleSearchModeKeys(key)
	case FilterMode:
		return a.handleFilterModeKeys(key)
	case HelpMode:
		return a.handleHelpModeKeys(key)
	case NumberInputMode:
		return a.handleNumberInputModeKeys(key)
	case DeleteMode:
		return a.handleDeleteModeKeys(key)
	default:
		return a.handleNormalModeKeys(key)
	}
}

func (a *AppModel) handleSearchModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		a.Search.Abort()
		a.CurrentMode = NormalMode
	case "enter":
		if !a.Search.Commit() {
			return a, nil
		}
		if a.Search.Pattern != "" && a.Preview != nil {
			a.Preview.Wrap(a.RightPane.contentWidth())
			a.Search.SetMatches(a.Preview.Matches(a.Search.Pattern))
			if line := a.Search.CurrentLine(); line >= 0 {
				a.RightPane.ViewPos = scrollToMatch(a.RightPane, a.Preview, line)
			}
		}
		a.CurrentMode = NormalMode
	case "backspace", "ctrl+h":
		a.Search.Input = dropLastRune(a.Search.Input)
	default:
		if isPrintable(key) {
			a.Search.Input += key
		}
	}
	return a, nil
}

// handleFilterModeKeys narrows the history list as the query is typed.
func (a *AppModel) handleFilterModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		a.Filter = ""
		a.CurrentMode = NormalMode
	case "enter":
		a.CurrentMode = NormalMode
		return a, nil
	case "backspace", "ctrl+h":
		a.Filter = dropLastRune(a.Filter)
	default:
		if !isPrintable(key) {
			return a, nil
		}
		a.Filter += key
	}
	a.LeftPane.Update(GoToTopMsg{})
	return a, a.refresh()
}

func (a *AppModel) handleHelpModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "z", "esc", "q":
		a.CurrentMode = NormalMode
	}
	return a, nil
}

func (a *AppModel) handleNumberInputModeKeys(key string) (tea.Model, tea.Cmd) {
	switch {
	case key == "esc":
		a.NumberBuffer = ""
		a.CurrentMode = NormalMode
		return a, nil
	case key == "backspace":
		a.NumberBuffer = a.NumberBuffer[:len(a.NumberBuffer)-1]
		if a.NumberBuffer == "" {
			a.CurrentMode = NormalMode
		}
		return a, nil
	case key >= "0" && key <= "9" && len(key) == 1:
		a.NumberBuffer += key
		return a, nil
	case isMovementCommand(key):
		multiplier := 1
		if n, err := strconv.Atoi(a.NumberBuffer); err == nil {
			multiplier = n
		}
		a.NumberBuffer = ""
		a.CurrentMode = NormalMode
		return a.executeCommand(multiplier, key, a.BufferPane)
	default:
		a.NumberBuffer = ""
		a.CurrentMode = NormalMode
		return a, nil
	}
}

func (a *AppModel) handleDeleteModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		a.Modal.Update(HideModalMsg{})
		a.CurrentMode = NormalMode

		item, ok := a.selectedItem()
		if !ok {
			return a, nil
		}
		if err := a.history.Remove(a.ctx, item.ID); err != nil {
			return a, a.setFlashMessage(fmt.Sprintf("Delete failed: %v", err), 3*time.Second)
		}
		return a, tea.Batch(a.refresh(), a.setFlashMessage("Item deleted", 2*time.Second))
	case "n", "N", "esc":
		a.Modal.Update(HideModalMsg{})
		a.CurrentMode = NormalMode
	}
	return a, nil
}

func (a *AppModel) handleNormalModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return a, tea.Quit
	case "esc":
		if a.Filter != "" {
			a.Filter = ""
			return a, a.refresh()
		}
		if a.Search.Pattern != "" {
			a.Search.Reset()
			return a, nil
		}
		return a, tea.Quit
	case "z":
		a.CurrentMode = HelpMode
		return a, nil
	case "c":
		return a, a.copyToClipboard()
	case "f":
		return a, a.toggleFavorite()
	case "tab":
		if a.ActivePane == LeftPane {
			a.ActivePane = RightPane
		} else {
			a.ActivePane = LeftPane
		}
		return a, nil
	case "h", "left":
		a.ActivePane = LeftPane
		return a, nil
	case "l", "right", "enter":
		a.ActivePane = RightPane
		return a, nil
	}

	if key >= "1" && key <= "9" && len(key) == 1 {
		a.NumberBuffer = key
		a.BufferPane = a.ActivePane
		a.CurrentMode = NumberInputMode
		return a, nil
	}

	if isMovementCommand(key) {
		return a.executeCommand(1, key, a.ActivePane)
	}

	if a.ActivePane == LeftPane {
		return a.handleLeftPaneKeys(key)
	}
	return a.handleRightPaneKeys(key)
}

func (a *AppModel) handleLeftPaneKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "/":
		a.CurrentMode = FilterMode
	case "d", "delete":
		if item, ok := a.selectedItem(); ok {
			a.CurrentMode = DeleteMode
			a.Modal.Update(ShowDeleteConfirmation(item.Preview, item.ID))
		}
	}
	return a, nil
}

func (a *AppModel) handleRightPaneKeys(key string) (tea.Model, tea.Cmd) {
	maxScroll := getMaxScroll(a.RightPane, a.Preview)

	switch key {
	case "/", "?":
		a.Search.Begin()
		a.CurrentMode = SearchMode
	case "n", "N":
		if a.Preview == nil {
			return a, nil
		}
		delta := 1
		if key == "N" {
			delta = -1
		}
		if line := a.Search.Step(delta); line >= 0 {
			a.RightPane.ViewPos = scrollToMatch(a.RightPane, a.Preview, line)
		}
	case "ctrl+u":
		a.RightPane.Update(PageUpMsg{})
	case "ctrl+d":
		a.RightPane.Update(PageDownMsg{MaxScroll: maxScroll})
	case "ctrl+b":
		a.RightPane.Update(JumpMsg{Direction: "k", Lines: a.RightPane.availableHeight(), MaxScroll: maxScroll})
	case "ctrl+f":
		a.RightPane.Update(JumpMsg{Direction: "j", Lines: a.RightPane.availableHeight(), MaxScroll: maxScroll})
	}
	return a, nil
}

func isMovementCommand(key string) bool {
	switch key {
	case "up", "k", "down", "j", "g", "G":
		return true
	}
	return false
}

// executeCommand applies a movement key multiplier times to pane.
func (a *AppModel) executeCommand(multiplier int, key string, pane PaneType) (tea.Model, tea.Cmd) {
	if pane == RightPane {
		maxScroll := getMaxScroll(a.RightPane, a.Preview)
		switch key {
		case "up", "k":
			a.RightPane.Update(JumpMsg{Direction: "k", Lines: multiplier, MaxScroll: maxScroll})
		case "down", "j":
			a.RightPane.Update(JumpMsg{Direction: "j", Lines: multiplier, MaxScroll: maxScroll})
		case "g":
			if multiplier > 1 {
				a.RightPane.ViewPos = min(multiplier-1, maxScroll)
			} else {
				a.RightPane.Update(ScrollToTopMsg{})
			}
		case "G":
			a.RightPane.Update(ScrollToBottomMsg{MaxScroll: maxScroll})
		}
		return a, nil
	}

	maxIndex := len(a.Items) - 1
	switch key {
	case "up", "k":
		a.LeftPane.Update(JumpToIndexMsg{Index: max(a.LeftPane.Cursor-multiplier, 0), MaxIndex: maxIndex})
	case "down", "j":
		a.LeftPane.Update(JumpToIndexMsg{Index: min(a.LeftPane.Cursor+multiplier, maxIndex), MaxIndex: maxIndex})
	case "g":
		if multiplier > 1 {
			a.LeftPane.Update(JumpToIndexMsg{Index: min(multiplier-1, maxIndex), MaxIndex: maxIndex})
		} else {
			a.LeftPane.Update(GoToTopMsg{})
		}
	case "G":
		a.LeftPane.Update(GoToBottomMsg{MaxIndex: maxIndex})
	}
	return a, a.requestPreview()
}

func (a *AppModel) selectedItem() (clip.Item, bool) {
	if a.LeftPane.Cursor < 0 || a.LeftPane.Cursor >= len(a.Items) {
		return clip.Item{}, false
	}
	return a.Items[a.LeftPane.Cursor], true
}

// refresh re-reads the working set, keeping the selection on the same item
// when it still exists.
func (a *AppModel) refresh() tea.Cmd {
	var selected int64
	if item, ok := a.selectedItem(); ok {
		selected = item.ID
	}

	a.Items = slices.Collect(a.history.Search(a.Filter))
	if i := slices.IndexFunc(a.Items, func(it clip.Item) bool { return it.ID == selected }); i >= 0 {
		a.LeftPane.Cursor = i
	}
	a.LeftPane.Clamp(len(a.Items))
	return a.requestPreview()
}

// requestPreview starts loading the selected item unless it is already shown.
// Only one load runs at a time; a request made while one is in flight is
// served when it completes.
func (a *AppModel) requestPreview() tea.Cmd {
	item, ok := a.selectedItem()
	if !ok {
		a.Preview = nil
		return nil
	}

	if a.Preview != nil && a.Preview.Item.ID == item.ID {
		a.Preview.Item = item
		return nil
	}

	a.Preview = NewPreview(item)
	a.RightPane.Update(UpdateContentMsg{})
	a.Search.Reset()

	if !a.gate.TryAcquire() {
		a.pending = true
		return nil
	}
	return a.loadPreview(item.ID)
}

func (a *AppModel) loadPreview(id int64) tea.Cmd {
	ctx, h, gate := a.ctx, a.history, a.gate
	return func() tea.Msg {
		defer gate.Release()
		payload, found := h.LoadContent(ctx, id)
		return previewLoadedMsg{ID: id, Payload: payload, Found: found}
	}
}

func (a *AppModel) previewLoaded(m previewLoadedMsg) tea.Cmd {
	if a.Preview != nil && a.Preview.Item.ID == m.ID {
		a.Preview.SetPayload(m.Payload, m.Found)
	}

	if !a.pending {
		return nil
	}
	a.pending = false
	if a.Preview == nil || !a.Preview.Loading {
		return nil
	}
	if !a.gate.TryAcquire() {
		a.pending = true
		return nil
	}
	return a.loadPreview(a.Preview.Item.ID)
}

func (a *AppModel) copyToClipboard() tea.Cmd {
	item, ok := a.selectedItem()
	if !ok {
		return a.setFlashMessage("No item selected", 2*time.Second)
	}
	if a.clipboard == nil {
		return a.setFlashMessage("Clipboard unavailable", 2*time.Second)
	}

	payload, found := a.history.LoadContent(a.ctx, item.ID)
	if !found || payload == "" {
		return a.setFlashMessage("Content unavailable", 2*time.Second)
	}

	if err := clipboard.CopyOut(a.clipboard, item.Kind, payload); err != nil {
		return a.setFlashMessage(fmt.Sprintf("Copy failed: %v", err), 3*time.Second)
	}
	return a.setFlashMessage(fmt.Sprintf("Copied %s to clipboard", humanize.IBytes(uint64(len(payload)))), 2*time.Second)
}

func (a *AppModel) toggleFavorite() tea.Cmd {
	item, ok := a.selectedItem()
	if !ok {
		return nil
	}

	fav, err := a.history.ToggleFavorite(a.ctx, item.ID)
	if err != nil {
		return a.setFlashMessage(fmt.Sprintf("Favorite failed: %v", err), 3*time.Second)
	}

	msg := "Removed from favorites"
	if fav {
		msg = "Added to favorites"
	}
	return tea.Batch(a.refresh(), a.setFlashMessage(msg, 2*time.Second))
}

func (a *AppModel) setFlashMessage(message string, duration time.Duration) tea.Cmd {
	a.FlashMessage = message
	a.FlashExpiry = a.now().Add(duration)
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return flashExpiredMsg{}
	})
}

// View renders the whole screen.
func (a *AppModel) View() string {
	if a.Width == 0 {
		return "Initializing..."
	}

	if a.CurrentMode == HelpMode {
		return renderHelpView(a) + "\n\n" + renderStatusLine(a)
	}

	left := LeftPaneView(a.LeftPane, a.Items, a.Filter, a.ActivePane == LeftPane)
	right := RightPaneView(a.RightPane, a.Preview, a.Search, a.ActivePane == RightPane, a.now())
	view := lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n\n" + renderStatusLine(a)

	if a.Modal.Active {
		return ModalView(a.Modal, view, a.Width, a.Height)
	}
	return view
}

func renderStatusLine(a *AppModel) string {
	style := lipgloss.NewStyle().Width(a.Width)

	if a.FlashMessage != "" && a.now().Before(a.FlashExpiry) {
		return style.Foreground(lipgloss.Color("10")).Render(a.FlashMessage)
	}

	var status string
	switch {
	case a.NumberBuffer != "":
		status = a.NumberBuffer
	case a.CurrentMode == FilterMode:
		status = fmt.Sprintf("Filter: %s (Enter to keep, Esc to clear)", a.Filter)
	case a.Search.Typing:
		status = "/" + a.Search.Input
		if a.Search.Err != "" {
			status += fmt.Sprintf(" (Error: %s)", a.Search.Err)
		} else {
			status += " (Enter to search, Esc to cancel)"
		}
	case len(a.Search.Matches) > 0:
		status = fmt.Sprintf("Pattern: %s - Match %d of %d", a.Search.Pattern, a.Search.Current+1, len(a.Search.Matches))
	case a.CurrentMode == HelpMode:
		status = "Help - press z to return, q to quit"
	default:
		status = "z help · / filter · f favorite · c copy · d delete · q quit"
	}
	return style.Render(status)
}

func renderHelpView(a *AppModel) string {
	help := `clipd - clipboard history

NAVIGATION
  j, ↓ / k, ↑   Next / previous item, or scroll the preview
  g / G         First / last (with a count: go to N)
  #j, #k        Move N rows (e.g. 10j)
  Tab, h, l     Switch panes

HISTORY (left pane)
  /query        Filter items by preview, content or kind
  f             Toggle favorite (favorites are never swept)
  d             Delete the selected item
  c             Copy the selected item back to the clipboard

PREVIEW (right pane)
  /pattern      Search inside the preview
  n / N         Next / previous match
  Ctrl+u/d      Half page up / down
  Ctrl+b/f      Full page up / down

  q             Quit
  Esc           Clear filter or search, then quit
  Ctrl+c        Force quit`

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1).
		Width(max(a.Width-4, 10)).
		Height(max(a.Height-4, 5)).
		Render(help)
}

func isPrintable(key string) bool {
	r := []rune(key)
	return len(r) == 1 && r[0] >= ' ' && r[0] != 0x7f
}

func dropLastRune(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}

var _ tea.Model = (*AppModel)(nil)
