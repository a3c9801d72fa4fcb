package tui

import "regexp"

// compileSearch compiles a content search pattern. Searches ignore case.
func compileSearch(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// SearchModel is the regex search inside the preview. While Typing, Input
// collects the pattern; Commit makes it the active Pattern.
type SearchModel struct {
	Typing  bool
	Input   string
	Pattern string
	Err     string
	Matches []int // preview lines with a match
	Current int   // index into Matches, -1 without matches
}

func NewSearchModel() SearchModel {
	return SearchModel{Current: -1}
}

// Begin opens the prompt.
func (s *SearchModel) Begin() {
	s.Typing = true
	s.Input, s.Err = "", ""
}

// Abort closes the prompt and leaves the active pattern alone.
func (s *SearchModel) Abort() {
	s.Typing = false
	s.Input, s.Err = "", ""
}

// Commit closes the prompt and activates the typed pattern. Empty input
// clears the search. An invalid pattern keeps the prompt open with Err set
// and reports false.
func (s *SearchModel) Commit() bool {
	if s.Input == "" {
		s.Typing = false
		s.Reset()
		return true
	}
	if _, err := compileSearch(s.Input); err != nil {
		s.Err = err.Error()
		return false
	}
	s.Typing = false
	s.Pattern, s.Err = s.Input, ""
	return true
}

// Reset drops the active pattern and its matches.
func (s *SearchModel) Reset() {
	s.Pattern, s.Err = "", ""
	s.SetMatches(nil)
}

// SetMatches replaces the matches and selects the first one.
func (s *SearchModel) SetMatches(lines []int) {
	s.Matches = lines
	s.Current = -1
	if len(lines) > 0 {
		s.Current = 0
	}
}

// Step moves delta matches forward (or back), wrapping around, and returns
// the line of the new current match.
func (s *SearchModel) Step(delta int) int {
	n := len(s.Matches)
	if n == 0 {
		return -1
	}
	s.Current = ((s.Current+delta)%n + n) % n
	return s.Matches[s.Current]
}

// CurrentLine returns the line of the current match, or -1.
func (s *SearchModel) CurrentLine() int {
	if s.Current < 0 || s.Current >= len(s.Matches) {
		return -1
	}
	return s.Matches[s.Current]
}
