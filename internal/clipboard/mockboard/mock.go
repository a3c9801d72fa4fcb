// Package mockboard provides an in-memory clipboard for tests: snapshots
// built from literal payloads, a source fed by hand, and a writer that
// records what was copied out.
package mockboard

import (
	"context"
	"errors"
	"sync"

	"github.com/yiblet/clipd/internal/clipboard"
)

// ErrNotOffered is returned by accessors for a format the snapshot lacks.
var ErrNotOffered = errors.New("format not offered")

// Snapshot is a fixed clipboard state.
type Snapshot struct {
	formats []clipboard.Format
	files   []string
	text    string
	image   []byte
	html    string

	// Err, when set, is returned by every payload accessor.
	Err error
}

var _ clipboard.Snapshot = (*Snapshot)(nil)

// Text returns a snapshot offering plain text.
func Text(s string) *Snapshot {
	return (&Snapshot{}).WithText(s)
}

// Files returns a snapshot offering file references.
func Files(paths ...string) *Snapshot {
	return (&Snapshot{}).WithFiles(paths...)
}

// Image returns a snapshot offering a bitmap.
func Image(data []byte) *Snapshot {
	return (&Snapshot{}).WithImage(data)
}

// HTML returns a snapshot offering only markup.
func HTML(s string) *Snapshot {
	return (&Snapshot{}).WithHTML(s)
}

func (s *Snapshot) WithText(text string) *Snapshot {
	s.text = text
	s.add(clipboard.FormatText)
	return s
}

func (s *Snapshot) WithFiles(paths ...string) *Snapshot {
	s.files = paths
	s.add(clipboard.FormatFiles)
	return s
}

func (s *Snapshot) WithImage(data []byte) *Snapshot {
	s.image = data
	s.add(clipboard.FormatImage)
	return s
}

func (s *Snapshot) WithHTML(html string) *Snapshot {
	s.html = html
	s.add(clipboard.FormatHTML)
	return s
}

func (s *Snapshot) add(f clipboard.Format) {
	for _, have := range s.formats {
		if have == f {
			return
		}
	}
	s.formats = append(s.formats, f)
}

func (s *Snapshot) Formats() []clipboard.Format {
	return s.formats
}

func (s *Snapshot) Files(ctx context.Context) ([]string, error) {
	if err := s.check(clipboard.FormatFiles); err != nil {
		return nil, err
	}
	return s.files, nil
}

func (s *Snapshot) Text(ctx context.Context) (string, error) {
	if err := s.check(clipboard.FormatText); err != nil {
		return "", err
	}
	return s.text, nil
}

func (s *Snapshot) Image(ctx context.Context) ([]byte, error) {
	if err := s.check(clipboard.FormatImage); err != nil {
		return nil, err
	}
	return s.image, nil
}

func (s *Snapshot) HTML(ctx context.Context) (string, error) {
	if err := s.check(clipboard.FormatHTML); err != nil {
		return "", err
	}
	return s.html, nil
}

func (s *Snapshot) check(f clipboard.Format) error {
	if s.Err != nil {
		return s.Err
	}
	if !clipboard.Has(s, f) {
		return ErrNotOffered
	}
	return nil
}

// Source hands out snapshots pushed by the test.
type Source struct {
	ch       chan clipboard.Snapshot
	WatchErr error
}

var _ clipboard.Source = (*Source)(nil)

// NewSource creates a source buffering up to n pending snapshots.
func NewSource(n int) *Source {
	return &Source{ch: make(chan clipboard.Snapshot, n)}
}

// Push queues a snapshot for the watcher.
func (s *Source) Push(snap clipboard.Snapshot) {
	s.ch <- snap
}

// Close ends the stream as if the clipboard went away.
func (s *Source) Close() {
	close(s.ch)
}

// Watch forwards pushed snapshots until ctx ends or Close is called.
func (s *Source) Watch(ctx context.Context) (<-chan clipboard.Snapshot, error) {
	if s.WatchErr != nil {
		return nil, s.WatchErr
	}
	out := make(chan clipboard.Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-s.ch:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Writer records what was copied to the clipboard.
type Writer struct {
	mu    sync.Mutex
	text  string
	image []byte
}

var _ clipboard.Writer = (*Writer)(nil)

func (w *Writer) WriteText(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.text, w.image = text, nil
	return nil
}

func (w *Writer) WriteImage(png []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.text, w.image = "", png
	return nil
}

// Text returns the last text written.
func (w *Writer) Text() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.text
}

// ImageData returns the last image written.
func (w *Writer) ImageData() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.image
}
