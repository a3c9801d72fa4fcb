// Package sysboard implements the clipboard source on top of the OS
// clipboard. Change signals, text and PNG images come from
// golang.design/x/clipboard. On Linux, richer targets (file lists and HTML)
// are read through xclip or wl-paste.
package sysboard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	sysclip "golang.design/x/clipboard"

	"github.com/yiblet/clipd/internal/clipboard"
	"github.com/yiblet/clipd/internal/logger"
)

const (
	targetURIList    = "text/uri-list"
	targetGnomeFiles = "x-special/gnome-copied-files"
	targetHTML       = "text/html"
)

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// SystemClipboard is a clipboard.Source and clipboard.Writer for the
// desktop clipboard.
type SystemClipboard struct {
	log     logger.Logger
	run     runFunc
	wayland bool

	initOnce sync.Once
	initErr  error
}

var (
	_ clipboard.Source = (*SystemClipboard)(nil)
	_ clipboard.Writer = (*SystemClipboard)(nil)
)

// New creates a new SystemClipboard instance
func New(log logger.Logger) *SystemClipboard {
	if log == nil {
		log = logger.NewNop()
	}
	return &SystemClipboard{
		log:     log,
		run:     readWithCommand,
		wayland: os.Getenv("WAYLAND_DISPLAY") != "",
	}
}

// Init prepares the native clipboard. It is safe to call repeatedly.
func (s *SystemClipboard) Init() error {
	s.initOnce.Do(func() {
		if err := sysclip.Init(); err != nil {
			s.initErr = fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	})
	return s.initErr
}

// IsSupported returns true if the native clipboard can be used.
func (s *SystemClipboard) IsSupported() bool {
	return s.Init() == nil
}

// Watch emits a snapshot each time the text or image on the clipboard changes.
func (s *SystemClipboard) Watch(ctx context.Context) (<-chan clipboard.Snapshot, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	texts := sysclip.Watch(ctx, sysclip.FmtText)
	images := sysclip.Watch(ctx, sysclip.FmtImage)
	out := make(chan clipboard.Snapshot)

	go func() {
		defer close(out)
		for texts != nil || images != nil {
			var snap *snapshot
			select {
			case <-ctx.Done():
				return
			case data, ok := <-texts:
				if !ok {
					texts = nil
					continue
				}
				snap = s.newSnapshot(ctx, data, nil)
			case data, ok := <-images:
				if !ok {
					images = nil
					continue
				}
				snap = s.newSnapshot(ctx, nil, data)
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// WriteText implements clipboard.Writer.
func (s *SystemClipboard) WriteText(text string) error {
	if err := s.Init(); err != nil {
		return err
	}
	<-sysclip.Write(sysclip.FmtText, []byte(text))
	return nil
}

// WriteImage implements clipboard.Writer. data must be PNG encoded.
func (s *SystemClipboard) WriteImage(data []byte) error {
	if err := s.Init(); err != nil {
		return err
	}
	<-sysclip.Write(sysclip.FmtImage, data)
	return nil
}

func (s *SystemClipboard) newSnapshot(ctx context.Context, text, image []byte) *snapshot {
	snap := &snapshot{
		sys:   s,
		text:  text,
		image: image,
	}
	targets, err := s.targets(ctx)
	if err != nil {
		s.log.Debug("clipboard targets unavailable", logger.Error(err))
	}
	snap.formats = formatsFor(targets, text != nil, image != nil)
	return snap
}

// targets lists the MIME targets currently offered. Only Linux exposes them.
func (s *SystemClipboard) targets(ctx context.Context) ([]string, error) {
	if runtime.GOOS != "linux" {
		return nil, nil
	}
	name, args := targetsCommand(s.wayland)
	out, err := s.run(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return parseTargets(string(out)), nil
}

func (s *SystemClipboard) readTarget(ctx context.Context, target string) ([]byte, error) {
	name, args := readTargetCommand(s.wayland, target)
	out, err := s.run(ctx, name, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return out, nil
}

// snapshot captures the payload delivered with the change signal and reads
// the other targets on demand.
type snapshot struct {
	sys     *SystemClipboard
	formats []clipboard.Format
	text    []byte
	image   []byte
}

func (s *snapshot) Formats() []clipboard.Format {
	return s.formats
}

func (s *snapshot) Files(ctx context.Context) ([]string, error) {
	data, err := s.sys.readTarget(ctx, targetURIList)
	if err != nil {
		// Nautilus-style lists carry an action line before the URIs, which
		// ParseURIList skips.
		var gerr error
		if data, gerr = s.sys.readTarget(ctx, targetGnomeFiles); gerr != nil {
			return nil, err
		}
	}
	return clipboard.ParseURIList(string(data)), nil
}

func (s *snapshot) Text(ctx context.Context) (string, error) {
	if s.text != nil {
		return string(s.text), nil
	}
	return string(sysclip.Read(sysclip.FmtText)), nil
}

func (s *snapshot) Image(ctx context.Context) ([]byte, error) {
	if s.image != nil {
		return s.image, nil
	}
	return sysclip.Read(sysclip.FmtImage), nil
}

func (s *snapshot) HTML(ctx context.Context) (string, error) {
	data, err := s.sys.readTarget(ctx, targetHTML)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func targetsCommand(wayland bool) (string, []string) {
	if wayland {
		return "wl-paste", []string{"--list-types"}
	}
	return "xclip", []string{"-selection", "clipboard", "-t", "TARGETS", "-o"}
}

func readTargetCommand(wayland bool, target string) (string, []string) {
	if wayland {
		return "wl-paste", []string{"--no-newline", "--type", target}
	}
	return "xclip", []string{"-selection", "clipboard", "-t", target, "-o"}
}

func parseTargets(out string) []string {
	var targets []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			targets = append(targets, line)
		}
	}
	return targets
}

// formatsFor maps offered targets and the payload that arrived with the
// signal to the formats the engine understands.
func formatsFor(targets []string, hasText, hasImage bool) []clipboard.Format {
	var formats []clipboard.Format
	has := func(name string) bool {
		for _, t := range targets {
			if strings.EqualFold(t, name) {
				return true
			}
		}
		return false
	}

	if has(targetURIList) || has(targetGnomeFiles) {
		formats = append(formats, clipboard.FormatFiles)
	}
	if hasText {
		formats = append(formats, clipboard.FormatText)
	}
	if hasImage {
		formats = append(formats, clipboard.FormatImage)
	}
	if has(targetHTML) {
		formats = append(formats, clipboard.FormatHTML)
	}
	return formats
}

// readWithCommand executes a command and returns its output
func readWithCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return out.Bytes(), nil
}
