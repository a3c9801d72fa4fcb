package clip

import (
	"strings"
	"testing"
	"time"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"simple", "hello world", "hello world"},
		{"collapses whitespace", "  hello\n\n\tworld  ", "hello world"},
		{"control characters", "a\x00b\x07c", "a b c"},
		{"empty", "", ""},
		{"exactly limit", strings.Repeat("a", 100), strings.Repeat("a", 100)},
		{"over limit", strings.Repeat("a", 101), strings.Repeat("a", 100) + "..."},
		{"multibyte", strings.Repeat("é", 120), strings.Repeat("é", 100) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.content); got != tt.want {
				t.Errorf("Preview(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestFilesPreview(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"report.pdf"}, "report.pdf"},
		{[]string{"a.txt", "b.txt"}, "2 files: a.txt, b.txt"},
		{[]string{"a", "b", "c"}, "3 files: a, b, c"},
		{[]string{"a", "b", "c", "d"}, "4 files: a, b, c..."},
	}

	for _, tt := range tests {
		if got := FilesPreview(tt.names); got != tt.want {
			t.Errorf("FilesPreview(%v) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestImageLabel(t *testing.T) {
	ts := time.Date(2024, 10, 8, 14, 3, 9, 0, time.Local)
	if got := ImageLabel(ts); got != "Image_20241008_140309" {
		t.Errorf("ImageLabel = %q", got)
	}
}

func TestContent(t *testing.T) {
	c := NotLoaded()
	if c.IsLoaded() || c.Payload() != "" {
		t.Fatalf("placeholder should be empty and not loaded")
	}

	// A payload equal to any former sentinel string is still a real payload.
	c = Loaded("[Lazy Load]")
	if !c.IsLoaded() || c.Payload() != "[Lazy Load]" {
		t.Fatalf("loaded content mismatch: %+v", c)
	}

	if !Loaded("").IsLoaded() {
		t.Fatalf("empty payload must still count as loaded")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Text, Code, Html, Image, File} {
		got, err := ParseKind(strings.ToLower(k.String()))
		if err != nil || got != k {
			t.Errorf("ParseKind(%s) = %v, %v", k, got, err)
		}
	}
	if _, err := ParseKind("audio"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestRecordValid(t *testing.T) {
	base := Record{ID: 1, Timestamp: time.Now(), Kind: Text, ContentPath: "data/1.txt", PreviewText: "x"}
	if !base.Valid() {
		t.Fatal("base record should be valid")
	}

	broken := []func(r *Record){
		func(r *Record) { r.ID = 0 },
		func(r *Record) { r.ID = -3 },
		func(r *Record) { r.ContentPath = "" },
		func(r *Record) { r.PreviewText = "" },
		func(r *Record) { r.Timestamp = time.Time{} },
		func(r *Record) { r.Kind = Kind(42) },
	}
	for i, mutate := range broken {
		r := base
		mutate(&r)
		if r.Valid() {
			t.Errorf("case %d: expected invalid record %+v", i, r)
		}
	}
}
