package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jaa/ytmp3/internal/dedupe"
	"github.com/jaa/ytmp3/internal/media"
	"github.com/jaa/ytmp3/internal/search"
	"github.com/jaa/ytmp3/internal/session"
)

func TestLineUIAnswers(t *testing.T) {
	out := &bytes.Buffer{}
	ui := newLineUI(strings.NewReader("y\n\nmy song\n2\n9\nhttps://a\nhttps://b\n\n"), out)

	if ok, err := ui.Confirm("Overwrite?", false); err != nil || !ok {
		t.Fatalf("expected yes, got %v (%v)", ok, err)
	}
	if ok, err := ui.Confirm("Overwrite?", true); err != nil || !ok {
		t.Fatalf("expected default yes on empty line, got %v (%v)", ok, err)
	}
	if name, err := ui.Input("Name", ""); err != nil || name != "my song" {
		t.Fatalf("unexpected input %q (%v)", name, err)
	}
	if index, err := ui.Select("Pick", []string{"a", "b"}); err != nil || index != 1 {
		t.Fatalf("expected index 1, got %d (%v)", index, err)
	}
	if index, err := ui.Select("Pick", []string{"a", "b"}); err != nil || index != -1 {
		t.Fatalf("expected out-of-range pick to cancel, got %d (%v)", index, err)
	}
	lines, err := ui.Lines("URLs")
	if err != nil || len(lines) != 2 || lines[1] != "https://b" {
		t.Fatalf("unexpected lines %v (%v)", lines, err)
	}
	if !strings.Contains(out.String(), "[Y/n]") || !strings.Contains(out.String(), "0 to cancel") {
		t.Fatalf("unexpected prompt text:\n%s", out.String())
	}
}

func TestLineUIEOFAfterLastLine(t *testing.T) {
	ui := newLineUI(strings.NewReader("no newline"), &bytes.Buffer{})
	if got, err := ui.Input("Name", ""); err != nil || got != "no newline" {
		t.Fatalf("expected trailing line, got %q (%v)", got, err)
	}
	if _, err := ui.Input("Name", ""); err == nil {
		t.Fatalf("expected EOF once input is exhausted")
	}
}

func TestPromptsWithoutTerminalNeverBlock(t *testing.T) {
	p := &prompts{ui: newLineUI(strings.NewReader(""), &bytes.Buffer{}), out: &bytes.Buffer{}}
	ctx := context.Background()

	if ok, err := p.ConfirmOverwrite(ctx, "a.mp3"); err != nil || ok {
		t.Fatalf("expected no overwrite without --yes, got %v (%v)", ok, err)
	}
	if _, err := p.RenameTo(ctx, "a.mp3"); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected rename to suggest --yes, got %v", err)
	}
	choice, err := p.ResolveSimilar(ctx, "a.mp3", []media.SimilarFile{{Path: "/music/b.mp3"}})
	if err != nil || choice != session.SimilarKeepAll {
		t.Fatalf("expected keep-all, got %v (%v)", choice, err)
	}
	if p.ConfirmDuplicate(dedupe.PromptOverwriteDifferent, dedupe.PromptContext{Filename: "a.mp3"}) {
		t.Fatalf("expected duplicate overwrite to be declined")
	}
	if _, err := p.Choose(ctx, "song", []search.Candidate{{Title: "x"}}); err == nil {
		t.Fatalf("expected manual choose to need a terminal")
	}

	p.assumeYes = true
	if ok, _ := p.ConfirmOverwrite(ctx, "a.mp3"); !ok {
		t.Fatalf("expected --yes to allow overwrite")
	}
	if !p.ConfirmDuplicate(dedupe.PromptOverwriteNotLarger, dedupe.PromptContext{Filename: "a.mp3"}) {
		t.Fatalf("expected --yes to confirm duplicate overwrite")
	}
}

func TestPromptsInteractive(t *testing.T) {
	out := &bytes.Buffer{}
	p := &prompts{
		ui:          newLineUI(strings.NewReader("n\nnew.mp3\n1\ny\n2\n"), out),
		out:         out,
		interactive: true,
	}
	ctx := context.Background()

	if ok, _ := p.ConfirmOverwrite(ctx, "a.mp3"); ok {
		t.Fatalf("expected overwrite declined")
	}
	if name, _ := p.RenameTo(ctx, "a.mp3"); name != "new.mp3" {
		t.Fatalf("unexpected rename %q", name)
	}
	similar := []media.SimilarFile{{Path: "/music/b.mp3", Size: "3.00 MB"}}
	if choice, _ := p.ResolveSimilar(ctx, "a.mp3", similar); choice != session.SimilarKeepNew {
		t.Fatalf("expected keep-new with cleanup, got %v", choice)
	}
	index, err := p.Choose(ctx, "song", []search.Candidate{{Title: "one", DurationSeconds: 200}, {Title: "two", ViewCount: 1500}})
	if err != nil || index != 2 {
		t.Fatalf("expected pick 2, got %d (%v)", index, err)
	}
	if !strings.Contains(out.String(), "1.5K") || !strings.Contains(out.String(), "b.mp3") {
		t.Fatalf("expected rendered tables, got:\n%s", out.String())
	}
}
