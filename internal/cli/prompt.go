package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jaa/ytmp3/internal/dedupe"
	"github.com/jaa/ytmp3/internal/media"
	"github.com/jaa/ytmp3/internal/search"
	"github.com/jaa/ytmp3/internal/session"
)

// UI is every question the CLI can ask. Select returns a 0-based index,
// or -1 when the user backs out.
type UI interface {
	Confirm(message string, def bool) (bool, error)
	Input(message string, def string) (string, error)
	Select(message string, options []string) (int, error)
	// Lines collects entries until an empty line.
	Lines(message string) ([]string, error)
}

func newUI(app *AppContext) UI {
	in, inOK := app.IO.In.(*os.File)
	out, outOK := app.IO.Out.(*os.File)
	if app.interactive() && inOK && outOK {
		return &surveyUI{in: in, out: out, errOut: app.IO.ErrOut}
	}
	return newLineUI(app.IO.In, app.IO.Out)
}

// lineUI reads answers line by line. It serves pipes and tests.
type lineUI struct {
	reader *bufio.Reader
	out    io.Writer
}

func newLineUI(in io.Reader, out io.Writer) *lineUI {
	return &lineUI{reader: bufio.NewReader(in), out: out}
}

func (u *lineUI) readLine() (string, error) {
	line, err := u.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (u *lineUI) Confirm(message string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(u.out, "%s %s: ", message, hint)
	line, err := u.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (u *lineUI) Input(message string, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(u.out, "%s [%s]: ", message, def)
	} else {
		fmt.Fprintf(u.out, "%s: ", message)
	}
	line, err := u.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (u *lineUI) Select(message string, options []string) (int, error) {
	fmt.Fprintln(u.out, message)
	for i, option := range options {
		fmt.Fprintf(u.out, "  %d. %s\n", i+1, option)
	}
	fmt.Fprint(u.out, "Choice (0 to cancel): ")
	line, err := u.readLine()
	if err != nil {
		return -1, err
	}
	index, convErr := strconv.Atoi(line)
	if convErr != nil || index < 1 || index > len(options) {
		return -1, nil
	}
	return index - 1, nil
}

func (u *lineUI) Lines(message string) ([]string, error) {
	fmt.Fprintf(u.out, "%s (one per line, empty line to finish):\n", message)
	out := []string{}
	for {
		line, err := u.readLine()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if line == "" {
			return out, nil
		}
		out = append(out, line)
	}
}

// prompts adapts a UI to the callbacks the download pipeline needs.
// Without a terminal it never blocks: overwrites follow --yes, similar
// files are all kept.
type prompts struct {
	ui          UI
	out         io.Writer
	assumeYes   bool
	interactive bool
}

func newPrompts(app *AppContext, ui UI) *prompts {
	return &prompts{ui: ui, out: app.IO.Out, assumeYes: app.Opts.AssumeYes, interactive: app.interactive()}
}

func (p *prompts) ConfirmOverwrite(ctx context.Context, path string) (bool, error) {
	if p.assumeYes || !p.interactive {
		return p.assumeYes, nil
	}
	return p.ui.Confirm(fmt.Sprintf("%s already exists. Overwrite it?", path), false)
}

func (p *prompts) RenameTo(ctx context.Context, taken string) (string, error) {
	if !p.interactive {
		return "", fmt.Errorf("%s already exists; rerun with --yes to overwrite or choose another --name", taken)
	}
	return p.ui.Input(fmt.Sprintf("%s is taken. New file name (empty to cancel)", taken), "")
}

func (p *prompts) ResolveSimilar(ctx context.Context, filename string, similar []media.SimilarFile) (session.SimilarChoice, error) {
	if !p.interactive {
		return session.SimilarKeepAll, nil
	}
	renderSimilar(p.out, similar)
	index, err := p.ui.Select(fmt.Sprintf("%s looks like the files above. What now?", filename), []string{
		"Keep the new file",
		"Delete the new file",
		"Keep everything",
	})
	if err != nil {
		return session.SimilarKeepAll, err
	}
	switch index {
	case 0:
		drop, err := p.ui.Confirm("Delete the older similar files?", false)
		if err != nil || !drop {
			return session.SimilarKeepAll, err
		}
		return session.SimilarKeepNew, nil
	case 1:
		return session.SimilarDeleteNew, nil
	default:
		return session.SimilarKeepAll, nil
	}
}

// ConfirmDuplicate answers the duplicate resolver's overwrite questions.
func (p *prompts) ConfirmDuplicate(kind dedupe.PromptKind, pc dedupe.PromptContext) bool {
	if p.assumeYes || !p.interactive {
		return p.assumeYes
	}
	renderDuplicate(p.out, pc)
	message := fmt.Sprintf("%s is already logged with the same title and duration and is not smaller. Overwrite it?", pc.Filename)
	if kind == dedupe.PromptOverwriteDifferent {
		message = fmt.Sprintf("%s is already logged for a different song. Overwrite it? (no keeps both versions)", pc.Filename)
	}
	ok, err := p.ui.Confirm(message, false)
	return err == nil && ok
}

// Choose shows ranked candidates and asks for a 1-based pick.
func (p *prompts) Choose(ctx context.Context, query string, candidates []search.Candidate) (int, error) {
	if !p.interactive {
		return 0, fmt.Errorf("manual selection for %q needs an interactive terminal", query)
	}
	fmt.Fprintf(p.out, "Results for %q:\n", query)
	renderCandidates(p.out, candidates)
	answer, err := p.ui.Input(fmt.Sprintf("Pick 1-%d (0 to cancel)", len(candidates)), "")
	if err != nil {
		return 0, err
	}
	index, convErr := strconv.Atoi(strings.TrimSpace(answer))
	if convErr != nil {
		return 0, nil
	}
	return index, nil
}
