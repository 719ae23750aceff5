package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/jaa/ytmp3/internal/engine"
)

// surveyUI drives arrow-key prompts on a real terminal.
type surveyUI struct {
	in     *os.File
	out    *os.File
	errOut io.Writer
}

func (u *surveyUI) ask(prompt survey.Prompt, response any) error {
	err := survey.AskOne(prompt, response, survey.WithStdio(u.in, u.out, u.errOut))
	if errors.Is(err, terminal.InterruptErr) {
		return engine.ErrInterrupted
	}
	return err
}

func (u *surveyUI) Confirm(message string, def bool) (bool, error) {
	answer := def
	err := u.ask(&survey.Confirm{Message: message, Default: def}, &answer)
	return answer, err
}

func (u *surveyUI) Input(message string, def string) (string, error) {
	answer := ""
	if err := u.ask(&survey.Input{Message: message, Default: def}, &answer); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (u *surveyUI) Select(message string, options []string) (int, error) {
	choices := append(append([]string{}, options...), "Cancel")
	index := 0
	if err := u.ask(&survey.Select{Message: message, Options: choices, PageSize: 10}, &index); err != nil {
		return -1, err
	}
	if index >= len(options) {
		return -1, nil
	}
	return index, nil
}

func (u *surveyUI) Lines(message string) ([]string, error) {
	text := ""
	if err := u.ask(&survey.Multiline{Message: message + " (one per line)"}, &text); err != nil {
		return nil, err
	}
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
