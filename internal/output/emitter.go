package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

type EventEmitter interface {
	Emit(event Event) error
}

type JSONEmitter struct {
	enc *json.Encoder
	mu  sync.Mutex
}

func NewJSONEmitter(w io.Writer) *JSONEmitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONEmitter{enc: enc}
}

func (e *JSONEmitter) Emit(event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(event)
}

type HumanEmitter struct {
	stdout  io.Writer
	stderr  io.Writer
	quiet   bool
	verbose bool

	errColor  *color.Color
	warnColor *color.Color
	okColor   *color.Color
}

func NewHumanEmitter(stdout, stderr io.Writer, quiet, verbose bool) *HumanEmitter {
	return &HumanEmitter{
		stdout:    stdout,
		stderr:    stderr,
		quiet:     quiet,
		verbose:   verbose,
		errColor:  color.New(color.FgRed, color.Bold),
		warnColor: color.New(color.FgYellow),
		okColor:   color.New(color.FgGreen),
	}
}

// SetColor forces colored output on or off regardless of terminal detection.
func (e *HumanEmitter) SetColor(enabled bool) {
	for _, c := range []*color.Color{e.errColor, e.warnColor, e.okColor} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

func (e *HumanEmitter) Emit(event Event) error {
	line := event.Message
	if line == "" {
		line = string(event.Event)
	}

	switch event.Level {
	case LevelError:
		_, err := e.errColor.Fprintln(e.stderr, "ERROR: "+line)
		return err
	case LevelWarn:
		if e.quiet {
			return nil
		}
		_, err := e.warnColor.Fprintln(e.stderr, "WARN: "+line)
		return err
	default:
		if e.quiet && event.Event != EventBatchFinished {
			return nil
		}
		if !e.verbose && (event.Event == EventItemStarted || event.Event == EventItemWaiting || event.Event == EventBatchStarted) {
			return nil
		}
		if event.Event == EventRecordSaved || event.Event == EventItemFinished {
			_, err := e.okColor.Fprintln(e.stdout, line)
			return err
		}
		_, err := fmt.Fprintln(e.stdout, line)
		return err
	}
}

type MultiEmitter struct {
	emitters []EventEmitter
}

func NewMultiEmitter(emitters ...EventEmitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (e *MultiEmitter) Emit(event Event) error {
	for _, emitter := range e.emitters {
		if err := emitter.Emit(event); err != nil {
			return err
		}
	}
	return nil
}
