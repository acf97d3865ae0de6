// Package cliout renders CLI output in three modes — text, json,
// ndjson — plus colored text-mode status lines and a progress bar.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Mode selects the output rendering contract.
type Mode string

const (
	ModeText   Mode = "text"
	ModeJSON   Mode = "json"
	ModeNDJSON Mode = "ndjson"
)

// ParseMode maps a flag value, including the legacy --json/--agent
// shortcuts, onto a Mode.
func ParseMode(flagValue string, legacyJSON, legacyAgent bool) Mode {
	switch flagValue {
	case "json":
		return ModeJSON
	case "ndjson":
		return ModeNDJSON
	case "text":
		return ModeText
	}
	if legacyAgent {
		return ModeNDJSON
	}
	if legacyJSON {
		return ModeJSON
	}
	return ModeText
}

// Writer renders status, result, and progress output in one of the
// three modes, plus human-facing text-mode status lines with optional
// color.
type Writer struct {
	out      io.Writer
	mode     Mode
	useColor bool
}

// New constructs a Writer. Color is only ever used in text mode, and
// only when out is a terminal.
func New(out io.Writer, mode Mode) *Writer {
	useColor := false
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Writer{out: out, mode: mode, useColor: useColor}
}

// Mode returns the writer's render mode.
func (w *Writer) Mode() Mode { return w.mode }

func (w *Writer) colorize(c *color.Color, s string) string {
	if !w.useColor {
		return s
	}
	return c.Sprint(s)
}

// Status prints a human status line with an icon, in text mode only;
// a no-op in json/ndjson modes, which carry status through Result.
func (w *Writer) Status(icon, msg string) {
	if w.mode != ModeText {
		return
	}
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Success prints a green checkmark status line in text mode.
func (w *Writer) Success(msg string) { w.Status("✓", w.colorize(color.New(color.FgGreen), msg)) }

// Warning prints a yellow warning status line in text mode.
func (w *Writer) Warning(msg string) { w.Status("!", w.colorize(color.New(color.FgYellow), msg)) }

// Error prints a red error status line in text mode.
func (w *Writer) Error(msg string) { w.Status("x", w.colorize(color.New(color.FgRed), msg)) }

// Result renders one terminal result object for a non-streaming
// command (index/reindex/clear/status/info/self-check/config check):
// key-value lines in text mode, a single pretty object in json mode,
// a single ndjson line otherwise. fields must marshal to a JSON
// object; key order for text mode is the sorted key order.
func (w *Writer) Result(fields map[string]any) error {
	switch w.mode {
	case ModeJSON:
		data, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	case ModeNDJSON:
		data, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w.out, string(data))
		return err
	default:
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w.out, "%s: %v\n", k, fields[k]); err != nil {
				return err
			}
		}
		return nil
	}
}

// SearchResultLine is one search hit, rendered per spec §6's ndjson
// result-line contract.
type SearchResultLine struct {
	RelativePath string  `json:"relativePath"`
	StartLine    int     `json:"startLine"`
	EndLine      int     `json:"endLine"`
	Score        float32 `json:"score"`
	Content      string  `json:"content,omitempty"`
}

// SearchRenderer accumulates and streams search results across the
// three modes: ndjson streams each result immediately plus a trailing
// summary line, json accumulates and emits one object at Summary, text
// prints a human line per result immediately and a trailing status
// line at Summary.
type SearchRenderer struct {
	w         *Writer
	collected []SearchResultLine
}

// NewSearchRenderer wraps w for a single search invocation.
func NewSearchRenderer(w *Writer) *SearchRenderer {
	return &SearchRenderer{w: w}
}

// Result handles one search hit as it is produced.
func (s *SearchRenderer) Result(line SearchResultLine) error {
	switch s.w.mode {
	case ModeNDJSON:
		data, err := json.Marshal(struct {
			Type string `json:"type"`
			SearchResultLine
		}{Type: "result", SearchResultLine: line})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.w.out, string(data))
		return err
	case ModeJSON:
		s.collected = append(s.collected, line)
		return nil
	default:
		_, err := fmt.Fprintf(s.w.out, "%s:%d-%d score=%.4f\n", line.RelativePath, line.StartLine, line.EndLine, line.Score)
		return err
	}
}

// Summary closes out the search invocation: spec §6's ndjson contract
// requires the last line be {"type":"summary","status":"ok","count":N}.
func (s *SearchRenderer) Summary(status string, count int) error {
	switch s.w.mode {
	case ModeNDJSON:
		data, err := json.Marshal(struct {
			Type   string `json:"type"`
			Status string `json:"status"`
			Count  int    `json:"count"`
		}{Type: "summary", Status: status, Count: count})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.w.out, string(data))
		return err
	case ModeJSON:
		data, err := json.MarshalIndent(struct {
			Status  string             `json:"status"`
			Count   int                `json:"count"`
			Results []SearchResultLine `json:"results"`
		}{Status: status, Count: count, Results: s.collected}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.w.out, string(data))
		return err
	default:
		_, err := fmt.Fprintf(s.w.out, "status: %s\ncount: %d\n", status, count)
		return err
	}
}
