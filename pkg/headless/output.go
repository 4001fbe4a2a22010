package headless

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/controllers"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

var (
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	discardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statsStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// Output handles console output for headless mode
type Output struct {
	w         io.Writer
	highlight bool
	formatter chroma.Formatter
}

// NewOutput creates an output handler on stdout with JSON highlighting
func NewOutput() *Output {
	return NewOutputTo(os.Stdout, true)
}

// NewOutputTo writes to w. Highlighting is off when highlight is false so the
// JSON stays machine readable.
func NewOutputTo(w io.Writer, highlight bool) *Output {
	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &Output{w: w, highlight: highlight, formatter: formatter}
}

// Chunk prints streamed assistant text as it arrives
func (o *Output) Chunk(text string) {
	fmt.Fprint(o.w, text)
}

// ToolOutcome prints one line per executed tool call
func (o *Output) ToolOutcome(outcome controllers.ToolOutcome) {
	name := outcome.Call.Function.Name
	switch {
	case outcome.Discarded:
		fmt.Fprintln(o.w, discardStyle.Render(fmt.Sprintf("- %s discarded", name)))
	case outcome.Err != nil:
		fmt.Fprintln(o.w, errorStyle.Render(fmt.Sprintf("x %s: %v", name, outcome.Err)))
	default:
		fmt.Fprintln(o.w, toolStyle.Render(fmt.Sprintf("+ %s: %s", name, outcome.Status)))
	}
}

// Error prints an error message and logs it
func (o *Output) Error(msg string) {
	logger.Error("%s", msg)
	fmt.Fprintln(o.w, errorStyle.Render(msg))
}

// Summary prints the turn statistics
func (o *Output) Summary(res controllers.Result) {
	s := res.Stats
	line := fmt.Sprintf("[%s/%s - frames: %d, dropped: %d, chunks: %d, tools: %d, %s]",
		res.State, res.FinishReason, s.Frames, s.Dropped, s.Chunks, len(res.ToolCalls), s.Duration.Round(time.Millisecond))
	fmt.Fprintln(o.w)
	fmt.Fprintln(o.w, statsStyle.Render(line))
}

// Tokens prints the running token totals
func (o *Output) Tokens(sent, received int) {
	fmt.Fprintln(o.w, statsStyle.Render(fmt.Sprintf("[Tokens - Sent: %d, Received: %d, Total: %d]", sent, received, sent+received)))
}

// JSON prints v indented, highlighted when enabled
func (o *Output) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if !o.highlight {
		_, err = fmt.Fprintln(o.w, string(data))
		return err
	}
	_, err = fmt.Fprintln(o.w, o.highlightJSON(string(data)))
	return err
}

func (o *Output) highlightJSON(content string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	var buf bytes.Buffer
	if err := o.formatter.Format(&buf, style, iterator); err != nil {
		return content
	}
	return strings.TrimRight(buf.String(), "\n")
}
