// Package highlight renders fenced code blocks with terminal colors.
package highlight

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter provides syntax highlighting for code blocks
type Highlighter struct {
	enabled   bool
	formatter chroma.Formatter
	style     *chroma.Style
}

// New creates a new Highlighter
func New(enabled bool) *Highlighter {
	return &Highlighter{
		enabled:   enabled,
		formatter: formatters.Get("terminal256"),
		style:     styles.Get("monokai"),
	}
}

// Highlight applies syntax highlighting to a code string
func (h *Highlighter) Highlight(code, language string) string {
	if !h.enabled {
		return code
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return buf.String()
}

var codeBlockRegex = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")

// CodeBlocks finds markdown code blocks in text and replaces them with
// highlighted terminal output.
func (h *Highlighter) CodeBlocks(text string) string {
	if !h.enabled {
		return text
	}

	return codeBlockRegex.ReplaceAllStringFunc(text, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		code := strings.TrimSuffix(parts[2], "\n")
		return h.Highlight(code, parts[1])
	})
}
