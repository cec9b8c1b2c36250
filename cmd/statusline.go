package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// formatStatus applies the output template. Templates see .Track, .Artist,
// .Album, .Duration and .Position.
func formatStatus(data any, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to exactly width display columns,
// marking truncation with an ellipsis. Non-positive widths leave text as is.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	if runewidth.StringWidth(text) > width {
		if width <= runewidth.StringWidth(ellipsis) {
			return runewidth.Truncate(ellipsis, width, "")
		}
		text = runewidth.Truncate(text, width-runewidth.StringWidth(ellipsis), "") + ellipsis
	}

	return runewidth.FillRight(text, width)
}

// marqueeText scrolls text that does not fit in width. The window position
// is derived from now, so repeated invocations (such as a tmux status line
// refresh) animate without keeping state. speed is in characters per second.
func marqueeText(text string, width, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}

	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	loop := []rune(text + separator)
	offset := int((now.Unix() * int64(speed)) % int64(len(loop)))

	var b strings.Builder
	cols := 0
	for i := 0; ; i++ {
		r := loop[(offset+i)%len(loop)]
		rw := runewidth.RuneWidth(r)
		if cols+rw > width {
			break
		}
		b.WriteRune(r)
		cols += rw
	}

	return runewidth.FillRight(b.String(), width)
}
