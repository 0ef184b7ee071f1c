package ticket

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Width is the character width of a 58mm thermal roll.
const Width = 32

type Line struct {
	Quantity int
	Name     string
	Amount   string
}

type Total struct {
	Label  string
	Amount string
}

// Ticket is a printer-agnostic receipt.
type Ticket struct {
	Title  string
	Header []string
	Lines  []Line
	Totals []Total
	Footer []string
}

func (t Ticket) Render() string {
	var b strings.Builder
	rule := strings.Repeat("-", Width)

	b.WriteString(center(t.Title))
	b.WriteByte('\n')
	for _, h := range t.Header {
		b.WriteString(truncate(h, Width))
		b.WriteByte('\n')
	}
	b.WriteString(rule)
	b.WriteByte('\n')

	for _, l := range t.Lines {
		left := truncate(fmt.Sprintf("%d x %s", l.Quantity, l.Name), Width-width(l.Amount)-1)
		b.WriteString(pad(left, l.Amount))
		b.WriteByte('\n')
	}
	b.WriteString(rule)
	b.WriteByte('\n')

	for _, total := range t.Totals {
		b.WriteString(pad(total.Label, total.Amount))
		b.WriteByte('\n')
	}
	for _, f := range t.Footer {
		b.WriteString(center(f))
		b.WriteByte('\n')
	}
	return b.String()
}

// width counts runes so accented names line up on the roll.
func width(s string) int {
	return utf8.RuneCountInString(s)
}

func pad(left, right string) string {
	gap := Width - width(left) - width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(s string) string {
	s = truncate(s, Width)
	return strings.Repeat(" ", (Width-width(s))/2) + s
}

func truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if width(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
