package rendering

import (
	"strings"
	"unicode"
)

// Layout describes the page geometry in PostScript points.
type Layout struct {
	PageWidth    float64
	PageHeight   float64
	Margin       float64
	ContentWidth float64
	FontSize     float64
	LineHeight   float64 // multiple of FontSize
}

// A4 is the CV export layout: A4 portrait, 40pt margins, Helvetica 11.
var A4 = Layout{
	PageWidth:    595.28,
	PageHeight:   841.89,
	Margin:       40,
	ContentWidth: 515,
	FontSize:     11,
	LineHeight:   1.15,
}

// LinesPerPage returns how many text lines fit between the top and bottom margins.
func (l Layout) LinesPerPage() int {
	usable := l.PageHeight - 2*l.Margin
	n := int(usable / (l.FontSize * l.LineHeight))
	if n < 1 {
		return 1
	}
	return n
}

// Helvetica advance widths in thousandths of an em for the characters that
// differ noticeably from the default.
var helveticaWidths = map[rune]int{
	' ': 278, '!': 278, '\'': 191, '"': 355, '(': 333, ')': 333, ',': 278,
	'-': 333, '.': 278, '/': 278, ':': 278, ';': 278, '|': 260, '`': 333,
	'f': 278, 'i': 222, 'j': 222, 'l': 222, 'r': 333, 't': 278, 'm': 833,
	'w': 722, 'c': 500, 'k': 500, 's': 500, 'v': 500, 'x': 500, 'y': 500, 'z': 500,
	'I': 278, 'J': 500, 'M': 833, 'W': 944,
	'C': 722, 'D': 722, 'G': 778, 'H': 722, 'N': 722, 'O': 778, 'Q': 778, 'R': 722, 'U': 722,
	'F': 611, 'L': 556, 'T': 611, 'Z': 611,
}

func runeWidth(r rune) int {
	if w, ok := helveticaWidths[r]; ok {
		return w
	}
	if unicode.IsUpper(r) {
		return 667
	}
	return 556
}

// TextWidth returns the rendered width of s in points at the given font size.
func TextWidth(s string, fontSize float64) float64 {
	total := 0
	for _, r := range s {
		total += runeWidth(r)
	}
	return float64(total) * fontSize / 1000
}

// WrapText splits text into lines no wider than maxWidth points. Explicit
// newlines are preserved and words longer than a line are broken by character.
func WrapText(text string, maxWidth, fontSize float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(paragraph, maxWidth, fontSize)...)
	}
	return lines
}

func wrapParagraph(paragraph string, maxWidth, fontSize float64) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if TextWidth(candidate, fontSize) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		for TextWidth(word, fontSize) > maxWidth {
			head, tail := splitAtWidth(word, maxWidth, fontSize)
			lines = append(lines, head)
			word = tail
		}
		current = word
	}
	return append(lines, current)
}

// splitAtWidth returns the longest prefix of word that fits and the remainder.
// At least one rune is always consumed.
func splitAtWidth(word string, maxWidth, fontSize float64) (string, string) {
	runes := []rune(word)
	total := 0
	for i, r := range runes {
		total += runeWidth(r)
		if float64(total)*fontSize/1000 > maxWidth {
			if i == 0 {
				i = 1
			}
			return string(runes[:i]), string(runes[i:])
		}
	}
	return word, ""
}

// Paginate groups lines into pages of at most perPage lines.
func Paginate(lines []string, perPage int) [][]string {
	if perPage < 1 {
		perPage = 1
	}
	if len(lines) == 0 {
		return [][]string{{}}
	}
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}
