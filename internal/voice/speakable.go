package voice

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	markdownEmphasis = regexp.MustCompile(`(\*\*|__|\*|` + "`" + `)`)
	markdownPrefix   = regexp.MustCompile(`^\s*(#{1,6}\s+|[-*•]\s+|\d+[.)]\s+)`)
	markdownLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	spaceRun         = regexp.MustCompile(`[ \t]+`)
)

// Speakable strips HTML and markdown decoration from a chat reply so the
// synthesizer reads only words. Line structure is kept.
func Speakable(reply string) string {
	text := reply
	if strings.ContainsAny(reply, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(reply)); err == nil {
			doc.Find("br").ReplaceWithHtml("\n")
			doc.Find("p, li, div, h1, h2, h3, h4, tr").Each(func(_ int, s *goquery.Selection) {
				s.AppendHtml("\n")
			})
			doc.Find("script, style").Remove()
			text = doc.Text()
		}
	}

	text = markdownLink.ReplaceAllString(text, "$1")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = markdownPrefix.ReplaceAllString(line, "")
		line = markdownEmphasis.ReplaceAllString(line, "")
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
