// Package markdown renders the small markdown dialect used in document
// summaries: headers, bullet and numbered lists, bold, italics, links,
// inline code and fenced code blocks. Everything else is plain text.
//
// Output is HTML-safe: all text is escaped before markup is applied, and
// links are only emitted for http, https, mailto and relative targets.
package markdown

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	fenceRe      = regexp.MustCompile("(?s)```(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	headerRe     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe     = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	numberedRe   = regexp.MustCompile(`^\s*\d+\.\s+(.*)$`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emRe         = regexp.MustCompile(`\*(.+?)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	placeRe      = regexp.MustCompile(`\x00([BI])(\d+)\x00`)
)

// Placeholders survive escaping and the line pass untouched.
func blockToken(i int) string  { return "\x00B" + strconv.Itoa(i) + "\x00" }
func inlineToken(i int) string { return "\x00I" + strconv.Itoa(i) + "\x00" }

type listKind int

const (
	noList listKind = iota
	bulletList
	numberedList
)

// Render converts text to an HTML fragment, one block element per line.
func Render(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var blocks, inlines []string
	text = fenceRe.ReplaceAllStringFunc(text, func(m string) string {
		code := fenceRe.FindStringSubmatch(m)[1]
		blocks = append(blocks, html.EscapeString(strings.TrimSpace(code)))
		return blockToken(len(blocks) - 1)
	})
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		inlines = append(inlines, html.EscapeString(inlineCodeRe.FindStringSubmatch(m)[1]))
		return inlineToken(len(inlines) - 1)
	})

	r := renderer{}
	for _, line := range strings.Split(text, "\n") {
		r.line(line)
	}
	r.closeList()

	out := strings.Join(r.out, "\n")
	return placeRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := placeRe.FindStringSubmatch(m)
		i, _ := strconv.Atoi(sub[2])
		if sub[1] == "B" && i < len(blocks) {
			return "<pre><code>" + blocks[i] + "</code></pre>"
		}
		if sub[1] == "I" && i < len(inlines) {
			return "<code>" + inlines[i] + "</code>"
		}
		return ""
	})
}

type renderer struct {
	out   []string
	kind  listKind
	items []string
}

func (r *renderer) line(line string) {
	if m := headerRe.FindStringSubmatch(line); m != nil {
		r.closeList()
		level := len(m[1])
		r.emit(fmt.Sprintf("<h%d>%s</h%d>", level, inline(m[2]), level))
		return
	}
	if m := bulletRe.FindStringSubmatch(line); m != nil {
		r.item(bulletList, m[1])
		return
	}
	if m := numberedRe.FindStringSubmatch(line); m != nil {
		r.item(numberedList, m[1])
		return
	}

	r.closeList()
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		// Runs of blank lines collapse into one break.
		if n := len(r.out); n == 0 || r.out[n-1] != "<br>" {
			r.emit("<br>")
		}
	case isBlockToken(trimmed):
		r.emit(trimmed)
	default:
		r.emit("<p>" + inline(line) + "</p>")
	}
}

func (r *renderer) item(kind listKind, text string) {
	if r.kind != kind {
		r.closeList()
		r.kind = kind
	}
	r.items = append(r.items, "<li>"+inline(text)+"</li>")
}

func (r *renderer) closeList() {
	if r.kind == noList {
		return
	}
	tag := "ul"
	if r.kind == numberedList {
		tag = "ol"
	}
	r.emit("<" + tag + ">" + strings.Join(r.items, "") + "</" + tag + ">")
	r.kind = noList
	r.items = nil
}

func (r *renderer) emit(s string) {
	r.out = append(r.out, s)
}

func isBlockToken(s string) bool {
	m := placeRe.FindStringSubmatch(s)
	return m != nil && m[1] == "B" && m[0] == s
}

// inline escapes s and applies links, bold and italics.
func inline(s string) string {
	s = html.EscapeString(s)
	s = linkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		label, target := sub[1], sub[2]
		if !safeURL(html.UnescapeString(target)) {
			return label
		}
		return `<a href="` + target + `" rel="noopener noreferrer">` + label + `</a>`
	})
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = emRe.ReplaceAllString(s, "<em>$1</em>")
	return s
}

func safeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}
