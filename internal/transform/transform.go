package transform

import (
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aymerick/douceur/inliner"
	"github.com/microcosm-cc/bluemonday"

	"github.com/foxzi/inkwell/internal/asset"
)

// Inliner moves <style> rules into inline style attributes
type Inliner interface {
	Inline(html string) (string, error)
}

// TextConverter renders an HTML document as plain text
type TextConverter interface {
	ToText(html string) string
}

// CSSInliner inlines CSS with douceur
type CSSInliner struct{}

// Inline implements Inliner
func (CSSInliner) Inline(doc string) (string, error) {
	return inliner.Inline(doc)
}

var (
	reBreak     = regexp.MustCompile(`(?i)<br\s*/?>`)
	reBlockEnd  = regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|tr|li|table|ul|ol|blockquote)\s*>`)
	reLink      = regexp.MustCompile(`(?is)<a\b[^>]*?\bhref\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a\s*>`)
	reLineSpace = regexp.MustCompile(`[ \t\f\v]+`)
	reManyLines = regexp.MustCompile(`\n{3,}`)

	textCleanup = strings.NewReplacer(
		"\u200c", "",
		"\u200b", "",
		"\u200d", "",
		"\u2060", "",
		"\ufeff", "",
		"\u034f", "",
		"\u00a0", " ",
		"<", "",
		">", "",
	)
)

// PlainText converts HTML to text with bluemonday. Block elements become
// line breaks and links keep their target in parentheses. The output never
// contains '<' or '>'.
type PlainText struct {
	policy *bluemonday.Policy
}

// NewPlainText creates a converter
func NewPlainText() *PlainText {
	return &PlainText{policy: bluemonday.StripTagsPolicy()}
}

// ToText implements TextConverter
func (p *PlainText) ToText(doc string) string {
	doc = reLink.ReplaceAllStringFunc(doc, func(m string) string {
		sub := reLink.FindStringSubmatch(m)
		href, text := strings.TrimSpace(sub[1]), sub[2]
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "{{") {
			return text
		}
		return text + " (" + href + ")"
	})
	doc = reBreak.ReplaceAllString(doc, "\n")
	doc = reBlockEnd.ReplaceAllString(doc, "$0\n")

	text := html.UnescapeString(p.policy.Sanitize(doc))
	text = textCleanup.Replace(text)

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(reLineSpace.ReplaceAllString(l, " "))
	}
	text = strings.Join(lines, "\n")
	text = reManyLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Artifacts are the documents derived from an asset's HTML
type Artifacts struct {
	InlinedHTML string
	PlainText   string
	LiquidHTML  string
}

// Pipeline computes derived artifacts
type Pipeline struct {
	inliner Inliner
	text    TextConverter
	logger  *slog.Logger
}

// NewPipeline creates a pipeline from the two external transforms
func NewPipeline(in Inliner, text TextConverter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		inliner: in,
		text:    text,
		logger:  logger.With("component", "transform"),
	}
}

// Derive computes inlined HTML, plain text and the Liquid variant.
// When inlining fails the original HTML is used as the inlined document.
func (p *Pipeline) Derive(doc string, c asset.Content) Artifacts {
	inlined, err := p.inliner.Inline(doc)
	if err != nil || strings.TrimSpace(inlined) == "" {
		p.logger.Warn("css inlining failed, using original html", "error", err)
		inlined = doc
	}

	return Artifacts{
		InlinedHTML: inlined,
		PlainText:   p.text.ToText(inlined),
		LiquidHTML:  Liquid(inlined, c),
	}
}

// Apply stores derived artifacts on an asset
func (a Artifacts) Apply(dst *asset.Asset) {
	dst.InlinedHTML = a.InlinedHTML
	dst.PlainText = a.PlainText
	dst.LiquidHTML = a.LiquidHTML
}
