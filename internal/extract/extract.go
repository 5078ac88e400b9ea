package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/foxzi/inkwell/internal/asset"
)

// Defaults used when a field cannot be found
const (
	DefaultSubjectLine = "Special offer inside"
	DefaultCTAText     = "Learn more"
)

// MaxBodyBlocks is the number of paragraphs collected into the body copy
const MaxBodyBlocks = 5

// Field names reported in Result.Defaulted
const (
	FieldSubjectLine = "subject_line"
	FieldPreheader   = "preheader"
	FieldHeadline    = "headline"
	FieldBodyCopy    = "body_copy"
	FieldCTAText     = "cta_text"
)

// Result is the content recovered from a document
type Result struct {
	Content asset.Content `json:"content"`
	// Confident is true when every field was found in the document.
	Confident bool `json:"confident"`
	// Defaulted lists the fields that fell back to a default or empty value.
	Defaulted []string `json:"defaulted,omitempty"`
}

var (
	reHidden      = regexp.MustCompile(`(?i)display\s*:\s*none`)
	reMargin      = regexp.MustCompile(`(?i)margin`)
	reButtonStyle = regexp.MustCompile(`(?i)background|border-radius`)
	reBoilerplate = regexp.MustCompile(`(?i)©|copyright|unsubscribe|all rights reserved`)
	reSpaces      = regexp.MustCompile(`[ \t\f\v]+`)

	invisible = strings.NewReplacer(
		"\u200c", "",
		"\u200b", "",
		"\u200d", "",
		"\u2060", "",
		"\ufeff", "",
		"\u034f", "",
		"\u00a0", " ",
	)
)

// Marker returns the value of a <!-- NAME: value --> comment
func Marker(doc, name string) (string, bool) {
	re, err := regexp.Compile(`(?is)<!--\s*` + regexp.QuoteMeta(name) + `\s*:\s*(.*?)\s*-->`)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(html.UnescapeString(m[1]))
	return v, v != ""
}

// Extract recovers the structured fields of a generated email.
// Delimited markers win over structural heuristics.
func Extract(doc string) Result {
	var r Result

	// nil on read errors, every field then falls back
	parsed, _ := goquery.NewDocumentFromReader(strings.NewReader(doc))

	c := asset.Content{}

	if v, ok := Marker(doc, "SUBJECT"); ok {
		c.SubjectLine = v
	} else if parsed != nil {
		c.SubjectLine = clean(parsed.Find("title").First().Text())
	}
	if c.SubjectLine == "" {
		c.SubjectLine = DefaultSubjectLine
		r.Defaulted = append(r.Defaulted, FieldSubjectLine)
	}

	if v, ok := Marker(doc, "PREHEADER"); ok {
		c.Preheader = v
	} else if parsed != nil {
		c.Preheader = preheader(parsed)
	}
	if c.Preheader == "" {
		r.Defaulted = append(r.Defaulted, FieldPreheader)
	}

	if v, ok := Marker(doc, "HEADLINE"); ok {
		c.Headline = v
	} else if parsed != nil {
		c.Headline = clean(parsed.Find("h1").First().Text())
	}
	if c.Headline == "" {
		r.Defaulted = append(r.Defaulted, FieldHeadline)
	}

	if parsed != nil {
		c.BodyCopy = bodyCopy(parsed)
	}
	if c.BodyCopy == "" {
		r.Defaulted = append(r.Defaulted, FieldBodyCopy)
	}

	if v, ok := Marker(doc, "CTA"); ok {
		c.CTAText = v
	} else if parsed != nil {
		c.CTAText = ctaText(parsed)
	}
	if c.CTAText == "" {
		c.CTAText = DefaultCTAText
		r.Defaulted = append(r.Defaulted, FieldCTAText)
	}

	r.Content = c.Truncated()
	r.Confident = len(r.Defaulted) == 0
	return r
}

func preheader(doc *goquery.Document) string {
	var text string
	doc.Find("body [style]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		if !reHidden.MatchString(style) {
			return true
		}
		text = clean(s.Text())
		return false
	})
	return text
}

func ctaText(doc *goquery.Document) string {
	if a := doc.Find(`a[class*="cta"]`).First(); a.Length() > 0 {
		if text := clean(a.Text()); text != "" {
			return text
		}
	}

	var last string
	doc.Find("td").Each(func(i int, td *goquery.Selection) {
		if !buttonCell(td) {
			return
		}
		td.Find("a").Each(func(j int, a *goquery.Selection) {
			if text := clean(a.Text()); text != "" {
				last = text
			}
		})
	})
	return last
}

func buttonCell(td *goquery.Selection) bool {
	if _, ok := td.Attr("bgcolor"); ok {
		return true
	}
	style, _ := td.Attr("style")
	return reButtonStyle.MatchString(style)
}

func bodyCopy(doc *goquery.Document) string {
	var blocks []string
	doc.Find("p[style]").EachWithBreak(func(i int, p *goquery.Selection) bool {
		style, _ := p.Attr("style")
		if !reMargin.MatchString(style) {
			return true
		}
		p.Find("br").ReplaceWithHtml("\n")
		text := cleanLines(p.Text())
		if text == "" || reBoilerplate.MatchString(text) {
			return true
		}
		blocks = append(blocks, text)
		return len(blocks) < MaxBodyBlocks
	})
	return strings.Join(blocks, "\n\n")
}

func clean(s string) string {
	s = invisible.Replace(s)
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func cleanLines(s string) string {
	s = invisible.Replace(s)
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(reSpaces.ReplaceAllString(l, " ")); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
