package template

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/campaign"
)

// DefaultPrimaryColor is used when the brand has no valid primary color
const DefaultPrimaryColor = "#007bff"

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	hexColor       = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// Engine renders catalog templates with captured content
type Engine struct {
	templates map[string]Template
	now       func() time.Time
}

// NewEngine creates a new template engine with the built-in catalog
func NewEngine() *Engine {
	e := &Engine{
		templates: make(map[string]Template, len(catalog)),
		now:       time.Now,
	}
	for _, t := range catalog {
		e.templates[t.ID] = t
	}
	return e
}

// Templates returns the catalog in display order
func (e *Engine) Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// Get returns a template by ID
func (e *Engine) Get(id string) (Template, bool) {
	t, ok := e.templates[id]
	return t, ok
}

// Resolve returns the ID Render uses for templateID
func (e *Engine) Resolve(templateID string) string {
	if _, ok := e.templates[templateID]; ok {
		return templateID
	}
	return Minimal
}

// Render populates a template. Unknown IDs use the minimal template.
// Brand, audience and campaign may be nil.
func (e *Engine) Render(templateID string, content asset.Content, brand *campaign.Brand, audience *campaign.Audience, c *campaign.Campaign) string {
	tmpl := e.templates[e.Resolve(templateID)]

	if brand == nil {
		brand = &campaign.Brand{}
	}
	if c == nil {
		c = &campaign.Campaign{}
	}

	out := tmpl.HTML
	if brand.LogoURL == "" {
		out = removeBlock(out, logoStart, logoEnd)
	}
	highlights := renderHighlights(c.KeyMessages)
	if highlights == "" {
		out = removeBlock(out, highlightsStart, highlightsEnd)
	}

	primary := normalizeColor(brand.PrimaryColor)
	ctaURL := c.CTAURL
	if ctaURL == "" {
		ctaURL = brand.WebsiteURL
	}
	if ctaURL == "" {
		ctaURL = "#"
	}
	unsubscribe := brand.UnsubscribeURL
	if unsubscribe == "" {
		unsubscribe = "#"
	}
	company := brand.Name
	if company == "" && audience != nil {
		company = audience.Name
	}

	r := strings.NewReplacer(
		"{{SUBJECT_LINE}}", html.EscapeString(content.SubjectLine),
		"{{PREHEADER}}", html.EscapeString(content.Preheader),
		"{{HEADLINE}}", html.EscapeString(content.Headline),
		"{{BODY_COPY}}", Paragraphs(content.BodyCopy),
		"{{CTA_TEXT}}", html.EscapeString(content.CTAText),
		"{{CTA_URL}}", html.EscapeString(ctaURL),
		"{{PRIMARY_COLOR}}", primary,
		"{{CTA_TEXT_COLOR}}", ContrastColor(primary),
		"{{COMPANY_NAME}}", html.EscapeString(company),
		"{{COMPANY_ADDRESS}}", html.EscapeString(brand.Address),
		"{{LOGO_URL}}", html.EscapeString(brand.LogoURL),
		"{{WEBSITE_URL}}", html.EscapeString(orHash(brand.WebsiteURL)),
		"{{UNSUBSCRIBE_URL}}", html.EscapeString(unsubscribe),
		"{{HIGHLIGHTS}}", highlights,
		"{{YEAR}}", strconv.Itoa(e.now().Year()),
	)
	return r.Replace(out)
}

// ParagraphStyle is the inline style of rendered body paragraphs
const ParagraphStyle = "margin:0 0 16px 0;font-family:Arial,sans-serif;font-size:16px;line-height:24px;color:#333333;"

// Paragraphs splits body copy on blank lines into escaped paragraph blocks
func Paragraphs(body string) string {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return ""
	}

	var b strings.Builder
	for _, p := range paragraphSplit.Split(body, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		lines := strings.Split(p, "\n")
		for j := range lines {
			lines[j] = html.EscapeString(strings.TrimSpace(lines[j]))
		}
		fmt.Fprintf(&b, `<p style="%s">%s</p>`, ParagraphStyle, strings.Join(lines, "<br>"))
	}
	return b.String()
}

// ContrastColor picks black or white text for a background color
func ContrastColor(hex string) string {
	if Luminance(hex) > 0.5 {
		return "#000000"
	}
	return "#FFFFFF"
}

// Luminance returns the relative luminance of a hex color in [0,1].
// Invalid colors are measured as the default primary color.
func Luminance(hex string) float64 {
	hex = strings.TrimPrefix(normalizeColor(hex), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	rgb, _ := strconv.ParseUint(hex, 16, 32)
	r := float64((rgb >> 16) & 0xff)
	g := float64((rgb >> 8) & 0xff)
	b := float64(rgb & 0xff)
	return (0.299*r + 0.587*g + 0.114*b) / 255
}

func normalizeColor(c string) string {
	c = strings.TrimSpace(c)
	if !hexColor.MatchString(c) {
		return DefaultPrimaryColor
	}
	return c
}

func removeBlock(s, start, end string) string {
	for {
		i := strings.Index(s, start)
		if i < 0 {
			return s
		}
		j := strings.Index(s[i:], end)
		if j < 0 {
			return s
		}
		stop := i + j + len(end)
		if stop < len(s) && s[stop] == '\n' {
			stop++
		}
		s = s[:i] + s[stop:]
	}
}

func renderHighlights(items []string) string {
	var cells []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cells = append(cells, fmt.Sprintf(
				`<td width="50%%" valign="top" style="padding:6px;"><div style="padding:16px;background-color:#f7f7f7;font-family:Arial,sans-serif;font-size:14px;line-height:20px;color:#333333;">%s</div></td>`,
				html.EscapeString(item)))
		}
	}
	if len(cells) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(cells); i += 2 {
		b.WriteString("<tr>")
		b.WriteString(cells[i])
		if i+1 < len(cells) {
			b.WriteString(cells[i+1])
		} else {
			b.WriteString(`<td width="50%" style="padding:6px;">&nbsp;</td>`)
		}
		b.WriteString("</tr>\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func orHash(s string) string {
	if s == "" {
		return "#"
	}
	return s
}
