package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/campaign"
	"github.com/foxzi/inkwell/internal/validator"
)

// Context is everything the model needs to write one email
type Context struct {
	CampaignName string
	Objective    string
	KeyMessages  []string
	CTA          string
	CTAURL       string
	Urgency      string
	EmailType    asset.EmailType

	AudienceName string
	Demographics string
	PainPoints   []string
	Motivators   []string
	Tone         string
	Instructions string

	BrandName      string
	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
	Voice          string
	CoreMessage    string
	LogoURL        string
	WebsiteURL     string
	Address        string
	UnsubscribeURL string

	Strategy asset.Strategy
}

// NewContext collects the generation context for one audience and strategy
func NewContext(c *campaign.Campaign, b *campaign.Brand, a *campaign.Audience, s asset.Strategy) Context {
	return Context{
		CampaignName: c.Name,
		Objective:    c.Objective,
		KeyMessages:  c.KeyMessages,
		CTA:          c.CTA,
		CTAURL:       c.CTAURL,
		Urgency:      c.Urgency,
		EmailType:    c.EmailType,

		AudienceName: a.Name,
		Demographics: a.Demographics,
		PainPoints:   a.PainPoints,
		Motivators:   a.Motivators,
		Tone:         a.Tone,
		Instructions: a.Instructions,

		BrandName:      b.Name,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		AccentColor:    b.AccentColor,
		Voice:          b.Voice,
		CoreMessage:    b.CoreMessage,
		LogoURL:        b.LogoURL,
		WebsiteURL:     b.WebsiteURL,
		Address:        b.Address,
		UnsubscribeURL: b.UnsubscribeURL,

		Strategy: s,
	}
}

var strategyBriefs = map[asset.Strategy]string{
	asset.StrategyConversion: "Drive an immediate click. Lead with the offer, keep copy tight and make the CTA impossible to miss.",
	asset.StrategyAwareness:  "Tell the brand story. Educate the reader about the value before asking for anything.",
	asset.StrategyUrgency:    "Stress the deadline or limited availability without sounding alarmist.",
	asset.StrategyEmotional:  "Connect with the reader's motivations and paint the outcome they want.",
}

// BuildPrompt renders the generation prompt
func BuildPrompt(gc Context) string {
	var b strings.Builder

	b.WriteString("Write one complete marketing email as a single HTML document.\n\n")

	b.WriteString("CAMPAIGN\n")
	line(&b, "Name", gc.CampaignName)
	line(&b, "Objective", gc.Objective)
	list(&b, "Key messages", gc.KeyMessages)
	line(&b, "Call to action", gc.CTA)
	line(&b, "CTA link", gc.CTAURL)
	line(&b, "Urgency", gc.Urgency)
	line(&b, "Email type", string(gc.EmailType))

	b.WriteString("\nAUDIENCE\n")
	line(&b, "Segment", gc.AudienceName)
	line(&b, "Demographics", gc.Demographics)
	list(&b, "Pain points", gc.PainPoints)
	list(&b, "Motivators", gc.Motivators)
	line(&b, "Tone", gc.Tone)

	b.WriteString("\nBRAND\n")
	line(&b, "Name", gc.BrandName)
	line(&b, "Voice", gc.Voice)
	line(&b, "Core message", gc.CoreMessage)
	line(&b, "Primary color", gc.PrimaryColor)
	line(&b, "Secondary color", gc.SecondaryColor)
	line(&b, "Accent color", gc.AccentColor)
	line(&b, "Logo URL", gc.LogoURL)
	line(&b, "Website", gc.WebsiteURL)
	line(&b, "Postal address", gc.Address)
	line(&b, "Unsubscribe URL", gc.UnsubscribeURL)

	fmt.Fprintf(&b, "\nSTRATEGY: %s\n%s\n", gc.Strategy, strategyBriefs[gc.Strategy])

	if gc.Instructions != "" {
		fmt.Fprintf(&b, "\nSEGMENT INSTRUCTIONS\n%s\n", gc.Instructions)
	}

	fmt.Fprintf(&b, `
REQUIREMENTS
- Start with <!DOCTYPE html>; include charset, viewport and format-detection meta tags.
- Layout with nested tables (role="presentation", cellpadding="0", cellspacing="0", border="0"), max width %dpx.
- Inline styles only. No flexbox, no grid, no external stylesheets.
- Include Outlook conditional comments, exactly one <h1>, alt text on every image.
- Add a hidden preheader element (display:none) right after <body>.
- Body paragraphs are <p> elements with an inline margin style.
- The CTA is an <a class="cta-button"> inside a table cell with a bgcolor.
- Footer with the postal address and an unsubscribe link.
- Put these comments right after <head>, one per line:
  <!-- SUBJECT: subject line, max %d characters -->
  <!-- PREHEADER: preheader, max %d characters -->
  <!-- HEADLINE: headline, max %d characters -->
  <!-- CTA: button text, max %d characters -->
Return only the HTML, without markdown fences or commentary.
`, validator.MaxWidth, asset.MaxSubjectLine, asset.MaxPreheader, asset.MaxHeadline, asset.MaxCTAText)

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func list(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, v := range values {
		fmt.Fprintf(b, "- %s\n", v)
	}
}

var (
	reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")
	reHTML  = regexp.MustCompile(`(?i)<html|<table`)
)

// StripFences removes a markdown code fence around the document
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := reFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// LooksLikeHTML reports whether model output is an HTML email
func LooksLikeHTML(text string) bool {
	return reHTML.MatchString(text)
}
