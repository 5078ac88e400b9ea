package transform

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/foxzi/inkwell/internal/asset"
)

func TestCSSInliner_Inline(t *testing.T) {
	doc := `<!DOCTYPE html><html><head><style>p { color: red; }</style></head><body><p>Hi</p></body></html>`

	out, err := CSSInliner{}.Inline(doc)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	if !regexp.MustCompile(`<p style="[^"]*color:\s*red`).MatchString(out) {
		t.Errorf("Inline() did not inline the rule: %s", out)
	}
}

func TestPlainText_NoAngleBrackets(t *testing.T) {
	conv := NewPlainText()

	inputs := []string{
		"<p>Hello</p>",
		"<p>Spring &lt;sale&gt; &amp; more</p>",
		"<title>x</title><script>if (a < b) {}</script><p>a > b</p>",
		"<!--[if mso]><table><tr><td><![endif]--><p>Body</p>",
		"plain < text > here",
		"<div><<b>>nested<</b>></div>",
		"",
	}

	for _, in := range inputs {
		out := conv.ToText(in)
		if strings.ContainsAny(out, "<>") {
			t.Errorf("ToText(%q) = %q contains angle brackets", in, out)
		}
	}
}

func TestPlainText_Structure(t *testing.T) {
	conv := NewPlainText()

	doc := `<html><head><title>Subject</title><style>p{color:red}</style></head><body>
<h1>Title</h1>
<p style="margin:0">One &amp; only</p>
<p>Two<br>Three</p>
<a href="https://shop.test/">Buy</a>
<a href="#">Anchor</a>
</body></html>`

	want := "Title\n\nOne & only\n\nTwo\nThree\n\nBuy (https://shop.test/)\nAnchor"
	if got := conv.ToText(doc); got != want {
		t.Errorf("ToText() = %q, want %q", got, want)
	}
}

func TestLiquid(t *testing.T) {
	c := asset.Content{
		SubjectLine: "Spring <sale>",
		Preheader:   "Up to 20% off",
		Headline:    "Fresh & new",
		BodyCopy:    "First paragraph.\n\nSecond paragraph\nwith a break.",
		CTAText:     "Shop",
	}
	doc := "<html><head><title>Spring &lt;sale&gt;</title></head><body>" +
		"<div style=\"display:none\">Up to 20% off&zwnj;&nbsp;\u200c </div>" +
		"<h1>\n  Fresh &amp; new\n</h1>" +
		"<p style=\"margin:0\">First paragraph.</p>" +
		"<p style=\"margin:0\">Second paragraph<br/>with a break.</p>" +
		"<p>Shopping is fun</p>" +
		"<a class=\"cta\" href=\"#\">Shop</a>" +
		"</body></html>"

	out := Liquid(doc, c)

	for _, want := range []string{
		"<title>{{ subject_line }}</title>",
		">{{ preheader }}&zwnj;&nbsp;\u200c </div>",
		"<h1>\n  {{ headline }}\n</h1>",
		">{{ body_copy_1 }}</p>",
		">{{ body_copy_2 }}</p>",
		">{{ cta_text }}</a>",
		"<p>Shopping is fun</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Liquid() missing %q in\n%s", want, out)
		}
	}
}

func TestLiquid_WholeBody(t *testing.T) {
	c := asset.Content{BodyCopy: "Just one block"}
	out := Liquid(`<td>Just one block</td>`, c)
	if out != `<td>{{ body_copy }}</td>` {
		t.Errorf("Liquid() = %q", out)
	}
}

func TestLiquidVariables(t *testing.T) {
	vars := LiquidVariables(asset.Content{BodyCopy: "a\n\nb", SubjectLine: "s"})
	if vars[VarSubjectLine] != "s" || vars["body_copy_1"] != "a" || vars["body_copy_2"] != "b" {
		t.Errorf("LiquidVariables() = %v", vars)
	}
}

type fakeInliner struct {
	out string
	err error
}

func (f fakeInliner) Inline(string) (string, error) { return f.out, f.err }

func TestPipeline_Derive(t *testing.T) {
	c := asset.Content{Headline: "Hello"}
	doc := `<h1>Hello</h1>`

	p := NewPipeline(fakeInliner{out: `<h1 style="x">Hello</h1>`}, NewPlainText(), nil)
	art := p.Derive(doc, c)
	if art.InlinedHTML != `<h1 style="x">Hello</h1>` {
		t.Errorf("InlinedHTML = %q", art.InlinedHTML)
	}
	if art.PlainText != "Hello" {
		t.Errorf("PlainText = %q", art.PlainText)
	}
	if art.LiquidHTML != `<h1 style="x">{{ headline }}</h1>` {
		t.Errorf("LiquidHTML = %q", art.LiquidHTML)
	}

	failing := NewPipeline(fakeInliner{err: errors.New("bad css")}, NewPlainText(), nil)
	if art := failing.Derive(doc, c); art.InlinedHTML != doc {
		t.Errorf("failed inlining should keep the original html, got %q", art.InlinedHTML)
	}

	var a asset.Asset
	art.Apply(&a)
	if a.LiquidHTML != art.LiquidHTML || a.PlainText != art.PlainText {
		t.Error("Apply() did not copy artifacts")
	}
}
