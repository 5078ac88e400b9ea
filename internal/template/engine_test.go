package template

import (
	"strings"
	"testing"
	"time"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/campaign"
	"github.com/foxzi/inkwell/internal/validator"
)

var testContent = asset.Content{
	SubjectLine: "Spring <sale>",
	Preheader:   "Up to 20% off",
	Headline:    "Fresh & new",
	BodyCopy:    "First paragraph.\n\nSecond paragraph\nwith a break.",
	CTAText:     "Shop now",
}

func TestEngine_RenderCatalogIsValid(t *testing.T) {
	engine := NewEngine()
	brand := &campaign.Brand{Name: "Acme", PrimaryColor: "#ffcc00", LogoURL: "https://acme.test/logo.png"}
	c := &campaign.Campaign{CTAURL: "https://acme.test/shop", KeyMessages: []string{"Free shipping", "Easy returns", "24/7 support"}}

	for _, tmpl := range engine.Templates() {
		t.Run(tmpl.ID, func(t *testing.T) {
			out := engine.Render(tmpl.ID, testContent, brand, nil, c)

			r := validator.Validate(out)
			if !r.Valid {
				t.Errorf("rendered template is invalid: %v", r.Errors)
			}
			if len(r.Warnings) != 0 {
				t.Errorf("rendered template has warnings: %v", r.Warnings)
			}
			if strings.Contains(out, "{{") {
				t.Error("rendered template contains unreplaced tokens")
			}
		})
	}
}

func TestEngine_RenderEscapesValues(t *testing.T) {
	engine := NewEngine()
	out := engine.Render(Minimal, testContent, &campaign.Brand{Name: "Acme"}, nil, nil)

	if !strings.Contains(out, "<title>Spring &lt;sale&gt;</title>") {
		t.Error("subject line not escaped in title")
	}
	if !strings.Contains(out, "Fresh &amp; new</h1>") {
		t.Error("headline not escaped")
	}
}

func TestEngine_UnknownTemplateFallsBack(t *testing.T) {
	engine := NewEngine()
	brand := &campaign.Brand{Name: "Acme"}

	got := engine.Render("does-not-exist", testContent, brand, nil, nil)
	want := engine.Render(Minimal, testContent, brand, nil, nil)
	if got != want {
		t.Error("unknown template id should render the minimal template")
	}

	tests := []struct {
		id   string
		want string
	}{
		{Newsletter, Newsletter},
		{"does-not-exist", Minimal},
		{"", Minimal},
	}
	for _, tt := range tests {
		if got := engine.Resolve(tt.id); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestEngine_LogoBlock(t *testing.T) {
	engine := NewEngine()

	without := engine.Render(Minimal, testContent, &campaign.Brand{Name: "Acme"}, nil, nil)
	if strings.Contains(without, "<img") || strings.Contains(without, "LOGO_START") {
		t.Error("logo block should be removed when no logo URL is set")
	}

	with := engine.Render(Minimal, testContent, &campaign.Brand{Name: "Acme", LogoURL: "https://x.test/l.png"}, nil, nil)
	if !strings.Contains(with, `src="https://x.test/l.png"`) {
		t.Error("logo should be rendered when a logo URL is set")
	}
}

func TestEngine_Highlights(t *testing.T) {
	engine := NewEngine()

	out := engine.Render(ProductGrid, testContent, nil, nil, &campaign.Campaign{KeyMessages: []string{"One", "Two", "Three"}})
	if strings.Count(out, "<tr><td width=\"50%\"") != 2 {
		t.Error("three highlights should render as two grid rows")
	}

	empty := engine.Render(ProductGrid, testContent, nil, nil, nil)
	if strings.Contains(empty, "HIGHLIGHTS") {
		t.Error("highlights block should be removed without key messages")
	}
}

func TestEngine_Year(t *testing.T) {
	engine := NewEngine()
	engine.now = func() time.Time { return time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC) }

	out := engine.Render(Minimal, testContent, &campaign.Brand{Name: "Acme"}, nil, nil)
	if !strings.Contains(out, "&copy; 2031 Acme") {
		t.Error("footer should contain the current year")
	}
}

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"single", "One", 1},
		{"two", "One\n\nTwo", 2},
		{"blank line with spaces", "One\n   \nTwo\n\n\n\nThree", 3},
		{"crlf", "One\r\n\r\nTwo", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Paragraphs(tt.in)
			if got := strings.Count(out, "<p style="); got != tt.want {
				t.Errorf("Paragraphs(%q) has %d paragraphs, want %d", tt.in, got, tt.want)
			}
		})
	}

	if out := Paragraphs("a\nb <c>"); out != `<p style="`+ParagraphStyle+`">a<br>b &lt;c&gt;</p>` {
		t.Errorf("Paragraphs() = %q", out)
	}
}

func TestContrastColor(t *testing.T) {
	tests := []struct {
		color string
		want  string
	}{
		{"#ffffff", "#000000"},
		{"#000000", "#FFFFFF"},
		{"#ffcc00", "#000000"},
		{"#007bff", "#FFFFFF"},
		{"#fff", "#000000"},
		{"not-a-color", "#FFFFFF"},
		{"", "#FFFFFF"},
	}

	for _, tt := range tests {
		if got := ContrastColor(tt.color); got != tt.want {
			t.Errorf("ContrastColor(%q) = %q, want %q", tt.color, got, tt.want)
		}
	}
}
