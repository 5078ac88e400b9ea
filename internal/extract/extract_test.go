package extract

import (
	"strings"
	"testing"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/campaign"
	"github.com/foxzi/inkwell/internal/template"
)

func TestExtract_TemplateRoundTrip(t *testing.T) {
	content := asset.Content{
		SubjectLine: "Spring <sale>",
		Preheader:   "Up to 20% off",
		Headline:    "Fresh & new",
		BodyCopy:    "First paragraph.\n\nSecond paragraph\nwith a break.",
		CTAText:     "Shop now",
	}
	doc := template.NewEngine().Render(template.HeroImage, content, &campaign.Brand{Name: "Acme"}, nil, nil)

	r := Extract(doc)
	if r.Content != content {
		t.Errorf("Extract() content = %+v\nwant %+v", r.Content, content)
	}
	if !r.Confident {
		t.Errorf("Extract() not confident, defaulted = %v", r.Defaulted)
	}
}

func TestExtract_Markers(t *testing.T) {
	doc := `<!-- SUBJECT: Marker subject -->
<!-- PREHEADER: Marker preheader -->
<!-- HEADLINE: Marker &amp; headline -->
<!-- CTA: Buy it -->
<html><head><title>Title subject</title></head>
<body><h1>Tag headline</h1><a class="cta">Tag cta</a></body></html>`

	r := Extract(doc)
	want := asset.Content{
		SubjectLine: "Marker subject",
		Preheader:   "Marker preheader",
		Headline:    "Marker & headline",
		CTAText:     "Buy it",
	}
	if r.Content != want {
		t.Errorf("Extract() content = %+v, want %+v", r.Content, want)
	}
}

func TestExtract_Fields(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field func(c asset.Content) string
		want  string
	}{
		{
			name:  "subject from title",
			doc:   `<html><head><title> Hello   there </title></head></html>`,
			field: func(c asset.Content) string { return c.SubjectLine },
			want:  "Hello there",
		},
		{
			name:  "subject default",
			doc:   `<html><body></body></html>`,
			field: func(c asset.Content) string { return c.SubjectLine },
			want:  DefaultSubjectLine,
		},
		{
			name:  "preheader strips entity markers",
			doc:   `<body><div style="color:red">No</div><span style="display: none; max-height:0">Peek&zwnj;&nbsp;&zwnj;&nbsp;</span></body>`,
			field: func(c asset.Content) string { return c.Preheader },
			want:  "Peek",
		},
		{
			name:  "headline first h1",
			doc:   `<body><h1>One</h1><h1>Two</h1></body>`,
			field: func(c asset.Content) string { return c.Headline },
			want:  "One",
		},
		{
			name:  "headline empty",
			doc:   `<body><h2>Sub</h2></body>`,
			field: func(c asset.Content) string { return c.Headline },
			want:  "",
		},
		{
			name:  "cta by class",
			doc:   `<body><a href="#">Other</a><a class="btn cta-primary" href="#">Go</a></body>`,
			field: func(c asset.Content) string { return c.CTAText },
			want:  "Go",
		},
		{
			name: "cta from last anchor in button cell",
			doc: `<body><table><tr>
<td bgcolor="#ff0000"><a href="#">First</a></td>
<td style="border-radius: 4px"><a href="#">Second</a></td>
<td><a href="#">Plain</a></td>
</tr></table></body>`,
			field: func(c asset.Content) string { return c.CTAText },
			want:  "Second",
		},
		{
			name:  "cta default",
			doc:   `<body><a href="#">Plain link</a></body>`,
			field: func(c asset.Content) string { return c.CTAText },
			want:  DefaultCTAText,
		},
		{
			name: "body skips boilerplate and unstyled paragraphs",
			doc: `<body>
<p>No style</p>
<p style="margin:0">One</p>
<p style="color:red">No margin</p>
<p style="margin: 0 0 10px">Two</p>
<p style="margin:0">&copy; 2024 Acme</p>
<p style="margin:0">Click to unsubscribe</p>
<p style="margin:0">Copyright Acme</p>
<p style="margin:0">All Rights Reserved</p>
</body>`,
			field: func(c asset.Content) string { return c.BodyCopy },
			want:  "One\n\nTwo",
		},
		{
			name: "body at most five blocks",
			doc: `<body>` + strings.Repeat(`<p style="margin:0">x</p>`, 7) + `</body>`,
			field: func(c asset.Content) string { return c.BodyCopy },
			want:  "x\n\nx\n\nx\n\nx\n\nx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Extract(tt.doc)
			if got := tt.field(r.Content); got != tt.want {
				t.Errorf("field = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_Defaulted(t *testing.T) {
	r := Extract(`<html><body><p>nothing useful</p></body></html>`)
	if r.Confident {
		t.Error("Extract() should not be confident")
	}
	want := []string{FieldSubjectLine, FieldPreheader, FieldHeadline, FieldBodyCopy, FieldCTAText}
	if strings.Join(r.Defaulted, ",") != strings.Join(want, ",") {
		t.Errorf("Defaulted = %v, want %v", r.Defaulted, want)
	}
}

func TestExtract_Truncates(t *testing.T) {
	long := strings.Repeat("a", 400)
	doc := `<html><head><title>` + long + `</title></head><body><h1>` + long +
		`</h1><a class="cta">` + long + `</a></body></html>`

	c := Extract(doc).Content
	if len(c.SubjectLine) != asset.MaxSubjectLine {
		t.Errorf("subject length = %d", len(c.SubjectLine))
	}
	if len(c.Headline) != asset.MaxHeadline {
		t.Errorf("headline length = %d", len(c.Headline))
	}
	if len(c.CTAText) != asset.MaxCTAText {
		t.Errorf("cta length = %d", len(c.CTAText))
	}
	if err := c.Validate(); err != nil {
		t.Errorf("extracted content fails caps: %v", err)
	}
}

func TestMarker(t *testing.T) {
	doc := "<!--CHANGES:  shorter headline; new CTA \n-->"
	got, ok := Marker(doc, "CHANGES")
	if !ok || got != "shorter headline; new CTA" {
		t.Errorf("Marker() = %q, %v", got, ok)
	}
	if _, ok := Marker(doc, "SUBJECT"); ok {
		t.Error("Marker() found a missing marker")
	}
}
