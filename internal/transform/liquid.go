package transform

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/foxzi/inkwell/internal/asset"
)

// Liquid variable names
const (
	VarSubjectLine = "subject_line"
	VarPreheader   = "preheader"
	VarHeadline    = "headline"
	VarBodyCopy    = "body_copy"
	VarCTAText     = "cta_text"
)

var reBlankLine = regexp.MustCompile(`\n\s*\n`)

// textTail matches the filler email markup puts after preheader text
const textTail = `((?:\s|&zwnj;|&nbsp;|&#\d+;|\x{200c}|\x{00a0})*)`

// Liquid replaces the structured field values in doc with Liquid output
// tags. A value is replaced only where it is the whole text of an element.
// Body copy becomes {{ body_copy }} when it appears as one block, otherwise
// each paragraph becomes {{ body_copy_N }}.
func Liquid(doc string, c asset.Content) string {
	if body := strings.TrimSpace(c.BodyCopy); body != "" {
		var ok bool
		if doc, ok = replaceText(doc, body, VarBodyCopy); !ok {
			for i, p := range Paragraphs(body) {
				doc, _ = replaceText(doc, p, fmt.Sprintf("%s_%d", VarBodyCopy, i+1))
			}
		}
	}

	fields := []struct {
		name  string
		value string
	}{
		{VarSubjectLine, c.SubjectLine},
		{VarPreheader, c.Preheader},
		{VarHeadline, c.Headline},
		{VarCTAText, c.CTAText},
	}
	// Longer values first so a value contained in another is not split
	sort.SliceStable(fields, func(i, j int) bool {
		return len(fields[i].value) > len(fields[j].value)
	})
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			doc, _ = replaceText(doc, v, f.name)
		}
	}

	return doc
}

// LiquidVariables returns the values of the variables Liquid may emit
func LiquidVariables(c asset.Content) map[string]string {
	vars := map[string]string{
		VarSubjectLine: c.SubjectLine,
		VarPreheader:   c.Preheader,
		VarHeadline:    c.Headline,
		VarBodyCopy:    c.BodyCopy,
		VarCTAText:     c.CTAText,
	}
	for i, p := range Paragraphs(c.BodyCopy) {
		vars[fmt.Sprintf("%s_%d", VarBodyCopy, i+1)] = p
	}
	return vars
}

// Paragraphs splits body copy on blank lines
func Paragraphs(body string) []string {
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if body == "" {
		return nil
	}
	var out []string
	for _, p := range reBlankLine.Split(body, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func replaceText(doc, value, name string) (string, bool) {
	for _, v := range variants(value) {
		re, err := regexp.Compile(`>(\s*)` + regexp.QuoteMeta(v) + textTail + `<`)
		if err != nil {
			continue
		}
		if re.MatchString(doc) {
			return re.ReplaceAllString(doc, ">${1}{{ "+name+" }}${2}<"), true
		}
	}
	return doc, false
}

// variants lists the forms a value can take once rendered as HTML text
func variants(value string) []string {
	lines := strings.Split(value, "\n")
	for i := range lines {
		lines[i] = html.EscapeString(strings.TrimSpace(lines[i]))
	}

	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, sep := range []string{"<br/>", "<br>", "<br />", "\n", " "} {
		add(strings.Join(lines, sep))
	}
	add(value)
	return out
}
