package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxWidth is the widest layout email clients render reliably
const MaxWidth = 600

// Result is the outcome of validating an email document
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Error messages
const (
	ErrMissingDoctype = "missing DOCTYPE declaration"
	ErrNoTables       = "no table elements found, table-based layout is required"
	ErrNoInlineStyles = "no inline styles found"
	ErrFlexOrGrid     = "flexbox or grid layout is not supported by email clients"
)

// Warning messages
const (
	WarnMissingCharset     = "missing charset meta tag"
	WarnMissingViewport    = "missing viewport meta tag"
	WarnMissingApple       = "missing x-apple-disable-message-reformatting meta tag"
	WarnMissingOutlookNS   = "missing Outlook (xmlns:o) namespace"
	WarnMissingMSO         = "missing Outlook conditional comments"
	WarnMissingPreheader   = "missing hidden preheader"
	WarnMissingUnsubscribe = "missing unsubscribe text"
	WarnNoH1               = "no h1 element found"
	WarnMultipleH1         = "multiple h1 elements found"
	WarnImageAlt           = "images without alt text"
	WarnTableRole          = `tables without role="presentation"`
	WarnWidth              = "width may exceed 600px"
)

var (
	reDoctype     = regexp.MustCompile(`(?i)<!DOCTYPE\s+html`)
	reTable       = regexp.MustCompile(`(?i)<table\b([^>]*)>`)
	reInlineStyle = regexp.MustCompile(`(?i)\sstyle\s*=\s*["']`)
	reFlexGrid    = regexp.MustCompile(`(?i)display\s*:\s*(?:inline-)?(?:flex|grid)\b|\bflex-direction\s*:|\bgrid-template(?:-\w+)?\s*:`)

	reCharset   = regexp.MustCompile(`(?i)<meta\b[^>]*\bcharset\s*=`)
	reViewport  = regexp.MustCompile(`(?i)<meta\b[^>]*\bname\s*=\s*["']?viewport`)
	reApple     = regexp.MustCompile(`(?i)x-apple-disable-message-reformatting`)
	reOutlookNS = regexp.MustCompile(`(?i)xmlns:o\s*=`)
	reMSO       = regexp.MustCompile(`(?i)<!--\[if\s+[^\]]*mso`)
	rePreheader = regexp.MustCompile(`(?i)display\s*:\s*none`)
	reUnsub     = regexp.MustCompile(`(?i)unsubscribe`)
	reH1        = regexp.MustCompile(`(?i)<h1\b`)
	reImg       = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	reAlt       = regexp.MustCompile(`(?i)\salt\s*=`)
	reRole      = regexp.MustCompile(`(?i)\srole\s*=\s*["']?presentation`)
	reAnyRole   = regexp.MustCompile(`(?i)\srole\s*=`)
	reRoleAttr  = regexp.MustCompile(`(?i)\srole\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]*)`)
	reWidthAttr = regexp.MustCompile(`(?i)\swidth\s*=\s*["']?(\d+)(?:px)?["'\s>]`)
	reWidthCSS  = regexp.MustCompile(`(?i)(?:^|[;"'\s])width\s*:\s*(\d+)px`)

	reCellpadding = regexp.MustCompile(`(?i)\scellpadding\s*=`)
	reCellspacing = regexp.MustCompile(`(?i)\scellspacing\s*=`)
	reBorder      = regexp.MustCompile(`(?i)\sborder\s*=`)
)

// Validate checks an email document for client compatibility
func Validate(html string) Result {
	r := Result{Errors: []string{}, Warnings: []string{}}

	if !reDoctype.MatchString(html) {
		r.Errors = append(r.Errors, ErrMissingDoctype)
	}
	tables := reTable.FindAllStringSubmatch(html, -1)
	if len(tables) == 0 {
		r.Errors = append(r.Errors, ErrNoTables)
	}
	if !reInlineStyle.MatchString(html) {
		r.Errors = append(r.Errors, ErrNoInlineStyles)
	}
	if reFlexGrid.MatchString(html) {
		r.Errors = append(r.Errors, ErrFlexOrGrid)
	}

	if !reCharset.MatchString(html) {
		r.Warnings = append(r.Warnings, WarnMissingCharset)
	}
	if !reViewport.MatchString(html) {
		r.Warnings = append(r.Warnings, WarnMissingViewport)
	}
	if !reApple.MatchString(html) {
		r.Warnings = append(r.Warnings, WarnMissingApple)
	}
	if !reOutlookNS.MatchString(html) {
		r.Warnings = append(r.Warnings, WarnMissingOutlookNS)
	}
	if !reMSO.MatchString(html) {
		r.Warnings = append(r.Warnings, WarnMissingMSO)
	}
	if !rePreheader.MatchString(html) {
		r.Warnings = append(r.Warnings, WarnMissingPreheader)
	}
	if !reUnsub.MatchString(html) {
		r.Warnings = append(r.Warnings, WarnMissingUnsubscribe)
	}

	switch n := len(reH1.FindAllStringIndex(html, -1)); {
	case n == 0:
		r.Warnings = append(r.Warnings, WarnNoH1)
	case n > 1:
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s (%d)", WarnMultipleH1, n))
	}

	missingAlt := 0
	for _, img := range reImg.FindAllString(html, -1) {
		if !reAlt.MatchString(img) {
			missingAlt++
		}
	}
	if missingAlt > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s (%d)", WarnImageAlt, missingAlt))
	}

	missingRole := 0
	for _, t := range tables {
		if !reRole.MatchString(t[1]) {
			missingRole++
		}
	}
	if missingRole > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s (%d)", WarnTableRole, missingRole))
	}

	if w := maxWidth(html); w > MaxWidth {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s (%dpx)", WarnWidth, w))
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// Sanitize applies the deterministic fixes: a DOCTYPE is prepended when
// absent, every table gets role="presentation" (replacing any other role),
// and cellpadding, cellspacing and border attributes when it lacks them. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(html string) string {
	if !reDoctype.MatchString(html) {
		html = "<!DOCTYPE html>\n" + html
	}

	return reTable.ReplaceAllStringFunc(html, func(tag string) string {
		attrs := reTable.FindStringSubmatch(tag)[1]

		fixed := attrs
		var add []string
		switch {
		case reRole.MatchString(attrs):
		case reAnyRole.MatchString(attrs):
			fixed = reRoleAttr.ReplaceAllString(attrs, ` role="presentation"`)
		default:
			add = append(add, `role="presentation"`)
		}
		if !reCellpadding.MatchString(attrs) {
			add = append(add, `cellpadding="0"`)
		}
		if !reCellspacing.MatchString(attrs) {
			add = append(add, `cellspacing="0"`)
		}
		if !reBorder.MatchString(attrs) {
			add = append(add, `border="0"`)
		}
		if len(add) == 0 && fixed == attrs {
			return tag
		}
		if len(add) == 0 {
			return tag[:len("<table")] + fixed + ">"
		}
		return tag[:len("<table")] + " " + strings.Join(add, " ") + fixed + ">"
	})
}

func maxWidth(html string) int {
	widest := 0
	for _, re := range []*regexp.Regexp{reWidthAttr, reWidthCSS} {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			if w, err := strconv.Atoi(m[1]); err == nil && w > widest {
				widest = w
			}
		}
	}
	return widest
}
