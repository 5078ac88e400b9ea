package template

// Template is a named HTML email skeleton
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HTML        string `json:"-"`
}

// Catalog template IDs
const (
	Minimal     = "minimal"
	HeroImage   = "hero_image"
	ProductGrid = "product_grid"
	Newsletter  = "newsletter"
)

// Block markers removed together with their content when the data is missing
const (
	logoStart       = "<!-- LOGO_START -->"
	logoEnd         = "<!-- LOGO_END -->"
	highlightsStart = "<!-- HIGHLIGHTS_START -->"
	highlightsEnd   = "<!-- HIGHLIGHTS_END -->"
)

const docHead = `<!DOCTYPE html>
<html lang="en" xmlns="http://www.w3.org/1999/xhtml" xmlns:v="urn:schemas-microsoft-com:vml" xmlns:o="urn:schemas-microsoft-com:office:office">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="x-apple-disable-message-reformatting">
<meta name="format-detection" content="telephone=no, date=no, address=no, email=no">
<title>{{SUBJECT_LINE}}</title>
<!--[if mso]>
<noscript><xml><o:OfficeDocumentSettings><o:PixelsPerInch>96</o:PixelsPerInch></o:OfficeDocumentSettings></xml></noscript>
<![endif]-->
</head>
<body style="margin:0;padding:0;background-color:#f4f4f4;">
<div style="display:none;max-height:0;overflow:hidden;mso-hide:all;">{{PREHEADER}}&zwnj;&nbsp;&zwnj;&nbsp;</div>
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0" style="background-color:#f4f4f4;">
<tr><td align="center" style="padding:24px 12px;">
<!--[if mso]><table role="presentation" width="600" cellpadding="0" cellspacing="0" border="0"><tr><td><![endif]-->
<table role="presentation" width="600" cellpadding="0" cellspacing="0" border="0" style="width:100%;max-width:600px;background-color:#ffffff;">
<!-- LOGO_START -->
<tr><td align="center" style="padding:24px 24px 0 24px;"><img src="{{LOGO_URL}}" alt="{{COMPANY_NAME}}" width="150" style="display:block;border:0;max-width:150px;height:auto;"></td></tr>
<!-- LOGO_END -->
`

const ctaButton = `<tr><td align="center" style="padding:8px 24px 32px 24px;">
<table role="presentation" cellpadding="0" cellspacing="0" border="0" style="margin:0 auto;">
<tr><td align="center" bgcolor="{{PRIMARY_COLOR}}" style="border-radius:4px;background-color:{{PRIMARY_COLOR}};">
<a href="{{CTA_URL}}" class="cta-button" style="display:inline-block;padding:14px 28px;font-family:Arial,sans-serif;font-size:16px;font-weight:bold;color:{{CTA_TEXT_COLOR}};text-decoration:none;">{{CTA_TEXT}}</a>
</td></tr>
</table>
</td></tr>
`

const bodyRow = `<tr><td style="padding:0 24px 8px 24px;font-family:Arial,sans-serif;font-size:16px;line-height:24px;color:#333333;">
{{BODY_COPY}}
</td></tr>
`

const docFoot = `<tr><td style="padding:24px;font-family:Arial,sans-serif;font-size:12px;line-height:18px;color:#888888;text-align:center;border-top:1px solid #eeeeee;">
<p style="margin:0 0 8px 0;">&copy; {{YEAR}} {{COMPANY_NAME}}. All rights reserved.<br>{{COMPANY_ADDRESS}}</p>
<p style="margin:0;"><a href="{{UNSUBSCRIBE_URL}}" style="color:#888888;text-decoration:underline;">Unsubscribe</a> from these emails.</p>
</td></tr>
</table>
<!--[if mso]></td></tr></table><![endif]-->
</td></tr>
</table>
</body>
</html>
`

var catalog = []Template{
	{
		ID:          Minimal,
		Name:        "Minimal",
		Description: "Single column with headline, copy and a button",
		HTML: docHead + `<tr><td style="padding:32px 24px 16px 24px;font-family:Arial,sans-serif;">
<h1 style="margin:0;font-size:28px;line-height:34px;color:#111111;">{{HEADLINE}}</h1>
</td></tr>
` + bodyRow + ctaButton + docFoot,
	},
	{
		ID:          HeroImage,
		Name:        "Hero",
		Description: "Full-width brand colored hero band above the copy",
		HTML: docHead + `<tr><td align="center" bgcolor="{{PRIMARY_COLOR}}" style="padding:48px 24px;background-color:{{PRIMARY_COLOR}};font-family:Arial,sans-serif;">
<h1 style="margin:0;font-size:32px;line-height:38px;color:{{CTA_TEXT_COLOR}};">{{HEADLINE}}</h1>
</td></tr>
<tr><td style="height:24px;line-height:24px;font-size:0;">&nbsp;</td></tr>
` + bodyRow + ctaButton + docFoot,
	},
	{
		ID:          ProductGrid,
		Name:        "Product grid",
		Description: "Copy followed by a two column grid of highlights",
		HTML: docHead + `<tr><td style="padding:32px 24px 16px 24px;font-family:Arial,sans-serif;">
<h1 style="margin:0;font-size:28px;line-height:34px;color:#111111;">{{HEADLINE}}</h1>
</td></tr>
` + bodyRow + `<!-- HIGHLIGHTS_START -->
<tr><td style="padding:8px 18px 16px 18px;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0">
{{HIGHLIGHTS}}
</table>
</td></tr>
<!-- HIGHLIGHTS_END -->
` + ctaButton + docFoot,
	},
	{
		ID:          Newsletter,
		Name:        "Newsletter",
		Description: "Masthead, article copy and a link back to the website",
		HTML: docHead + `<tr><td style="padding:24px 24px 8px 24px;font-family:Georgia,serif;font-size:14px;letter-spacing:2px;text-transform:uppercase;color:{{PRIMARY_COLOR}};border-bottom:2px solid {{PRIMARY_COLOR}};">{{COMPANY_NAME}}</td></tr>
<tr><td style="padding:24px 24px 16px 24px;font-family:Georgia,serif;">
<h1 style="margin:0;font-size:26px;line-height:32px;color:#111111;">{{HEADLINE}}</h1>
</td></tr>
` + bodyRow + ctaButton + `<tr><td align="center" style="padding:0 24px 24px 24px;font-family:Arial,sans-serif;font-size:14px;color:#555555;">
<a href="{{WEBSITE_URL}}" style="color:{{PRIMARY_COLOR}};text-decoration:underline;">Read more on our website</a>
</td></tr>
` + docFoot,
	},
}
