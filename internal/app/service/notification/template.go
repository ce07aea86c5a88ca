package notification

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	PlaceholderUserName = "{user_name}"
	PlaceholderSiteURL  = "{site_url}"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	emailPolicy  = newEmailPolicy()
)

func newEmailPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyles("color", "background", "background-color", "padding", "margin",
		"text-decoration", "border-radius", "font-size", "font-weight", "text-align").Globally()
	return p
}

// Vars are the placeholder values; they are sanitized before substitution.
type Vars struct {
	UserName string
	SiteURL  string
}

// RenderText fills a plain text template such as an SMS body.
func RenderText(tpl string, v Vars) string {
	return strings.NewReplacer(
		PlaceholderUserName, StripTags(v.UserName),
		PlaceholderSiteURL, v.SiteURL,
	).Replace(tpl)
}

// RenderHTML fills an admin supplied HTML template and drops markup the
// email policy does not allow.
func RenderHTML(tpl string, v Vars) string {
	out := strings.NewReplacer(
		PlaceholderUserName, strictPolicy.Sanitize(v.UserName),
		PlaceholderSiteURL, html.EscapeString(v.SiteURL),
	).Replace(tpl)
	return emailPolicy.Sanitize(out)
}

// StripTags turns an HTML fragment into plain text.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
