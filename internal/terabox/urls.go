package terabox

import (
	"net/url"
	"regexp"
)

// Share-link hosts the resolver understands.
var domains = []string{
	`terabox\.com`,
	`teraboxapp\.com`,
	`1024tera\.com`,
	`4funbox\.com`,
	`mirrobox\.com`,
	`nephobox\.com`,
	`terabox\.app`,
}

var (
	urlPattern     *regexp.Regexp
	shareIDPattern = regexp.MustCompile(`/s/([\w-]+)`)
)

func init() {
	pattern := `(?i)(?:https?://)?(?:www\.)?(` + domains[0]
	for _, d := range domains[1:] {
		pattern += `|` + d
	}
	pattern += `)(/[^\s]*)?`
	urlPattern = regexp.MustCompile(pattern)
}

// ExtractURLs pulls every share link out of a message, normalized to https.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	var urls []string
	for _, m := range urlPattern.FindAllStringSubmatch(text, -1) {
		domain, path := m[1], m[2]
		if path == "" {
			path = "/"
		}
		urls = append(urls, "https://"+domain+path)
	}
	return urls
}

// IsShareURL reports whether the string starts with a recognized share link.
func IsShareURL(s string) bool {
	loc := urlPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

// Normalize rewrites a share link to its canonical https form. The empty
// string means the input was not a share link.
func Normalize(raw string) string {
	loc := urlPattern.FindStringSubmatchIndex(raw)
	if loc == nil || loc[0] != 0 {
		return ""
	}
	m := urlPattern.FindStringSubmatch(raw)
	domain, path := m[1], m[2]
	if path == "" {
		path = "/"
	}
	return "https://" + domain + path
}

// ShareID extracts the short identifier from a share link, looking first at
// the /s/ path segment, then at the surl query parameter.
func ShareID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if m := shareIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return u.Query().Get("surl")
}
