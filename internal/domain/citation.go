package domain

import (
	"net/url"
	"strings"
)

// Citation is a normalised source reference extracted from a model answer.
type Citation struct {
	URL        string `json:"url"`
	Domain     string `json:"domain"`
	Title      string `json:"title,omitempty"`
	SourceType string `json:"sourceType,omitempty"`
}

// NormalizeCitations converts raw citations into Citation values. Entries may
// be bare URL strings or objects carrying the URL under "url" or "link".
// Only http(s) URLs are kept; duplicates are preserved.
func NormalizeCitations(raw []interface{}) []Citation {
	out := make([]Citation, 0, len(raw))
	for _, item := range raw {
		var c Citation
		switch v := item.(type) {
		case string:
			c.URL = v
		case map[string]interface{}:
			c.URL = firstString(v, "url", "link", "source")
			c.Domain = firstString(v, "domain", "source_domain")
			c.Title = firstString(v, "title", "name")
			c.SourceType = firstString(v, "sourceType", "source_type", "type")
		case Citation:
			c = v
		default:
			continue
		}
		c.URL = strings.TrimSpace(c.URL)
		if !IsHTTPURL(c.URL) {
			continue
		}
		if c.Domain == "" {
			c.Domain = DomainOf(c.URL)
		}
		if c.Title == "" {
			c.Title = c.Domain
		}
		out = append(out, c)
	}
	return out
}

// IsHTTPURL reports whether s is an absolute http or https URL.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// DomainOf returns the host of rawURL without a leading "www.".
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
