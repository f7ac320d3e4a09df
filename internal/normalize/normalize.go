// Package normalize implements the canonical URL normalization and domain
// extraction that define tab identity (§4.1). Both functions are pure,
// deterministic, and total: a parse failure degrades to a safe default
// rather than propagating an error, since the caller has no sensible
// recovery path for an unparseable tab URL.
package normalize

import (
	"net/url"
	"sort"
	"strings"
)

// alwaysStripParams are tracking parameters stripped on every host.
var alwaysStripParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
}

// hostClassStrip carries a small allowlist of affiliate/tracking
// parameters bound to specific hosts, beyond the seven stripped
// everywhere. Keyed by bare (www.-stripped, lowercased) host.
var hostClassStrip = map[string]map[string]struct{}{
	"amazon.com": {"tag": {}, "linkCode": {}, "ascsubtag": {}, "ref_": {}},
	"ebay.com":   {"campid": {}, "customid": {}, "toolid": {}},
}

// semanticRule identifies, per (host, path-prefix), the query parameter
// that carries content identity rather than tracking noise. These must
// never be stripped — an over-eager normalizer collapses distinct videos
// or distinct search results into one dedup key.
type semanticRule struct {
	hostSuffix string
	pathPrefix string
	param      string
}

var semanticRules = []semanticRule{
	{"youtube.com", "/watch", "v"},
	{"google.com", "/search", "q"},
	{"bing.com", "/search", "q"},
	{"duckduckgo.com", "/", "q"},
}

// Normalize returns the canonical dedup key for url. On parse failure it
// returns the lowercased input verbatim, never an error.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}

	host := stripWWW(strings.ToLower(u.Host))
	host = stripDefaultPort(host, u.Scheme)

	path := u.EscapedPath()
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	query := normalizeQuery(host, path, u.Query())

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(strings.ToLower(path))
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	return b.String()
}

// Domain returns the lowercased, www.-stripped hostname of url, or "" on
// parse failure. Domain is derived exclusively from the URL, never the
// title.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := stripWWW(strings.ToLower(u.Host))
	return stripDefaultPort(host, u.Scheme)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

func stripDefaultPort(host, scheme string) string {
	switch scheme {
	case "http":
		return strings.TrimSuffix(host, ":80")
	case "https":
		return strings.TrimSuffix(host, ":443")
	default:
		return host
	}
}

func normalizeQuery(host, path string, values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	semanticParam := semanticParamFor(host, path)
	hostStrip := hostClassStrip[baseDomain(host)]

	kept := make(url.Values, len(values))
	for key, vals := range values {
		lowerKey := strings.ToLower(key)
		if lowerKey == semanticParam {
			kept[key] = vals
			continue
		}
		if _, strip := alwaysStripParams[lowerKey]; strip {
			continue
		}
		if hostStrip != nil {
			if _, strip := hostStrip[key]; strip {
				continue
			}
		}
		kept[key] = vals
	}

	if len(kept) == 0 {
		return ""
	}

	keys := make([]string, 0, len(kept))
	for k := range kept {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := kept[k]
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteString("&")
			}
			b.WriteString(strings.ToLower(url.QueryEscape(k)))
			b.WriteString("=")
			b.WriteString(strings.ToLower(url.QueryEscape(v)))
		}
	}
	return b.String()
}

// semanticParamFor returns the identity-carrying parameter name for a
// (host, path) pair, or "" if the path is not one of the known
// identity-ambiguous search/watch paths.
func semanticParamFor(host, path string) string {
	for _, rule := range semanticRules {
		if !strings.HasSuffix(host, rule.hostSuffix) {
			continue
		}
		if strings.HasPrefix(path, rule.pathPrefix) {
			return rule.param
		}
	}
	// Generic "search?q=..." path on any host: q is identity.
	if strings.Contains(path, "search") {
		return "q"
	}
	return ""
}

// baseDomain collapses a host to its registrable-ish base for the
// host-class tracking-parameter allowlist (e.g. "smile.amazon.com" ->
// "amazon.com"). This is a conservative suffix match, not full public
// suffix list parsing — sufficient for the small allowlist above.
func baseDomain(host string) string {
	for known := range hostClassStrip {
		if host == known || strings.HasSuffix(host, "."+known) {
			return known
		}
	}
	return host
}
