package model

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CompanyIdentity is the natural key for analysis work: a company name plus
// its canonical website URL. Two requests with the same normalized identity
// and tier resolve to the same report once one completes.
type CompanyIdentity struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var foldCaser = cases.Fold()

// Normalized returns a copy with a case-folded, NFKC-normalized name and a
// canonicalized URL (scheme and www stripped, host lowered, no trailing
// slash). Used to build dedup keys so that cosmetic differences between
// submissions never fork duplicate work.
func (c CompanyIdentity) Normalized() CompanyIdentity {
	return CompanyIdentity{
		Name: strings.TrimSpace(foldCaser.String(norm.NFKC.String(c.Name))),
		URL:  canonicalURL(c.URL),
	}
}

// DedupKey is the document-store lookup key for the dedup/cache gate. A
// cached standard report never satisfies a comprehensive request because the
// tier is part of the key.
func (c CompanyIdentity) DedupKey(tier AnalysisTier) string {
	n := c.Normalized()
	return n.URL + "|" + n.Name + "|" + string(tier)
}

// Domain returns the bare host of the company URL (no scheme, no www).
func (c CompanyIdentity) Domain() string {
	return canonicalURL(c.URL)
}

// Slug returns a hyphenated lowercase form of the company name, used to fill
// source URL templates (crunchbase, linkedin and the like).
func (c CompanyIdentity) Slug() string {
	s := strings.ToLower(strings.TrimSpace(c.Name))
	s = strings.NewReplacer(".", "", ",", "", "'", "").Replace(s)
	return strings.Join(strings.Fields(s), "-")
}

// Handle returns a compact form suitable for social handles (max 15 chars).
func (c CompanyIdentity) Handle() string {
	h := strings.ReplaceAll(c.Slug(), "-", "")
	if len(h) > 15 {
		h = h[:15]
	}
	return h
}

// QueryName returns the company name escaped for use in search URLs.
func (c CompanyIdentity) QueryName() string {
	return url.QueryEscape(c.Name)
}

func canonicalURL(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
