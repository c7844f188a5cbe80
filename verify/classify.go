package verify

import (
	"net/url"
	"strings"

	"github.com/nocaplabs/claimcheck/core"
)

// reputableDomains is the fixed allow-list of outlets and institutions
// whose results are weighed as reputable evidence. Matching is by
// domain suffix, so subdomains of a listed domain qualify.
var reputableDomains = []string{
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"bbc.co.uk",
	"npr.org",
	"snopes.com",
	"factcheck.org",
	"politifact.com",
	"who.int",
	"cdc.gov",
	"nih.gov",
	"nasa.gov",
	"nature.com",
	"sciencemag.org",
	"britannica.com",
}

// isReputable reports whether the result's URL belongs to a domain on
// the allow-list. Unparseable URLs are not reputable.
func isReputable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	for _, domain := range reputableDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// rankReputable moves reputable results to the front, preserving the
// provider's order within each class, and returns the reputable count.
func rankReputable(results []core.WebResult) ([]core.WebResult, int) {
	reputable := make([]core.WebResult, 0, len(results))
	var rest []core.WebResult
	for _, r := range results {
		if isReputable(r.URL) {
			reputable = append(reputable, r)
		} else {
			rest = append(rest, r)
		}
	}
	return append(reputable, rest...), len(reputable)
}
