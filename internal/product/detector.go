// Package product recognises product-page URLs of the supported catalog.
package product

import (
	"net/url"
	"strings"
)

// Classification is the result of Detector.Classify.
type Classification struct {
	IsProduct  bool
	ProviderID string
	Title      string
}

// Detector matches URLs against one provider domain and product path marker.
// It holds configuration only and is safe for concurrent use.
type Detector struct {
	domain     string
	pathMarker string
}

// NewDetector builds a Detector. domain matches itself and any subdomain
// (hypd.store matches www.hypd.store); pathMarker must appear in the path,
// e.g. "/hypd_store/product/".
func NewDetector(domain, pathMarker string) *Detector {
	return &Detector{
		domain:     strings.ToLower(strings.TrimPrefix(domain, ".")),
		pathMarker: pathMarker,
	}
}

// Classify never fails: anything that does not parse or match is "not a product".
// The provider id is the path segment right after the literal "product" segment.
func (d *Detector) Classify(rawURL string) Classification {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Classification{}
	}

	if !d.matchHost(u.Hostname()) {
		return Classification{}
	}
	if !strings.Contains(u.Path, d.pathMarker) {
		return Classification{}
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if seg != "product" || i+1 >= len(segments) {
			continue
		}
		id := segments[i+1]
		if id == "" {
			return Classification{}
		}
		return Classification{
			IsProduct:  true,
			ProviderID: id,
			Title:      u.Query().Get("title"),
		}
	}

	return Classification{}
}

func (d *Detector) matchHost(host string) bool {
	host = strings.ToLower(host)
	return host == d.domain || strings.HasSuffix(host, "."+d.domain)
}
