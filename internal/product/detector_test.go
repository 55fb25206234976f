package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_Classify(t *testing.T) {
	d := NewDetector("hypd.store", "/hypd_store/product/")

	tests := []struct {
		name string
		url  string
		want Classification
	}{
		{
			name: "product url with title",
			url:  "https://www.hypd.store/hypd_store/product/abc123?title=Shoe",
			want: Classification{IsProduct: true, ProviderID: "abc123", Title: "Shoe"},
		},
		{
			name: "product url without title",
			url:  "https://hypd.store/hypd_store/product/xyz",
			want: Classification{IsProduct: true, ProviderID: "xyz"},
		},
		{
			name: "host match is case insensitive",
			url:  "https://WWW.HYPD.STORE/hypd_store/product/p1",
			want: Classification{IsProduct: true, ProviderID: "p1"},
		},
		{name: "other domain", url: "https://example.com/x"},
		{name: "lookalike domain", url: "https://nothypd.store/hypd_store/product/abc"},
		{name: "provider domain, non product path", url: "https://www.hypd.store/about"},
		{name: "marker with empty id", url: "https://www.hypd.store/hypd_store/product/"},
		{name: "unparseable", url: "://bad url"},
		{name: "relative", url: "/hypd_store/product/abc"},
		{name: "empty", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Classify(tt.url))
		})
	}
}
