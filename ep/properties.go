package ep

import "strings"

// Properties controls how entities are written.
type Properties struct {
	// ServiceRoot is prefixed to every written URI. Empty writes relative URIs.
	ServiceRoot string
	// InlineCount, when set, is written as the count of a links collection.
	// The caller computes it; the providers never count rows themselves.
	InlineCount *int
}

// WithInlineCount returns a copy of p carrying count.
func (p Properties) WithInlineCount(count int) Properties {
	p.InlineCount = &count
	return p
}

func (p Properties) absolute(relative string) string {
	if p.ServiceRoot == "" {
		return relative
	}
	if strings.HasSuffix(p.ServiceRoot, "/") {
		return p.ServiceRoot + relative
	}
	return p.ServiceRoot + "/" + relative
}
