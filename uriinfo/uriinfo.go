// Package uriinfo describes a parsed OData request URI.
//
// UriInfo is produced once per request by Parse and only read afterwards.
// Parse understands the resource paths this service answers: the service
// document, an entity set, one entity, a navigation from one entity and the
// $links of a navigation, plus the OData system query options.
package uriinfo

import "github.com/theoremus-urban-solutions/odata-core/edm"

// InlineCount is the value of $inlinecount.
type InlineCount string

const (
	InlineCountNone     InlineCount = "none"
	InlineCountAllPages InlineCount = "allpages"
)

// KeyPredicate is one name=value pair of a key. Literal holds the value as
// written in the URI after percent-decoding, quotes included.
type KeyPredicate struct {
	Name    string
	Literal string
}

// NavigationSegment is a navigation property step of the resource path.
type NavigationSegment struct {
	Name            string
	TargetEntitySet *edm.EntitySet
	KeyPredicates   []KeyPredicate
}

// UriInfo is the parsed form of a request URI.
type UriInfo struct {
	EntityContainer    *edm.EntityContainer
	StartEntitySet     *edm.EntitySet
	TargetEntitySet    *edm.EntitySet
	KeyPredicates      []KeyPredicate
	NavigationSegments []NavigationSegment
	IsLinks            bool

	Format      string
	Filter      string
	OrderBy     string
	Expand      []string
	Select      []string
	InlineCount InlineCount
	Top         *int
	Skip        *int

	// FunctionImport and its parameters are set by callers that route
	// service operations themselves; Parse leaves them empty.
	FunctionImport           string
	FunctionImportParameters map[string]string

	CustomQueryOptions map[string]string
}

// IsServiceDocument reports whether the URI addresses the service root.
func (u *UriInfo) IsServiceDocument() bool {
	return u.StartEntitySet == nil && u.FunctionImport == ""
}

// IsEntity reports whether the URI addresses a single entity.
func (u *UriInfo) IsEntity() bool {
	if len(u.NavigationSegments) > 0 {
		last := u.NavigationSegments[len(u.NavigationSegments)-1]
		return len(last.KeyPredicates) > 0
	}
	return len(u.KeyPredicates) > 0
}

// WantsInlineCount reports whether $inlinecount=allpages was requested.
func (u *UriInfo) WantsInlineCount() bool {
	return u.InlineCount == InlineCountAllPages
}
