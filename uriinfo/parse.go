package uriinfo

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/odata-core/edm"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

const segmentLinks = "$links"

// Parse resolves an escaped resource path against model and reads the
// system query options. Unknown sets and navigation properties fail with a
// 404 *odataerr.Error, malformed keys and options with 400, and paths this
// service does not serve with 501.
func Parse(model *edm.Edm, escapedPath string, query url.Values) (*UriInfo, error) {
	info := &UriInfo{}
	if err := parseQuery(info, query); err != nil {
		return nil, err
	}

	path := strings.Trim(escapedPath, "/")
	if path == "" {
		info.EntityContainer = model.DefaultContainer()
		return info, nil
	}

	raw := strings.Split(path, "/")
	segments := make([]string, len(raw))
	for i, s := range raw {
		seg, err := url.PathUnescape(s)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("invalid escaping in segment '%s'", s), err)
		}
		segments[i] = seg
	}

	name, keyText, hasKeys, err := splitSegment(segments[0])
	if err != nil {
		return nil, err
	}
	set, err := model.EntitySet(name)
	if err != nil {
		return nil, odataerr.Wrap(http.StatusNotFound,
			odataerr.NewMessageReference(odataerr.KeyEntitySetNotFound).AddContent(name), err)
	}
	info.EntityContainer = set.Container
	info.StartEntitySet = set
	info.TargetEntitySet = set
	if hasKeys {
		if info.KeyPredicates, err = parseKeys(set, keyText); err != nil {
			return nil, err
		}
	}

	rest := segments[1:]
	if len(rest) == 0 {
		return info, nil
	}
	if !hasKeys {
		return nil, notImplemented(escapedPath)
	}

	if rest[0] == segmentLinks {
		info.IsLinks = true
		rest = rest[1:]
		if len(rest) == 0 {
			return nil, badRequest("missing navigation property after $links", nil)
		}
	}
	if len(rest) > 1 {
		return nil, notImplemented(escapedPath)
	}

	navName, navKeyText, navHasKeys, err := splitSegment(rest[0])
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(navName, "$") {
		return nil, notImplemented(escapedPath)
	}
	nav, ok := set.EntityType.NavigationProperty(navName)
	if !ok {
		return nil, odataerr.New(http.StatusNotFound,
			odataerr.NewMessageReference(odataerr.KeyNavigationNotFound).AddContent(navName, set.Name))
	}
	target, ok := set.Container.EntitySet(nav.Target)
	if !ok {
		return nil, odataerr.New(http.StatusNotFound,
			odataerr.NewMessageReference(odataerr.KeyEntitySetNotFound).AddContent(nav.Target))
	}
	seg := NavigationSegment{Name: navName, TargetEntitySet: target}
	if navHasKeys {
		if !nav.Many {
			return nil, badRequest(fmt.Sprintf("navigation property '%s' is not a collection", navName), nil)
		}
		if seg.KeyPredicates, err = parseKeys(target, navKeyText); err != nil {
			return nil, err
		}
	}
	info.NavigationSegments = []NavigationSegment{seg}
	info.TargetEntitySet = target
	return info, nil
}

// splitSegment splits "Name(keys)" into its parts.
func splitSegment(seg string) (name, keys string, hasKeys bool, err error) {
	open := strings.IndexByte(seg, '(')
	if open < 0 {
		if seg == "" {
			return "", "", false, badRequest("empty path segment", nil)
		}
		return seg, "", false, nil
	}
	if !strings.HasSuffix(seg, ")") || open == 0 {
		return "", "", false, badRequest(fmt.Sprintf("malformed segment '%s'", seg), nil)
	}
	return seg[:open], seg[open+1 : len(seg)-1], true, nil
}

// parseKeys reads "value" for a single key or "n=v,..." for any key.
func parseKeys(set *edm.EntitySet, text string) ([]KeyPredicate, error) {
	keys := set.EntityType.Keys
	parts, err := splitOutsideQuotes(text)
	if err != nil || len(parts) == 0 {
		return nil, badRequest(fmt.Sprintf("invalid key predicate '%s'", text), err)
	}

	if len(parts) == 1 && len(keys) == 1 && !isNamedKey(parts[0], keys[0]) {
		if parts[0] == "" {
			return nil, badRequest(fmt.Sprintf("invalid key predicate '%s'", text), nil)
		}
		return []KeyPredicate{{Name: keys[0], Literal: parts[0]}}, nil
	}
	if len(parts) != len(keys) {
		return nil, badRequest(fmt.Sprintf("key predicate '%s' needs %d key values", text, len(keys)), nil)
	}

	byName := make(map[string]string, len(parts))
	for _, p := range parts {
		name, value, ok := strings.Cut(p, "=")
		if !ok || value == "" {
			return nil, badRequest(fmt.Sprintf("invalid key predicate '%s'", text), nil)
		}
		if _, dup := byName[name]; dup {
			return nil, badRequest(fmt.Sprintf("duplicate key '%s'", name), nil)
		}
		byName[name] = value
	}
	out := make([]KeyPredicate, 0, len(keys))
	for _, k := range keys {
		v, ok := byName[k]
		if !ok {
			return nil, badRequest(fmt.Sprintf("missing key '%s'", k), nil)
		}
		out = append(out, KeyPredicate{Name: k, Literal: v})
	}
	return out, nil
}

func isNamedKey(part, key string) bool {
	name, _, ok := strings.Cut(part, "=")
	return ok && name == key
}

// splitOutsideQuotes splits on commas that are not inside a quoted literal.
// Doubled quotes inside a literal are an escaped quote.
func splitOutsideQuotes(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	quoted := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && quoted && i+1 < len(s) && s[i+1] == '\'':
			cur.WriteString("''")
			i++
		case c == '\'':
			quoted = !quoted
			cur.WriteByte(c)
		case c == ',' && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string literal in %q", s)
	}
	return append(parts, cur.String()), nil
}

func parseQuery(info *UriInfo, query url.Values) error {
	for name, values := range query {
		if len(values) == 0 {
			continue
		}
		v := values[0]
		if !strings.HasPrefix(name, "$") {
			if info.CustomQueryOptions == nil {
				info.CustomQueryOptions = make(map[string]string)
			}
			info.CustomQueryOptions[name] = v
			continue
		}
		switch name {
		case "$format":
			info.Format = v
		case "$filter":
			info.Filter = v
		case "$orderby":
			info.OrderBy = v
		case "$expand":
			info.Expand = splitList(v)
		case "$select":
			info.Select = splitList(v)
		case "$inlinecount":
			switch InlineCount(v) {
			case InlineCountNone, InlineCountAllPages:
				info.InlineCount = InlineCount(v)
			default:
				return badRequest(fmt.Sprintf("invalid $inlinecount value '%s'", v), nil)
			}
		case "$top", "$skip":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return badRequest(fmt.Sprintf("%s must be a non-negative integer", name), err)
			}
			if name == "$top" {
				info.Top = &n
			} else {
				info.Skip = &n
			}
		default:
			return badRequest(fmt.Sprintf("unknown system query option '%s'", name), nil)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func badRequest(detail string, err error) *odataerr.Error {
	ref := odataerr.NewMessageReference(odataerr.KeyBadRequest).AddContent(detail)
	if err != nil {
		return odataerr.Wrap(http.StatusBadRequest, ref, err)
	}
	return odataerr.New(http.StatusBadRequest, ref)
}

func notImplemented(path string) *odataerr.Error {
	return odataerr.New(http.StatusNotImplemented,
		odataerr.NewMessageReference(odataerr.KeyNotImplemented).AddContent(path))
}
