package contenttype

import (
	"errors"
	"strings"

	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

// Wildcard matches any type or subtype.
const Wildcard = "*"

// Well-known content types served by the core.
var (
	ApplicationXML     = MustParse("application/xml")
	ApplicationAtomXML = MustParse("application/atom+xml")
	ApplicationAtomSvc = MustParse("application/atomsvc+xml")
	ApplicationJSON    = MustParse("application/json")
	TextXML            = MustParse("text/xml")
	TextPlain          = MustParse("text/plain")
	Any                = MustParse("*/*")
)

type parameter struct {
	key   string
	value string
}

// ContentType is an immutable media type: type, subtype and ordered
// parameters. The zero value is not a valid content type.
type ContentType struct {
	typ     string
	subtype string
	params  []parameter
}

// Create returns the content type typ/subtype. An empty subtype becomes the
// wildcard.
func Create(typ, subtype string) ContentType {
	if subtype == "" {
		subtype = Wildcard
	}
	return ContentType{typ: strings.ToLower(typ), subtype: strings.ToLower(subtype)}
}

// Parse reads type ["/" subtype] *(";" name ["=" value]).
//
// A missing subtype defaults to "*" and a parameter without "=" is kept with
// an empty value. Values may be quoted strings with backslash escapes. Only
// structurally malformed input is rejected.
func Parse(text string) (ContentType, error) {
	segments, ok := splitUnquoted(text, ';')
	if !ok {
		return ContentType{}, odataerr.NewParseError(text, "unterminated quoted string")
	}
	head := strings.TrimSpace(segments[0])
	if head == "" {
		return ContentType{}, odataerr.NewParseError(text, "empty type")
	}

	typ, subtype := head, Wildcard
	if i := strings.IndexByte(head, '/'); i >= 0 {
		typ = strings.TrimSpace(head[:i])
		subtype = strings.TrimSpace(head[i+1:])
		if strings.IndexByte(subtype, '/') >= 0 {
			return ContentType{}, odataerr.NewParseError(text, "more than one '/'")
		}
		if subtype == "" {
			return ContentType{}, odataerr.NewParseError(text, "empty subtype")
		}
	}
	if typ == "" {
		return ContentType{}, odataerr.NewParseError(text, "empty type")
	}
	if !isToken(typ) || !isToken(subtype) {
		return ContentType{}, odataerr.NewParseError(text, "illegal character in type")
	}

	ct := Create(typ, subtype)
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		key, value, _ := strings.Cut(seg, "=")
		key = strings.TrimSpace(key)
		if key == "" || !isToken(key) {
			return ContentType{}, odataerr.NewParseError(text, "illegal parameter name")
		}
		value, err := unquote(strings.TrimSpace(value))
		if err != nil {
			return ContentType{}, odataerr.NewParseError(text, err.Error())
		}
		ct = ct.AddParameter(key, value)
	}
	return ct, nil
}

// splitUnquoted splits text on sep outside quoted strings. ok is false when
// a quoted string is not terminated.
func splitUnquoted(text string, sep byte) (segments []string, ok bool) {
	var (
		start  int
		quoted bool
	)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case quoted && c == '\\':
			i++
		case c == '"':
			quoted = !quoted
		case !quoted && c == sep:
			segments = append(segments, text[start:i])
			start = i + 1
		}
	}
	if quoted {
		return nil, false
	}
	return append(segments, text[start:]), true
}

// unquote returns the value of a bare token or of a quoted string.
func unquote(value string) (string, error) {
	if !strings.HasPrefix(value, `"`) {
		if strings.ContainsRune(value, '"') {
			return "", errors.New("stray quote in parameter value")
		}
		return value, nil
	}
	var b strings.Builder
	for i := 1; i < len(value); i++ {
		switch c := value[i]; c {
		case '\\':
			if i+1 >= len(value) {
				return "", errors.New("dangling escape in parameter value")
			}
			i++
			b.WriteByte(value[i])
		case '"':
			if i != len(value)-1 {
				return "", errors.New("text after quoted parameter value")
			}
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
	return "", errors.New("unterminated quoted string")
}

// quote renders value as a token when it is one and as a quoted string
// otherwise.
func quote(value string) string {
	if isToken(value) {
		return value
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(value); i++ {
		if c := value[i]; c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(value[i])
	}
	b.WriteByte('"')
	return b.String()
}

// MustParse is like Parse but panics on malformed input. Use it for
// package-level constants only.
func MustParse(text string) ContentType {
	ct, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return ct
}

// AddParameter returns a copy with key set to value. A key that is already
// present keeps its position and takes the new value.
func (c ContentType) AddParameter(key, value string) ContentType {
	key = strings.ToLower(key)
	params := make([]parameter, 0, len(c.params)+1)
	replaced := false
	for _, p := range c.params {
		if p.key == key {
			p.value = value
			replaced = true
		}
		params = append(params, p)
	}
	if !replaced {
		params = append(params, parameter{key: key, value: value})
	}
	return ContentType{typ: c.typ, subtype: c.subtype, params: params}
}

// RemoveParameter returns a copy without key.
func (c ContentType) RemoveParameter(key string) ContentType {
	key = strings.ToLower(key)
	params := make([]parameter, 0, len(c.params))
	for _, p := range c.params {
		if p.key != key {
			params = append(params, p)
		}
	}
	return ContentType{typ: c.typ, subtype: c.subtype, params: params}
}

// Type returns the lower-cased type, possibly "*".
func (c ContentType) Type() string { return c.typ }

// Subtype returns the lower-cased subtype, possibly "*".
func (c ContentType) Subtype() string { return c.subtype }

// Parameters returns a copy of the parameters.
func (c ContentType) Parameters() map[string]string {
	out := make(map[string]string, len(c.params))
	for _, p := range c.params {
		out[p.key] = p.value
	}
	return out
}

// Parameter returns the value of key and whether it is present.
func (c ContentType) Parameter(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, p := range c.params {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// IsWildcard reports whether the type is "*".
func (c ContentType) IsWildcard() bool { return c.typ == Wildcard }

// String renders type/subtype[;k=v]* with parameters in insertion order.
// Values that are not tokens are written as quoted strings.
func (c ContentType) String() string {
	var b strings.Builder
	b.WriteString(c.typ)
	b.WriteByte('/')
	b.WriteString(c.subtype)
	for _, p := range c.params {
		b.WriteByte(';')
		b.WriteString(p.key)
		if p.value != "" {
			b.WriteByte('=')
			b.WriteString(quote(p.value))
		}
	}
	return b.String()
}

// Match reports whether c and other are compatible for negotiation.
//
// A wildcard type on either side matches everything. Otherwise types must be
// equal, subtypes must be equal unless one is "*", and every parameter key
// present on both sides must carry the same value. Match is symmetric.
func (c ContentType) Match(other ContentType) bool {
	if c.typ == Wildcard || other.typ == Wildcard {
		return true
	}
	if c.typ != other.typ {
		return false
	}
	if c.subtype != Wildcard && other.subtype != Wildcard && c.subtype != other.subtype {
		return false
	}
	for _, p := range c.params {
		if v, ok := other.Parameter(p.key); ok && v != p.value {
			return false
		}
	}
	return true
}

// Equal reports strict structural equality, ignoring parameter order.
func (c ContentType) Equal(other ContentType) bool {
	if c.typ != other.typ || c.subtype != other.subtype || len(c.params) != len(other.params) {
		return false
	}
	for _, p := range c.params {
		if v, ok := other.Parameter(p.key); !ok || v != p.value {
			return false
		}
	}
	return true
}

// isToken reports whether s is an RFC 7230 token or the wildcard.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
