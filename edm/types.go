package edm

import (
	"fmt"
	"strings"
)

// SimpleType is an EDM primitive type.
type SimpleType string

const (
	String         SimpleType = "Edm.String"
	Boolean        SimpleType = "Edm.Boolean"
	Byte           SimpleType = "Edm.Byte"
	SByte          SimpleType = "Edm.SByte"
	Int16          SimpleType = "Edm.Int16"
	Int32          SimpleType = "Edm.Int32"
	Int64          SimpleType = "Edm.Int64"
	Decimal        SimpleType = "Edm.Decimal"
	Double         SimpleType = "Edm.Double"
	Single         SimpleType = "Edm.Single"
	Guid           SimpleType = "Edm.Guid"
	DateTime       SimpleType = "Edm.DateTime"
	DateTimeOffset SimpleType = "Edm.DateTimeOffset"
	Time           SimpleType = "Edm.Time"
	Binary         SimpleType = "Edm.Binary"
)

var simpleTypes = map[string]SimpleType{}

func init() {
	for _, t := range []SimpleType{String, Boolean, Byte, SByte, Int16, Int32, Int64, Decimal,
		Double, Single, Guid, DateTime, DateTimeOffset, Time, Binary} {
		simpleTypes[strings.ToLower(string(t))] = t
	}
}

// ParseSimpleType resolves a type name such as "Edm.Int32". The "Edm."
// prefix is optional and case is ignored.
func ParseSimpleType(name string) (SimpleType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(key, "edm.") {
		key = "edm." + key
	}
	if t, ok := simpleTypes[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown EDM simple type %q", name)
}

func (t SimpleType) String() string { return string(t) }
