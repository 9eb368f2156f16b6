package ep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theoremus-urban-solutions/odata-core/edm"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

// EntityInfo collects what the providers need to know about one entity set.
// It is built once per request and turns rows into EntityViews.
type EntityInfo struct {
	set  *edm.EntitySet
	keys []edm.Property
}

// NewEntityInfo returns the info of set. The set's type must declare keys.
func NewEntityInfo(set *edm.EntitySet) (*EntityInfo, error) {
	if set == nil || set.EntityType == nil {
		return nil, errors.New("entity set without entity type")
	}
	keys := set.EntityType.KeyProperties()
	if len(keys) == 0 || len(keys) != len(set.EntityType.Keys) {
		return nil, fmt.Errorf("entity type %s has no usable key", set.EntityType.FullName())
	}
	return &EntityInfo{set: set, keys: keys}, nil
}

// EntitySetName returns the name of the set.
func (i *EntityInfo) EntitySetName() string {
	return i.set.Name
}

// KeyValue is one formatted key property.
type KeyValue struct {
	Name    string
	Literal string
}

// EntityView is the normalized, read-only view of one row.
type EntityView struct {
	set  *edm.EntitySet
	keys []KeyValue
}

// View formats the key properties of row. A key without a value fails with
// KindMissingKey; a value that does not fit its EDM type with KindIllegalKey.
func (i *EntityInfo) View(row map[string]any) (EntityView, error) {
	keys := make([]KeyValue, 0, len(i.keys))
	for _, p := range i.keys {
		v, ok := row[p.Name]
		if !ok || v == nil {
			return EntityView{}, odataerr.NewSerializationError(odataerr.KindMissingKey,
				fmt.Errorf("%s: no value for key property %s", i.set.Name, p.Name))
		}
		lit, err := edm.FormatLiteral(p.Type, v)
		if err != nil {
			return EntityView{}, odataerr.NewSerializationError(odataerr.KindIllegalKey,
				fmt.Errorf("%s: key property %s: %w", i.set.Name, p.Name, err))
		}
		keys = append(keys, KeyValue{Name: p.Name, Literal: lit})
	}
	return EntityView{set: i.set, keys: keys}, nil
}

// EntitySetName returns the name of the row's set.
func (v EntityView) EntitySetName() string {
	return v.set.Name
}

// KeyProperties returns the formatted keys in key order.
func (v EntityView) KeyProperties() []KeyValue {
	return append([]KeyValue(nil), v.keys...)
}

// HasNavigation reports whether segment is a navigation property of the
// row's type.
func (v EntityView) HasNavigation(segment string) bool {
	_, ok := v.set.EntityType.NavigationProperty(segment)
	return ok
}

// KeyPredicate renders the keys as they appear between the parentheses of an
// entity URI.
func (v EntityView) KeyPredicate() string {
	if len(v.keys) == 1 {
		return v.keys[0].Literal
	}
	parts := make([]string, len(v.keys))
	for i, k := range v.keys {
		parts[i] = k.Name + "=" + k.Literal
	}
	return strings.Join(parts, ",")
}

// URI returns the relative URI of the entity, {set}({keys}).
func (v EntityView) URI() string {
	name := v.set.Name
	if c := v.set.Container; c != nil && !c.IsDefault {
		name = c.Name + "." + name
	}
	return name + "(" + v.KeyPredicate() + ")"
}
