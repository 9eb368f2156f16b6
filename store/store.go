// Package store keeps the rows served for each entity set in memory.
//
// Rows are loaded from a YAML document that maps entity set names to lists
// of rows. A navigation property of a row holds the key of the related
// entity: a scalar for single-key targets, a mapping for composite keys, or
// a list of either for to-many relationships.
package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theoremus-urban-solutions/odata-core/edm"
	"github.com/theoremus-urban-solutions/odata-core/ep"
	"github.com/theoremus-urban-solutions/odata-core/odataerr"
	"github.com/theoremus-urban-solutions/odata-core/uriinfo"
)

type table struct {
	info  *ep.EntityInfo
	rows  []map[string]any
	index map[string]int
}

// Store is an immutable in-memory data set. A reload builds a new Store.
type Store struct {
	model  *edm.Edm
	tables map[*edm.EntitySet]*table
}

// New indexes data, keyed by entity set name as written in URIs. Every row
// must carry all key properties and keys must be unique within a set.
// Sets without data are empty.
func New(model *edm.Edm, data map[string][]map[string]any) (*Store, error) {
	s := &Store{model: model, tables: make(map[*edm.EntitySet]*table)}
	for _, c := range model.Containers {
		for _, set := range c.EntitySets {
			info, err := ep.NewEntityInfo(set)
			if err != nil {
				return nil, err
			}
			s.tables[set] = &table{info: info, index: make(map[string]int)}
		}
	}

	for name, rows := range data {
		set, err := model.EntitySet(name)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		t := s.tables[set]
		for i, row := range rows {
			key, err := rowKey(t.info, set.EntityType, row)
			if err != nil {
				return nil, fmt.Errorf("data: %s row %d: %w", name, i, err)
			}
			if _, dup := t.index[key]; dup {
				return nil, fmt.Errorf("data: %s row %d: duplicate key %s", name, i, key)
			}
			t.index[key] = len(t.rows)
			t.rows = append(t.rows, row)
		}
	}
	return s, nil
}

// Parse decodes a YAML data document.
func Parse(model *edm.Edm, doc []byte) (*Store, error) {
	var data map[string][]map[string]any
	if err := yaml.Unmarshal(doc, &data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return New(model, data)
}

// Load fetches the data document at source, a file path or an http(s) URL.
// An empty source yields an empty store.
func Load(ctx context.Context, model *edm.Edm, source string, timeout time.Duration) (*Store, error) {
	doc, err := newFetcher(timeout).fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return Parse(model, doc)
}

func (s *Store) table(set *edm.EntitySet) (*table, error) {
	t, ok := s.tables[set]
	if !ok {
		return nil, odataerr.New(http.StatusNotFound,
			odataerr.NewMessageReference(odataerr.KeyEntitySetNotFound).AddContent(set.Name))
	}
	return t, nil
}

// Rows returns the rows of set in document order.
func (s *Store) Rows(set *edm.EntitySet) ([]map[string]any, error) {
	t, err := s.table(set)
	if err != nil {
		return nil, err
	}
	return append([]map[string]any(nil), t.rows...), nil
}

// Count returns the number of rows of set.
func (s *Store) Count(set *edm.EntitySet) int {
	if t, ok := s.tables[set]; ok {
		return len(t.rows)
	}
	return 0
}

// Find returns the row of set addressed by keys. A missing row is a 404.
func (s *Store) Find(set *edm.EntitySet, keys []uriinfo.KeyPredicate) (map[string]any, error) {
	t, err := s.table(set)
	if err != nil {
		return nil, err
	}
	key := predicateKey(set.EntityType, keys)
	i, ok := t.index[key]
	if !ok {
		return nil, odataerr.New(http.StatusNotFound,
			odataerr.NewMessageReference(odataerr.KeyEntityNotFound).AddContent(set.Name, key))
	}
	return t.rows[i], nil
}

// Navigate returns the rows of the target set that row references through
// the navigation property nav. References to rows that do not exist are
// skipped.
func (s *Store) Navigate(set *edm.EntitySet, row map[string]any, nav string) ([]map[string]any, error) {
	np, ok := set.EntityType.NavigationProperty(nav)
	if !ok {
		return nil, odataerr.New(http.StatusNotFound,
			odataerr.NewMessageReference(odataerr.KeyNavigationNotFound).AddContent(nav, set.Name))
	}
	target, ok := set.Container.EntitySet(np.Target)
	if !ok {
		return nil, odataerr.New(http.StatusNotFound,
			odataerr.NewMessageReference(odataerr.KeyEntitySetNotFound).AddContent(np.Target))
	}
	t, err := s.table(target)
	if err != nil {
		return nil, err
	}

	var refs []any
	switch v := row[nav].(type) {
	case nil:
		return nil, nil
	case []any:
		refs = v
	default:
		refs = []any{v}
	}

	out := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		values, ok := ref.(map[string]any)
		if !ok {
			keys := target.EntityType.Keys
			if len(keys) != 1 {
				return nil, fmt.Errorf("%s.%s: composite key of %s needs a mapping", set.Name, nav, target.Name)
			}
			values = map[string]any{keys[0]: ref}
		}
		key, err := rowKey(t.info, target.EntityType, values)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", set.Name, nav, err)
		}
		if i, ok := t.index[key]; ok {
			out = append(out, t.rows[i])
		}
	}
	return out, nil
}

// rowKey is the canonical index key of the entity holding values.
func rowKey(info *ep.EntityInfo, typ *edm.EntityType, values map[string]any) (string, error) {
	view, err := info.View(values)
	if err != nil {
		return "", err
	}
	keys := view.KeyProperties()
	preds := make([]uriinfo.KeyPredicate, len(keys))
	for i, k := range keys {
		lit, err := url.PathUnescape(k.Literal)
		if err != nil {
			return "", err
		}
		preds[i] = uriinfo.KeyPredicate{Name: k.Name, Literal: lit}
	}
	return predicateKey(typ, preds), nil
}

// predicateKey joins decoded key literals in key order. Numeric type
// suffixes are optional in URIs and dropped here; guids compare without
// regard to case.
func predicateKey(typ *edm.EntityType, preds []uriinfo.KeyPredicate) string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		lit := p.Literal
		if prop, ok := typ.Property(p.Name); ok {
			switch prop.Type {
			case edm.Int64, edm.Decimal, edm.Double, edm.Single:
				lit = strings.TrimRight(lit, "LlMmDdFf")
			case edm.Guid:
				lit = strings.ToLower(lit)
			}
		}
		parts = append(parts, p.Name+"="+lit)
	}
	return strings.Join(parts, ",")
}
