package edm

import (
	"fmt"
	"strings"
)

// Property is a simple property of an entity type.
type Property struct {
	Name     string
	Type     SimpleType
	Nullable bool
}

// NavigationProperty relates an entity type to another entity set.
type NavigationProperty struct {
	Name string
	// Target is the name of the related entity set in the same container.
	Target string
	// Many is true for a to-many relationship.
	Many bool
}

// EntityType describes the structure of the entities in a set.
type EntityType struct {
	Namespace  string
	Name       string
	Properties []Property
	// Keys lists the key property names in declaration order.
	Keys       []string
	Navigation []NavigationProperty
}

// FullName returns Namespace.Name.
func (t *EntityType) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Property returns the property called name.
func (t *EntityType) Property(name string) (Property, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// KeyProperties returns the key properties in key order.
func (t *EntityType) KeyProperties() []Property {
	out := make([]Property, 0, len(t.Keys))
	for _, k := range t.Keys {
		if p, ok := t.Property(k); ok {
			out = append(out, p)
		}
	}
	return out
}

// NavigationProperty returns the navigation property called name.
func (t *EntityType) NavigationProperty(name string) (NavigationProperty, bool) {
	for _, n := range t.Navigation {
		if n.Name == name {
			return n, true
		}
	}
	return NavigationProperty{}, false
}

// EntitySet is a named collection of entities of one type.
type EntitySet struct {
	Name       string
	EntityType *EntityType
	Container  *EntityContainer
}

// EntityContainer groups entity sets. One container of a model is the
// default; sets of other containers are addressed as Container.Set.
type EntityContainer struct {
	Name       string
	IsDefault  bool
	EntitySets []*EntitySet
}

// EntitySet returns the set called name.
func (c *EntityContainer) EntitySet(name string) (*EntitySet, bool) {
	for _, s := range c.EntitySets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// EntitySetInfo is the service-document view of an entity set.
type EntitySetInfo struct {
	EntityContainerName      string
	EntitySetName            string
	IsDefaultEntityContainer bool
}

// Href returns the relative URI of the set.
func (i EntitySetInfo) Href() string {
	if i.IsDefaultEntityContainer || i.EntityContainerName == "" {
		return i.EntitySetName
	}
	return i.EntityContainerName + "." + i.EntitySetName
}

// Edm is a read-only entity data model. Containers and sets keep their
// declaration order.
type Edm struct {
	Containers []*EntityContainer
}

// DefaultContainer returns the default container, or the first one.
func (e *Edm) DefaultContainer() *EntityContainer {
	for _, c := range e.Containers {
		if c.IsDefault {
			return c
		}
	}
	if len(e.Containers) > 0 {
		return e.Containers[0]
	}
	return nil
}

// EntitySet resolves "Set" in the default container or "Container.Set".
func (e *Edm) EntitySet(name string) (*EntitySet, error) {
	for _, c := range e.Containers {
		if !c.IsDefault {
			if rest, ok := strings.CutPrefix(name, c.Name+"."); ok {
				if s, ok := c.EntitySet(rest); ok {
					return s, nil
				}
			}
			continue
		}
		if s, ok := c.EntitySet(name); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("entity set %q not found", name)
}

// EntitySetInfos lists all entity sets in declaration order.
func (e *Edm) EntitySetInfos() []EntitySetInfo {
	var out []EntitySetInfo
	for _, c := range e.Containers {
		for _, s := range c.EntitySets {
			out = append(out, EntitySetInfo{
				EntityContainerName:      c.Name,
				EntitySetName:            s.Name,
				IsDefaultEntityContainer: c.IsDefault,
			})
		}
	}
	return out
}
