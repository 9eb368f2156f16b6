// Package servicedocument models the OData service document: the ordered
// list of entity sets a service exposes plus optional Atom workspace data.
//
// A ServiceDocument is assembled with a Builder and never changes after
// Build returns. Holder publishes the current document to request handlers.
package servicedocument

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/theoremus-urban-solutions/odata-core/edm"
)

// DefaultWorkspaceTitle names the workspace FromEdm creates.
const DefaultWorkspaceTitle = "Default"

// Title is an atom:title element.
type Title struct {
	Text string
	// Type is the atom text construct type ("text", "html"); empty omits it.
	Type string
}

// Collection is an app:collection of a workspace.
type Collection struct {
	Href  string
	Title Title
}

// Workspace is an app:workspace.
type Workspace struct {
	Title       Title
	Collections []Collection
}

// AtomInfo is the Atom-specific part of a service document.
type AtomInfo struct {
	Workspaces []Workspace
}

func (a AtomInfo) clone() AtomInfo {
	out := AtomInfo{Workspaces: make([]Workspace, len(a.Workspaces))}
	for i, ws := range a.Workspaces {
		out.Workspaces[i] = Workspace{
			Title:       ws.Title,
			Collections: append([]Collection(nil), ws.Collections...),
		}
	}
	return out
}

// ServiceDocument is an immutable service document.
type ServiceDocument struct {
	entitySets []edm.EntitySetInfo
	atom       *AtomInfo
}

// EntitySetsInfo returns the entity sets in declaration order. The slice is
// a copy.
func (d *ServiceDocument) EntitySetsInfo() []edm.EntitySetInfo {
	return append([]edm.EntitySetInfo(nil), d.entitySets...)
}

// AtomInfo returns the Atom workspace data, if any.
func (d *ServiceDocument) AtomInfo() (AtomInfo, bool) {
	if d.atom == nil {
		return AtomInfo{}, false
	}
	return d.atom.clone(), true
}

// Builder assembles a ServiceDocument. It is not safe for concurrent use.
type Builder struct {
	entitySets []edm.EntitySetInfo
	atom       *AtomInfo
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetEntitySetsInfo sets the entity sets, replacing earlier calls.
func (b *Builder) SetEntitySetsInfo(infos []edm.EntitySetInfo) *Builder {
	b.entitySets = append([]edm.EntitySetInfo(nil), infos...)
	return b
}

// SetAtomInfo sets the Atom workspace data.
func (b *Builder) SetAtomInfo(info AtomInfo) *Builder {
	c := info.clone()
	b.atom = &c
	return b
}

// Build validates the collected data and freezes it into a document.
func (b *Builder) Build() (*ServiceDocument, error) {
	seen := make(map[string]bool, len(b.entitySets))
	for i, info := range b.entitySets {
		if info.EntitySetName == "" {
			return nil, fmt.Errorf("entity set %d has no name", i)
		}
		href := info.Href()
		if seen[href] {
			return nil, fmt.Errorf("duplicate entity set %q", href)
		}
		seen[href] = true
	}

	doc := &ServiceDocument{entitySets: append([]edm.EntitySetInfo(nil), b.entitySets...)}
	if b.atom != nil {
		for _, ws := range b.atom.Workspaces {
			for _, c := range ws.Collections {
				if c.Href == "" {
					return nil, fmt.Errorf("workspace %q has a collection without href", ws.Title.Text)
				}
			}
		}
		c := b.atom.clone()
		doc.atom = &c
	}
	return doc, nil
}

// FromEdm builds the document of model with one workspace holding every
// entity set.
func FromEdm(model *edm.Edm, title string) (*ServiceDocument, error) {
	if model == nil {
		return nil, errors.New("nil entity data model")
	}
	if title == "" {
		title = DefaultWorkspaceTitle
	}

	infos := model.EntitySetInfos()
	ws := Workspace{Title: Title{Text: title, Type: "text"}}
	for _, info := range infos {
		ws.Collections = append(ws.Collections, Collection{
			Href:  info.Href(),
			Title: Title{Text: info.EntitySetName, Type: "text"},
		})
	}
	return NewBuilder().
		SetEntitySetsInfo(infos).
		SetAtomInfo(AtomInfo{Workspaces: []Workspace{ws}}).
		Build()
}

// Holder publishes the current document. Readers never observe a partly
// built document; a metadata reload stores a new one.
type Holder struct {
	doc atomic.Pointer[ServiceDocument]
}

// NewHolder returns a holder publishing doc.
func NewHolder(doc *ServiceDocument) *Holder {
	h := &Holder{}
	h.Store(doc)
	return h
}

// Load returns the current document, or nil before the first Store.
func (h *Holder) Load() *ServiceDocument {
	return h.doc.Load()
}

// Store publishes doc.
func (h *Holder) Store(doc *ServiceDocument) {
	h.doc.Store(doc)
}
