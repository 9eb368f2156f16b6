package ep

import (
	"io"

	"github.com/theoremus-urban-solutions/odata-core/servicedocument"
)

// WriteServiceDocument writes doc as an Atom publishing service document.
// Without Atom info a single default workspace lists every entity set.
func WriteServiceDocument(sink io.Writer, doc *servicedocument.ServiceDocument, props Properties) error {
	w := NewXMLWriter(sink)
	w.Declaration()

	attrs := []string{"xmlns", NamespaceApp, "xmlns:" + prefixAtom, NamespaceAtom}
	if props.ServiceRoot != "" {
		attrs = append(attrs, "xml:base", props.ServiceRoot)
	}
	w.StartElement("service", attrs...)

	atom, ok := doc.AtomInfo()
	if !ok {
		ws := servicedocument.Workspace{Title: servicedocument.Title{Text: servicedocument.DefaultWorkspaceTitle}}
		for _, info := range doc.EntitySetsInfo() {
			ws.Collections = append(ws.Collections, servicedocument.Collection{
				Href:  info.Href(),
				Title: servicedocument.Title{Text: info.EntitySetName},
			})
		}
		atom.Workspaces = []servicedocument.Workspace{ws}
	}
	for _, ws := range atom.Workspaces {
		w.StartElement("workspace")
		writeAtomTitle(w, ws.Title)
		for _, c := range ws.Collections {
			w.StartElement("collection", "href", c.Href)
			writeAtomTitle(w, c.Title)
			w.EndElement("collection")
		}
		w.EndElement("workspace")
	}

	w.EndElement("service")
	return commonError(w.Flush())
}

func writeAtomTitle(w *XMLWriter, t servicedocument.Title) {
	name := prefixAtom + ":title"
	if t.Type != "" {
		w.Element(name, t.Text, "type", t.Type)
		return
	}
	w.Element(name, t.Text)
}

type jsonServiceDocument struct {
	EntitySets []string `json:"EntitySets"`
}

// WriteJSONServiceDocument writes doc as {"d":{"EntitySets":[...]}}.
func WriteJSONServiceDocument(sink io.Writer, doc *servicedocument.ServiceDocument) error {
	infos := doc.EntitySetsInfo()
	sets := make([]string, len(infos))
	for i, info := range infos {
		sets[i] = info.Href()
	}
	return writeJSON(sink, jsonEnvelope{D: jsonServiceDocument{EntitySets: sets}})
}
