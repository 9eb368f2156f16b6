package ep

import (
	"errors"
	"io"

	"github.com/theoremus-urban-solutions/odata-core/odataerr"
)

const elementURI = "uri"

// XMLLinkProvider writes the link of a single entity.
type XMLLinkProvider struct {
	props Properties
}

// NewXMLLinkProvider returns a link provider using props.
func NewXMLLinkProvider(props Properties) *XMLLinkProvider {
	return &XMLLinkProvider{props: props}
}

// Append writes the uri element of row. A root element declares the data
// namespace itself; inside a links collection the element is written bare
// and inherits the namespace of its parent.
func (p *XMLLinkProvider) Append(w *XMLWriter, info *EntityInfo, row map[string]any, root bool) error {
	view, err := info.View(row)
	if err != nil {
		return err
	}
	if root {
		w.StartElement(elementURI, "xmlns", NamespaceData)
	} else {
		w.StartElement(elementURI)
	}
	w.Characters(p.props.absolute(view.URI()))
	w.EndElement(elementURI)
	return commonError(w.Err())
}

// WriteLink writes a complete XML document holding the link of row.
func WriteLink(sink io.Writer, info *EntityInfo, row map[string]any, props Properties) error {
	w := NewXMLWriter(sink)
	w.Declaration()
	if err := NewXMLLinkProvider(props).Append(w, info, row, true); err != nil {
		return err
	}
	return commonError(w.Flush())
}

// commonError wraps a sink failure. Errors that already carry a kind pass
// through unchanged.
func commonError(err error) error {
	if err == nil {
		return nil
	}
	var serr *odataerr.SerializationError
	if errors.As(err, &serr) {
		return err
	}
	return odataerr.NewSerializationError(odataerr.KindCommon, err)
}
