package ep

import (
	"io"
	"strconv"
)

const (
	elementLinks = "links"
	elementCount = prefixMetadata + ":count"
)

// XMLLinksProvider writes a collection of entity links.
type XMLLinksProvider struct {
	props Properties
}

// NewXMLLinksProvider returns a links provider using props.
func NewXMLLinksProvider(props Properties) *XMLLinksProvider {
	return &XMLLinksProvider{props: props}
}

// Append writes a links element with one uri child per row, in row order.
// When an inline count is set it is written first. The writer is flushed
// once at the end; any failure leaves partial output that must be discarded.
func (p *XMLLinksProvider) Append(w *XMLWriter, info *EntityInfo, rows []map[string]any) error {
	w.StartElement(elementLinks, "xmlns", NamespaceData)
	if p.props.InlineCount != nil {
		w.Element(elementCount, strconv.Itoa(*p.props.InlineCount), "xmlns:"+prefixMetadata, NamespaceMetadata)
	}

	link := NewXMLLinkProvider(p.props)
	for _, row := range rows {
		if err := link.Append(w, info, row, false); err != nil {
			return err
		}
	}
	w.EndElement(elementLinks)
	return commonError(w.Flush())
}

// WriteLinks writes a complete XML document holding the links of rows.
func WriteLinks(sink io.Writer, info *EntityInfo, rows []map[string]any, props Properties) error {
	w := NewXMLWriter(sink)
	w.Declaration()
	return NewXMLLinksProvider(props).Append(w, info, rows)
}
