package ep

import (
	"bufio"
	"io"
	"net/http"
	"strings"
)

// XML namespaces written by the providers.
const (
	NamespaceData     = "http://schemas.microsoft.com/ado/2007/08/dataservices"
	NamespaceMetadata = "http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
	NamespaceApp      = "http://www.w3.org/2007/app"
	NamespaceAtom     = "http://www.w3.org/2005/Atom"
	NamespaceXML      = "http://www.w3.org/XML/1998/namespace"

	prefixMetadata = "m"
	prefixAtom     = "atom"

	xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>`
)

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}

// XMLWriter streams markup to a sink. The first write error sticks and turns
// later calls into no-ops, so callers check Err or Flush once at the end.
type XMLWriter struct {
	sink io.Writer
	buf  *bufio.Writer
	err  error
}

// NewXMLWriter returns a writer buffering into sink.
func NewXMLWriter(sink io.Writer) *XMLWriter {
	return &XMLWriter{sink: sink, buf: bufio.NewWriter(sink)}
}

func (x *XMLWriter) raw(s string) {
	if x.err != nil {
		return
	}
	_, x.err = x.buf.WriteString(s)
}

// Declaration writes the XML declaration.
func (x *XMLWriter) Declaration() {
	x.raw(xmlDeclaration)
}

// StartElement writes an opening tag. attrs are name/value pairs; values are
// escaped.
func (x *XMLWriter) StartElement(name string, attrs ...string) {
	x.raw("<" + name)
	x.attributes(attrs)
	x.raw(">")
}

// EndElement writes a closing tag.
func (x *XMLWriter) EndElement(name string) {
	x.raw("</" + name + ">")
}

// Characters writes escaped text content.
func (x *XMLWriter) Characters(text string) {
	x.raw(xmlEscape(text))
}

// Element writes a complete element with text content.
func (x *XMLWriter) Element(name, text string, attrs ...string) {
	x.StartElement(name, attrs...)
	x.Characters(text)
	x.EndElement(name)
}

func (x *XMLWriter) attributes(attrs []string) {
	for i := 0; i+1 < len(attrs); i += 2 {
		x.raw(" " + attrs[i] + `="` + xmlEscape(attrs[i+1]) + `"`)
	}
}

// Err returns the first write error.
func (x *XMLWriter) Err() error {
	return x.err
}

// Flush pushes buffered output to the sink and flushes the sink itself when
// it supports flushing.
func (x *XMLWriter) Flush() error {
	if x.err != nil {
		return x.err
	}
	if x.err = x.buf.Flush(); x.err != nil {
		return x.err
	}
	switch f := x.sink.(type) {
	case interface{ Flush() error }:
		x.err = f.Flush()
	case http.Flusher:
		f.Flush()
	}
	return x.err
}
