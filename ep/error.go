package ep

import (
	"io"
)

// ErrorInfo is the content of an OData error document.
type ErrorInfo struct {
	Code    string
	Message string
	// Lang is the language tag of Message, e.g. "en".
	Lang string
}

// WriteError writes info as an OData XML error document.
func WriteError(sink io.Writer, info ErrorInfo) error {
	w := NewXMLWriter(sink)
	w.Declaration()
	w.StartElement("error", "xmlns", NamespaceMetadata)
	w.Element("code", info.Code)
	w.Element("message", info.Message, "xml:lang", info.Lang)
	w.EndElement("error")
	return commonError(w.Flush())
}

type jsonErrorMessage struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type jsonErrorBody struct {
	Code    string           `json:"code"`
	Message jsonErrorMessage `json:"message"`
}

type jsonError struct {
	Error jsonErrorBody `json:"error"`
}

// WriteJSONError writes info as {"error":{"code":...,"message":{"lang":...,"value":...}}}.
func WriteJSONError(sink io.Writer, info ErrorInfo) error {
	return writeJSON(sink, jsonError{Error: jsonErrorBody{
		Code:    info.Code,
		Message: jsonErrorMessage{Lang: info.Lang, Value: info.Message},
	}})
}
