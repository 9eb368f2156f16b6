package ep

import (
	"encoding/json"
	"io"
	"strconv"
)

type jsonURI struct {
	URI string `json:"uri"`
}

type jsonLinks struct {
	Results []jsonURI `json:"results"`
	Count   string    `json:"__count,omitempty"`
}

type jsonEnvelope struct {
	D any `json:"d"`
}

// WriteJSONLink writes the link of row as {"d":{"uri":...}}.
func WriteJSONLink(sink io.Writer, info *EntityInfo, row map[string]any, props Properties) error {
	view, err := info.View(row)
	if err != nil {
		return err
	}
	return writeJSON(sink, jsonEnvelope{D: jsonURI{URI: props.absolute(view.URI())}})
}

// WriteJSONLinks writes the links of rows as {"d":{"results":[...]}} with the
// inline count, when set, as a string in "__count".
func WriteJSONLinks(sink io.Writer, info *EntityInfo, rows []map[string]any, props Properties) error {
	links := jsonLinks{Results: make([]jsonURI, 0, len(rows))}
	for _, row := range rows {
		view, err := info.View(row)
		if err != nil {
			return err
		}
		links.Results = append(links.Results, jsonURI{URI: props.absolute(view.URI())})
	}
	if props.InlineCount != nil {
		links.Count = strconv.Itoa(*props.InlineCount)
	}
	return writeJSON(sink, jsonEnvelope{D: links})
}

func writeJSON(sink io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return commonError(err)
	}
	if _, err := sink.Write(b); err != nil {
		return commonError(err)
	}
	return nil
}
