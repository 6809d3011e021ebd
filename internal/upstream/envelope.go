package upstream

import (
	"encoding/json"
	"fmt"
	"io"
)

// ListPage is the normalized form of a collection response: the raw rows and
// the total row count the backend reported (or the row count itself when the
// backend reported none).
type ListPage struct {
	Rows  []json.RawMessage `json:"rows"`
	Total int               `json:"total"`
}

// listEnvelope covers the collection body shapes the backend produces. Which
// keys carry the rows and the count varies per endpoint, so all known spellings
// are declared and tried in priority order.
type listEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Results json.RawMessage `json:"results"`

	Count      *int `json:"count"`
	TotalItems *int `json:"total_items"`
	TotalCount *int `json:"total_count"`
	Total      *int `json:"total"`
}

// DecodeList normalizes a collection response body. Row extraction tries, in
// order: a top-level JSON array, "data", "results.data", then "results" as an
// array. The count tries "count", "total_items", "total_count", "total", and
// finally falls back to the number of rows decoded.
func DecodeList(r io.Reader) (ListPage, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return ListPage{}, fmt.Errorf("read list response: %w", err)
	}

	// A bare array carries no count, so the row count is the total.
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err == nil {
		return ListPage{Rows: rows, Total: len(rows)}, nil
	}

	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ListPage{}, fmt.Errorf("decode list envelope: %w", err)
	}

	rows, err = extractRows(envelope)
	if err != nil {
		return ListPage{}, err
	}

	total := len(rows)
	switch {
	case envelope.Count != nil:
		total = *envelope.Count
	case envelope.TotalItems != nil:
		total = *envelope.TotalItems
	case envelope.TotalCount != nil:
		total = *envelope.TotalCount
	case envelope.Total != nil:
		total = *envelope.Total
	}

	return ListPage{Rows: rows, Total: total}, nil
}

func extractRows(envelope listEnvelope) ([]json.RawMessage, error) {
	if len(envelope.Data) > 0 {
		var rows []json.RawMessage
		if err := json.Unmarshal(envelope.Data, &rows); err == nil {
			return rows, nil
		}
	}

	if len(envelope.Results) > 0 {
		// "results" is sometimes {"data": [...]} and sometimes a bare array.
		var nested struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(envelope.Results, &nested); err == nil && nested.Data != nil {
			return nested.Data, nil
		}

		var rows []json.RawMessage
		if err := json.Unmarshal(envelope.Results, &rows); err == nil {
			return rows, nil
		}
	}

	return nil, fmt.Errorf("list envelope carries no recognizable row set")
}

// DecodeObject normalizes a single-row response body into out. As with
// collections, some endpoints wrap the row under "data" and some return it
// bare; a non-null "data" member wins.
func DecodeObject(body []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil &&
		len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		body = envelope.Data
	}
	return json.Unmarshal(body, out)
}

// DecodeRows decodes the raw rows of a page into a typed slice.
func DecodeRows[T any](page ListPage) ([]T, error) {
	out := make([]T, 0, len(page.Rows))
	for i, raw := range page.Rows {
		var row T
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		out = append(out, row)
	}
	return out, nil
}
