// Package itemlist encodes the line items of an order into the opaque text
// stored on the order row, and reads them back for display.
package itemlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformed is returned when a payload cannot be read as an item list.
var ErrMalformed = errors.New("malformed item list")

// Item is a single cart line as sent by the ordering UI.
type Item struct {
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Qty   int32           `json:"qty"`
}

// MarshalJSON writes the price as a JSON number so stored text matches what
// the ordering UI sends.
func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title string      `json:"title"`
		Price json.Number `json:"price"`
		Qty   int32       `json:"qty"`
	}{
		Title: it.Title,
		Price: json.Number(it.Price.String()),
		Qty:   it.Qty,
	})
}

// LineTotal returns price × qty.
func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt32(it.Qty))
}

// Parse reads a JSON array of items. A null or missing list yields no items.
func Parse(raw json.RawMessage) ([]Item, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []Item{}, nil
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Encode serializes items for storage.
func Encode(items []Item) (string, error) {
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	return string(b), nil
}

// Decode reads stored item text back into items.
func Decode(stored string) ([]Item, error) {
	return Parse(json.RawMessage(stored))
}

// Total sums the line totals of items.
func Total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Summary renders stored item text as a comma-joined list of titles. Text
// that is not a list of objects each carrying a string title is returned
// verbatim.
func Summary(stored string) string {
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stored), &entries); err != nil {
		return stored
	}
	titles := make([]string, 0, len(entries))
	for _, e := range entries {
		raw, ok := e["title"]
		if !ok {
			return stored
		}
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			return stored
		}
		titles = append(titles, title)
	}
	return strings.Join(titles, ", ")
}
