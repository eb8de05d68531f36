package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ResourceType names one of the fleet data collections.
type ResourceType string

const (
	ResourceCars        ResourceType = "cars"
	ResourceFuel        ResourceType = "fuel"
	ResourceInsurances  ResourceType = "insurances"
	ResourceInspections ResourceType = "inspections"

	ResourceSpares       ResourceType = "spares"
	ResourceTires        ResourceType = "tires"
	ResourceAccumulators ResourceType = "accumulators"
)

// ResourceTypes lists every collection in a stable order.
var ResourceTypes = []ResourceType{
	ResourceCars, ResourceFuel, ResourceInsurances, ResourceInspections,
	ResourceSpares, ResourceTires, ResourceAccumulators,
}

// ParseResourceType validates a raw resource name.
func ParseResourceType(raw string) (ResourceType, error) {
	for _, rt := range ResourceTypes {
		if string(rt) == raw {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown resource type %q", raw)
}

// Item is a single JSON object of a collection. Every item carries an integer
// "id" field; all other fields are passed through as received.
type Item map[string]any

// ID returns the item's integer id and whether it holds one.
func (i Item) ID() (int64, bool) {
	switch v := i["id"].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), v == float64(int64(v))
	case json.Number:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// WithID returns a copy of fields with "id" set to id.
// Any id supplied by the caller is overwritten.
func WithID(id int64, fields map[string]any) Item {
	item := make(Item, len(fields)+1)
	for k, v := range fields {
		item[k] = v
	}
	item["id"] = id
	return item
}

// DecodeItems parses a JSON array of objects, keeping numbers as json.Number so
// values round-trip without float conversion.
func DecodeItems(data []byte) ([]Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []Item
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// DecodeItem converts a generic item into a typed record.
func DecodeItem[T any](item Item) (T, error) {
	var out T
	data, err := json.Marshal(item)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// ItemPage is one page of a collection as returned by the list endpoint.
type ItemPage struct {
	Results  []Item `json:"results"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}
