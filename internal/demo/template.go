package demo

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/fleetdesk/fleet-service/internal/models"
)

//go:embed template.json
var templateJSON []byte

// SeededResources lists the collections every new session starts with. The
// maintenance collections (spares, tires, accumulators) start empty.
var SeededResources = []models.ResourceType{
	models.ResourceCars,
	models.ResourceFuel,
	models.ResourceInsurances,
	models.ResourceInspections,
}

// templateCollections holds the encoded seed collection per resource type.
// Byte slices are never handed out, so every session decodes its own copy.
var templateCollections = mustSplitTemplate(templateJSON)

func mustSplitTemplate(data []byte) map[models.ResourceType][]byte {
	var raw map[models.ResourceType]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		panic(fmt.Sprintf("demo: invalid template dataset: %v", err))
	}

	out := make(map[models.ResourceType][]byte, len(SeededResources))
	for _, rt := range SeededResources {
		collection, ok := raw[rt]
		if !ok {
			panic(fmt.Sprintf("demo: template dataset has no %s collection", rt))
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, collection); err != nil {
			panic(fmt.Sprintf("demo: invalid %s collection: %v", rt, err))
		}
		out[rt] = compact.Bytes()
	}
	return out
}

// Template returns a fresh, independent copy of the seed dataset.
func Template() map[models.ResourceType][]models.Item {
	out := make(map[models.ResourceType][]models.Item, len(templateCollections))
	for rt, data := range templateCollections {
		items, err := models.DecodeItems(data)
		if err != nil {
			panic(fmt.Sprintf("demo: decode %s template: %v", rt, err))
		}
		out[rt] = items
	}
	return out
}

// templateCollection returns the encoded seed for rt as a new slice.
func templateCollection(rt models.ResourceType) []byte {
	return bytes.Clone(templateCollections[rt])
}
