package sdk

import "encoding/json"

// Record is the provider facing representation of a converted entity. Side
// data prefetched for the entity's page is attached under nested keys.
type Record map[string]interface{}

// EntityID returns the exported entity's id or 0 if the record has none
func (r Record) EntityID() int {
	switch v := r["id"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Stringify returns the record as a JSON string
func (r Record) Stringify() string {
	buf, _ := json.Marshal(r)
	return string(buf)
}
