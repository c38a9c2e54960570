package sdk

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// DeserializeProviderConfig materializes a provider's typed configuration
// from the profile's stored payload. The provider's schema prototype is
// cloned so that concurrent runs never share a config instance. Returns nil
// when the provider declares no schema.
func DeserializeProviderConfig(p Provider, payload string) (interface{}, error) {
	proto := p.ConfigSchema()
	if proto == nil {
		return nil, nil
	}
	t := reflect.TypeOf(proto)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	cfg := reflect.New(t).Interface()
	if payload == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(payload), cfg); err != nil {
		return nil, fmt.Errorf("error parsing provider config for %s: %w", p.SystemName(), err)
	}
	return cfg, nil
}
