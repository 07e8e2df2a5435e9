package model

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Cloner is implemented by items that know how to deep-copy themselves.
type Cloner interface {
	CloneItem() any
}

// Duplicate returns a deep copy of item.
//
// Items implementing Cloner are asked to copy themselves. Everything else is
// round-tripped through JSON into a fresh value of the same dynamic type, so
// a *Card comes back as a new *Card rather than a map. Unexported fields do
// not survive the round trip; implement Cloner for such types.
func Duplicate(item any) (any, error) {
	if item == nil {
		return nil, nil
	}
	if c, ok := item.(Cloner); ok {
		return c.CloneItem(), nil
	}

	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("model: duplicate %T: %w", item, err)
	}

	t := reflect.TypeOf(item)
	if t.Kind() == reflect.Pointer {
		fresh := reflect.New(t.Elem())
		if err := json.Unmarshal(data, fresh.Interface()); err != nil {
			return nil, fmt.Errorf("model: duplicate %T: %w", item, err)
		}
		return fresh.Interface(), nil
	}

	fresh := reflect.New(t)
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return nil, fmt.Errorf("model: duplicate %T: %w", item, err)
	}
	return fresh.Elem().Interface(), nil
}
