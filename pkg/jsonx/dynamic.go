// Package jsonx reshapes JSON documents for vendors with narrower schema support.
package jsonx

import "github.com/goccy/go-json"

// ToDynamicJSON round trips val through JSON into a generic object.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Prune deletes the given keys from doc and from every object nested in it,
// including objects inside arrays. doc is modified in place and returned.
func Prune(doc map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		delete(doc, k)
	}
	for _, v := range doc {
		pruneValue(v, keys)
	}
	return doc
}

func pruneValue(v any, keys []string) {
	switch t := v.(type) {
	case map[string]any:
		Prune(t, keys...)
	case []any:
		for _, e := range t {
			pruneValue(e, keys)
		}
	}
}
