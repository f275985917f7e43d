// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package validate

import (
	"net/url"
	"sort"
	"strings"
)

// DecodeValues turns form or query values into a generic document.
//
// Keys use bracket syntax: "a[b]=1" becomes {"a": {"b": "1"}} and
// "a[]=1&a[]=2" becomes {"a": ["1", "2"]}. A key given more than once
// becomes an array. Keys are applied in sorted order, so when a plain key
// and a bracketed key collide the nested shape wins.
func DecodeValues(values url.Values) map[string]any {
	doc := make(map[string]any, len(values))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := values[key]
		if len(vals) == 0 {
			continue
		}
		path := splitKey(key)
		for _, v := range vals {
			insert(doc, path, v, len(vals) > 1)
		}
	}
	return doc
}

// splitKey splits "a[b][c]" into ["a", "b", "c"]. Malformed keys are
// returned whole.
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}

	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path
}

func insert(doc map[string]any, path []string, value string, repeated bool) {
	node := doc
	for i, seg := range path {
		last := i == len(path)-1
		nextIsAppend := !last && path[i+1] == "" && i+1 == len(path)-1

		switch {
		case nextIsAppend:
			arr, _ := node[seg].([]any)
			node[seg] = append(arr, value)
			return
		case last:
			if repeated {
				arr, _ := node[seg].([]any)
				node[seg] = append(arr, value)
				return
			}
			node[seg] = value
			return
		default:
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[seg] = child
			}
			node = child
		}
	}
}
