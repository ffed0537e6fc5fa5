package vars

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

type segment struct {
	key     string
	index   int
	isIndex bool
}

// ExtractPath pulls a value out of an arbitrary JSON document using a
// $-rooted path such as "$.data.items[0].id". It returns (nil, false) for
// malformed paths, missing segments and indexing of non-containers; it never
// panics.
func ExtractPath(doc any, path string) (any, bool) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, false
	}
	return ExtractPathBytes(raw, path)
}

// ExtractPathBytes is ExtractPath over a raw JSON body, avoiding the
// re-marshal when the caller already holds bytes.
func ExtractPathBytes(raw []byte, path string) (any, bool) {
	segments, ok := parsePath(path)
	if !ok || !json.Valid(raw) {
		return nil, false
	}

	cur := gjson.ParseBytes(raw)
	for _, seg := range segments {
		if seg.isIndex {
			if !cur.IsArray() {
				return nil, false
			}
			arr := cur.Array()
			if seg.index >= len(arr) {
				return nil, false
			}
			cur = arr[seg.index]
		} else {
			if !cur.IsObject() {
				return nil, false
			}
			cur = cur.Get(escapeKey(seg.key))
			if !cur.Exists() {
				return nil, false
			}
		}
	}
	return cur.Value(), true
}

// parsePath splits a $-rooted path into key and index segments. Dots
// separate keys, [N] subscripts arrays; nothing else is recognized. "$"
// alone selects the whole document.
func parsePath(path string) ([]segment, bool) {
	path = strings.TrimSpace(path)
	if path == "" || path[0] != '$' {
		return nil, false
	}
	rest := path[1:]

	var segments []segment
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			var key string
			if end == -1 {
				key = rest
				rest = ""
			} else {
				key = rest[:end]
				rest = rest[end:]
			}
			if key == "" {
				return nil, false
			}
			segments = append(segments, segment{key: key})
		case '[':
			close := strings.IndexByte(rest, ']')
			if close == -1 {
				return nil, false
			}
			idx, err := strconv.Atoi(rest[1:close])
			if err != nil || idx < 0 {
				return nil, false
			}
			segments = append(segments, segment{index: idx, isIndex: true})
			rest = rest[close+1:]
		default:
			return nil, false
		}
	}
	return segments, true
}

// escapeKey neutralizes characters gjson would treat as query syntax, so a
// path segment always means a literal object key.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '*', '?', '#', '@', '|', '\\', '.':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
