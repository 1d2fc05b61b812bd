package config

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
)

// boolWord reports whether s spells a boolean.
func boolWord(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// stringOrBool decodes a raw string-or-bool value. A nil raw yields def.
func stringOrBool(key string, raw any, def bool) (flag bool, text string, err error) {
	switch v := raw.(type) {
	case nil:
		return def, "", nil
	case bool:
		return v, "", nil
	case string:
		if b, ok := boolWord(v); ok {
			return b, "", nil
		}
		if strings.TrimSpace(v) == "" {
			return false, "", fmt.Errorf(messages.ConfigEmptyValueFmt, key)
		}
		return true, v, nil
	default:
		return false, "", fmt.Errorf(messages.ConfigUnionTypeFmt, key, "a boolean or a string", raw)
	}
}

// listOrBool decodes a raw list-or-bool value. A nil raw yields def.
func listOrBool(key string, raw any, def bool) (flag bool, list []string, err error) {
	switch v := raw.(type) {
	case nil:
		return def, nil, nil
	case bool:
		return v, nil, nil
	case string:
		if b, ok := boolWord(v); ok {
			return b, nil, nil
		}
		return true, patterns.FromLines(v), nil
	case []string:
		return true, v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return false, nil, fmt.Errorf(messages.ConfigUnionTypeFmt, key, "a list of strings", raw)
			}
			out = append(out, s)
		}
		return true, out, nil
	default:
		return false, nil, fmt.Errorf(messages.ConfigUnionTypeFmt, key, "a boolean or a list of strings", raw)
	}
}

// patternEntries decodes a raw pattern map. A plain string applies to every
// crate; tables are ordered by pattern since decoders lose key order; lists
// of {pattern, template} entries keep their order.
func patternEntries(key string, raw any, def string) ([]patterns.Entry, error) {
	switch v := raw.(type) {
	case nil:
		return []patterns.Entry{{Pattern: "*", Template: def}}, nil
	case string:
		return []patterns.Entry{{Pattern: "*", Template: v}}, nil
	case []patterns.Entry:
		return v, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]patterns.Entry, 0, len(keys))
		for _, k := range keys {
			s, ok := v[k].(string)
			if !ok {
				return nil, fmt.Errorf(messages.ConfigUnionTypeFmt, key+"."+k, "a string", v[k])
			}
			out = append(out, patterns.Entry{Pattern: k, Template: s})
		}
		return out, nil
	case []any:
		out := make([]patterns.Entry, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf(messages.ConfigPatternEntryFmt, key, i)
			}
			p, pok := m["pattern"].(string)
			t, tok := m["template"].(string)
			if !pok || !tok || len(m) != 2 {
				return nil, fmt.Errorf(messages.ConfigPatternEntryFmt, key, i)
			}
			out = append(out, patterns.Entry{Pattern: p, Template: t})
		}
		return out, nil
	default:
		return nil, fmt.Errorf(messages.ConfigUnionTypeFmt, key, "a string, a table, or a list of entries", raw)
	}
}

// parsePatternMapInput reads an action input as a JSON object of pattern to
// template, keeping declaration order. Anything else is a single template.
func parsePatternMapInput(s string) any {
	if entries, ok := orderedJSONObject(s); ok {
		return entries
	}
	return s
}

func orderedJSONObject(s string) ([]patterns.Entry, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}
	entries := []patterns.Entry{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, false
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		entries = append(entries, patterns.Entry{Pattern: key, Template: value})
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return entries, true
}
