package es

import (
	"sort"
)

// Reserved document fields.
const (
	IDField   = "id"
	TypeField = "_type_"
	JoinField = "_join_"
)

// codecTemplate maps every physical name carrying bucket to one property type.
type codecTemplate struct {
	name    string
	pattern string
	mapping map[string]any
}

const prefix = `^dynamic_(single|multi)_(stored_)?`

var codecTemplates = []codecTemplate{
	{"keywords", prefix + `(facet_|sort_|filter_)string_.+`, map[string]any{"type": "keyword"}},
	{"suggest", prefix + `suggest_analyzed_.+`, map[string]any{"type": "search_as_you_type"}},
	{"text", prefix + `string_.+`, map[string]any{
		"type":   "text",
		"fields": map[string]any{"keyword": map[string]any{"type": "keyword", "ignore_above": 256}},
	}},
	{"dates", prefix + `(facet_|sort_|filter_)?date_.+`, map[string]any{"type": "date"}},
	{"ints", prefix + `(facet_|sort_|filter_)?int_.+`, map[string]any{"type": "integer"}},
	{"longs", prefix + `(facet_|sort_|filter_)?long_.+`, map[string]any{"type": "long"}},
	{"numbers", prefix + `(facet_|sort_|filter_)?number_.+`, map[string]any{"type": "double"}},
	{"bools", prefix + `(facet_|sort_|filter_)?bool_.+`, map[string]any{"type": "boolean"}},
	{"binaries", prefix + `binary_.+`, map[string]any{"type": "binary"}},
	{"locations", prefix + `(facet_|filter_)?location_.+`, map[string]any{"type": "geo_point"}},
}

// IndexBody is the create-index request: codec-keyed dynamic templates plus
// the reserved fields. relations maps parent types to child types.
func IndexBody(relations map[string][]string) map[string]any {
	templates := make([]map[string]any, 0, len(codecTemplates))
	for _, t := range codecTemplates {
		templates = append(templates, map[string]any{
			t.name: map[string]any{
				"match_pattern": "regex",
				"match":         t.pattern,
				"mapping":       t.mapping,
			},
		})
	}

	props := map[string]any{
		IDField:   map[string]any{"type": "keyword"},
		TypeField: map[string]any{"type": "keyword"},
	}
	if len(relations) > 0 {
		rel := make(map[string]any, len(relations))
		for parent, children := range relations {
			sorted := append([]string(nil), children...)
			sort.Strings(sorted)
			if len(sorted) == 1 {
				rel[parent] = sorted[0]
			} else {
				rel[parent] = sorted
			}
		}
		props[JoinField] = map[string]any{"type": "join", "relations": rel}
	}

	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"default": map[string]any{"type": "standard", "stopwords": "_none_"},
				},
			},
		},
		"mappings": map[string]any{
			"dynamic_templates": templates,
			"properties":        props,
		},
	}
}
