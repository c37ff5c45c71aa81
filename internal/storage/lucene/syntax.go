package lucene

import (
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/filter"
)

const specialChars = `\+-!():^[]"{}~*?|&/ `

// escape backslash-escapes Lucene syntax characters.
func escape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// value renders a term value. Text, dates and points are quoted.
func value(v any) string {
	switch x := v.(type) {
	case string:
		return quote(x)
	case time.Time:
		return quote(x.UTC().Format(time.RFC3339Nano))
	case filter.GeoPoint:
		return quote(x.String())
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return filter.FormatValue(x)
	}
}

// bound renders a range bound; date math is left for Solr to resolve.
func bound(v any) string {
	switch x := v.(type) {
	case nil:
		return "*"
	case filter.DateBound:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strings.Trim(filter.FormatValue(x), `"`)
	}
}

func number(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// localParams renders {!k=v ...} keeping the given key order. Empty values are skipped.
func localParams(kv ...string) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		parts = append(parts, kv[i]+"="+localValue(kv[i+1]))
	}
	if len(parts) == 0 {
		return ""
	}
	return "{!" + strings.Join(parts, " ") + "}"
}

func localValue(s string) string {
	if !strings.ContainsAny(s, " '\"{}") {
		return s
	}
	return "'" + strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s) + "'"
}
