package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/storage"
)

// Dialect renders the JSON access a backend needs. Documents live in one
// table; fields holds a JSON object of physical name to array of values.
// Element expressions take the alias of a row produced by Elements.
type Dialect interface {
	Backend() storage.Type
	Placeholders() PlaceholderStyle
	// Elements is a FROM item yielding one row per value of field on the
	// document row doc.
	Elements(b *Builder, doc, field, alias string) string
	// Lateral joins Elements to a preceding FROM item.
	Lateral() string
	Text(alias string) string
	Number(alias string) string
	Time(alias string) string
	TimeArg(b *Builder, t time.Time) string
	Lat(alias string) string
	Lon(alias string) string
	// Has reports whether doc has any value for field.
	Has(b *Builder, doc, field string) string
	HasPrefix(b *Builder, expr, prefix string) string
	// Contains is a case-insensitive substring match.
	Contains(b *Builder, expr, s string) string
	// Distance renders the great-circle distance in km from expr to a point,
	// ok is false when the backend cannot compute it.
	Distance(b *Builder, alias string, lat, lon float64) (string, bool)
	// JSONArg binds an encoded fields object.
	JSONArg(b *Builder, fields string) string
	// Upsert inserts or replaces one document row.
	Upsert(b *Builder, id, docType, parentID, fields string) string
	DDL() string
}

const earthRadiusKm = 6371.0088

type Postgres struct{}

func (Postgres) Backend() storage.Type           { return storage.PG }
func (Postgres) Placeholders() PlaceholderStyle { return PlaceholderDollar }

func (Postgres) Elements(b *Builder, doc, field, alias string) string {
	return fmt.Sprintf("jsonb_array_elements(COALESCE(%s.fields -> %s, '[]'::jsonb)) AS %s(value)", doc, b.Arg(field), alias)
}

func (Postgres) Lateral() string { return "CROSS JOIN LATERAL" }

func (Postgres) Text(alias string) string   { return fmt.Sprintf("(%s.value #>> '{}')", alias) }
func (Postgres) Number(alias string) string { return fmt.Sprintf("(%s.value #>> '{}')::double precision", alias) }
func (Postgres) Time(alias string) string   { return fmt.Sprintf("(%s.value #>> '{}')::timestamptz", alias) }

func (Postgres) TimeArg(b *Builder, t time.Time) string { return b.Arg(t.UTC()) + "::timestamptz" }

func (Postgres) Lat(alias string) string {
	return fmt.Sprintf("split_part(%s.value #>> '{}', ',', 1)::double precision", alias)
}

func (Postgres) Lon(alias string) string {
	return fmt.Sprintf("split_part(%s.value #>> '{}', ',', 2)::double precision", alias)
}

func (Postgres) Has(b *Builder, doc, field string) string {
	return fmt.Sprintf("(%s.fields ? %s)", doc, b.Arg(field))
}

func (Postgres) HasPrefix(b *Builder, expr, prefix string) string {
	return fmt.Sprintf("starts_with(%s, %s)", expr, b.Arg(prefix))
}

func (Postgres) Contains(b *Builder, expr, s string) string {
	return fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, expr, b.Arg(likePattern(s)))
}

func (p Postgres) Distance(b *Builder, alias string, lat, lon float64) (string, bool) {
	la, lo := p.Lat(alias), p.Lon(alias)
	return fmt.Sprintf(
		"2 * %s * asin(least(1, sqrt(power(sin(radians(%s - %s) / 2), 2) + cos(radians(%s)) * cos(radians(%s)) * power(sin(radians(%s - %s) / 2), 2))))",
		strconv.FormatFloat(earthRadiusKm, 'f', -1, 64),
		la, b.Arg(lat), b.Arg(lat), la, lo, b.Arg(lon),
	), true
}

func (Postgres) JSONArg(b *Builder, fields string) string { return b.Arg(fields) + "::jsonb" }

func (p Postgres) Upsert(b *Builder, id, docType, parentID, fields string) string {
	return fmt.Sprintf(
		`INSERT INTO documents (id, doc_type, parent_id, fields) VALUES (%s, %s, %s, %s)
ON CONFLICT (id) DO UPDATE SET doc_type = EXCLUDED.doc_type, parent_id = EXCLUDED.parent_id, fields = EXCLUDED.fields`,
		b.Arg(id), b.Arg(docType), b.Arg(nullable(parentID)), p.JSONArg(b, fields),
	)
}

func (Postgres) DDL() string { return postgresDDL }

type SQLite struct{}

func (SQLite) Backend() storage.Type           { return storage.SQLite }
func (SQLite) Placeholders() PlaceholderStyle { return PlaceholderQuestion }

func (SQLite) Elements(b *Builder, doc, field, alias string) string {
	return fmt.Sprintf("json_each(%s.fields, %s) AS %s", doc, b.Arg(jsonPath(field)), alias)
}

func (SQLite) Lateral() string { return "CROSS JOIN" }

func (SQLite) Text(alias string) string   { return alias + ".value" }
func (SQLite) Number(alias string) string { return fmt.Sprintf("CAST(%s.value AS REAL)", alias) }
func (SQLite) Time(alias string) string   { return fmt.Sprintf("julianday(%s.value)", alias) }

func (SQLite) TimeArg(b *Builder, t time.Time) string {
	return fmt.Sprintf("julianday(%s)", b.Arg(t.UTC().Format("2006-01-02T15:04:05.000Z")))
}

func (SQLite) Lat(alias string) string {
	return fmt.Sprintf("CAST(substr(%[1]s.value, 1, instr(%[1]s.value, ',') - 1) AS REAL)", alias)
}

func (SQLite) Lon(alias string) string {
	return fmt.Sprintf("CAST(substr(%[1]s.value, instr(%[1]s.value, ',') + 1) AS REAL)", alias)
}

func (SQLite) Has(b *Builder, doc, field string) string {
	return fmt.Sprintf("(COALESCE(json_array_length(%s.fields, %s), 0) > 0)", doc, b.Arg(jsonPath(field)))
}

func (SQLite) HasPrefix(b *Builder, expr, prefix string) string {
	return fmt.Sprintf("instr(%s, %s) = 1", expr, b.Arg(prefix))
}

func (SQLite) Contains(b *Builder, expr, s string) string {
	return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, expr, b.Arg(likePattern(s)))
}

// Distance is unavailable: trigonometric functions are optional in SQLite builds.
func (SQLite) Distance(*Builder, string, float64, float64) (string, bool) { return "", false }

func (SQLite) JSONArg(b *Builder, fields string) string { return b.Arg(fields) }

func (s SQLite) Upsert(b *Builder, id, docType, parentID, fields string) string {
	return fmt.Sprintf(
		`INSERT INTO documents (id, doc_type, parent_id, fields) VALUES (%s, %s, %s, %s)
ON CONFLICT (id) DO UPDATE SET doc_type = excluded.doc_type, parent_id = excluded.parent_id, fields = excluded.fields`,
		b.Arg(id), b.Arg(docType), b.Arg(nullable(parentID)), s.JSONArg(b, fields),
	)
}

func (SQLite) DDL() string { return sqliteDDL }

// jsonPath quotes a field name as a SQLite JSON path member.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const postgresDDL = `CREATE TABLE IF NOT EXISTS documents (
    id        TEXT PRIMARY KEY,
    doc_type  TEXT NOT NULL,
    parent_id TEXT REFERENCES documents (id) ON DELETE CASCADE,
    fields    JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS documents_doc_type_idx ON documents (doc_type);
CREATE INDEX IF NOT EXISTS documents_parent_id_idx ON documents (parent_id);
CREATE INDEX IF NOT EXISTS documents_fields_idx ON documents USING GIN (fields);
`

const sqliteDDL = `CREATE TABLE IF NOT EXISTS documents (
    id        TEXT PRIMARY KEY,
    doc_type  TEXT NOT NULL,
    parent_id TEXT REFERENCES documents (id) ON DELETE CASCADE,
    fields    TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS documents_doc_type_idx ON documents (doc_type);
CREATE INDEX IF NOT EXISTS documents_parent_id_idx ON documents (parent_id);
`
