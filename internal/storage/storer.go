package storage

import (
	"context"

	"github.com/DjordjeVuckovic/facetq/internal/document"
)

// Storer indexes encoded documents together with their children.
type Storer interface {
	Save(ctx context.Context, doc document.Encoded) error
	SaveBulk(ctx context.Context, docs []document.Encoded) error
}

type Type string

const (
	ES     Type = "es"
	PG     Type = "pg"
	SQLite Type = "sqlite"
	Lucene Type = "lucene"
	InMem  Type = "in_mem"
)

// Types lists every backend type in a stable order.
var Types = []Type{ES, PG, SQLite, Lucene, InMem}

func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", StorerError(string(ErrUnsupportedStorer) + ": " + s)
}

type StorerError string

const (
	ErrUnsupportedStorer StorerError = "unsupported storage type"
)

func (e StorerError) Error() string {
	return string(e)
}
