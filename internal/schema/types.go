package schema

import (
	"fmt"
	"strings"
)

// ValueType is the declared value domain of a field.
type ValueType int

const (
	Bool ValueType = iota + 1
	Int
	Long
	Float
	Double
	String
	Date
	ZonedDateTime
	Binary
	GeoPoint
	// Complex fields carry per-use-case projections instead of a single value domain.
	Complex
)

var valueTypeNames = map[ValueType]string{
	Bool:          "bool",
	Int:           "int",
	Long:          "long",
	Float:         "float",
	Double:        "double",
	String:        "string",
	Date:          "date",
	ZonedDateTime: "zoned_datetime",
	Binary:        "binary",
	GeoPoint:      "geo_point",
	Complex:       "complex",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseValueType maps the textual name used in schema files to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for t, name := range valueTypeNames {
		if name == needle {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown value type: %q", s)
}

// IsNumeric reports whether the type is one of the numeric domains.
func (t ValueType) IsNumeric() bool {
	switch t {
	case Int, Long, Float, Double:
		return true
	default:
		return false
	}
}

// IsTemporal reports whether the type is a date or a zoned date-time.
func (t ValueType) IsTemporal() bool {
	return t == Date || t == ZonedDateTime
}

// Bucket is the value-type token of a physical field name.
type Bucket string

const (
	BucketBool     Bucket = "bool_"
	BucketDate     Bucket = "date_"
	BucketInt      Bucket = "int_"
	BucketLong     Bucket = "long_"
	BucketNumber   Bucket = "number_"
	BucketString   Bucket = "string_"
	BucketBinary   Bucket = "binary_"
	BucketLocation Bucket = "location_"
	// BucketAnalyzed replaces BucketString for suggestion fields.
	BucketAnalyzed Bucket = "analyzed_"
)

// Buckets lists every bucket token the codec may emit.
var Buckets = []Bucket{
	BucketBool, BucketDate, BucketInt, BucketLong, BucketNumber,
	BucketString, BucketBinary, BucketLocation, BucketAnalyzed,
}

// BucketOf returns the bucket of a non-complex value type.
func BucketOf(t ValueType) Bucket {
	switch t {
	case Bool:
		return BucketBool
	case Date, ZonedDateTime:
		return BucketDate
	case Int:
		return BucketInt
	case Long:
		return BucketLong
	case Float, Double:
		return BucketNumber
	case String:
		return BucketString
	case Binary:
		return BucketBinary
	case GeoPoint:
		return BucketLocation
	default:
		return ""
	}
}

// Cardinality tells whether a field holds one or many values per document.
type Cardinality int

const (
	Single Cardinality = iota
	Multi
)

func (c Cardinality) String() string {
	if c == Multi {
		return "multi"
	}
	return "single"
}

// UseCase is the purpose a physical field variant serves.
type UseCase int

const (
	Fulltext UseCase = iota + 1
	Facet
	Suggest
	Sort
	Filter
	Stored
)

// UseCases lists all use-cases in a stable order.
var UseCases = []UseCase{Fulltext, Facet, Suggest, Sort, Filter, Stored}

func (u UseCase) String() string {
	switch u {
	case Fulltext:
		return "Fulltext"
	case Facet:
		return "Facet"
	case Suggest:
		return "Suggest"
	case Sort:
		return "Sort"
	case Filter:
		return "Filter"
	case Stored:
		return "Stored"
	default:
		return "Unknown"
	}
}

// ParseUseCase is the inverse of UseCase.String, case-insensitive.
func ParseUseCase(s string) (UseCase, error) {
	for _, uc := range UseCases {
		if strings.EqualFold(uc.String(), s) {
			return uc, nil
		}
	}
	return 0, fmt.Errorf("unknown use-case: %q", s)
}
