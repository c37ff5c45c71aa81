package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/datemath"
)

// DateBound is either an absolute instant or a date-math expression.
type DateBound struct {
	at   time.Time
	math *datemath.Expr
}

func At(t time.Time) DateBound { return DateBound{at: t.UTC()} }

func Math(e datemath.Expr) DateBound { return DateBound{math: &e} }

// ParseDateBound accepts RFC 3339 timestamps and date-math expressions.
func ParseDateBound(s string) (DateBound, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return At(t), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return At(t), nil
	}
	e, err := datemath.Parse(s)
	if err != nil {
		return DateBound{}, err
	}
	return Math(e), nil
}

func (b DateBound) IsZero() bool { return b.math == nil && b.at.IsZero() }

func (b DateBound) IsMath() bool { return b.math != nil }

// Expr returns the date-math expression of a relative bound.
func (b DateBound) Expr() (datemath.Expr, bool) {
	if b.math == nil {
		return datemath.Expr{}, false
	}
	return *b.math, true
}

// Time resolves the bound against now.
func (b DateBound) Time(now time.Time) time.Time {
	if b.math != nil {
		return b.math.Resolve(now)
	}
	return b.at
}

// String renders an absolute bound as RFC 3339 and a relative one in date-math form.
func (b DateBound) String() string {
	if b.math != nil {
		return b.math.String()
	}
	return b.at.Format(time.RFC3339Nano)
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseGeoPoint reads the "lat,lon" form produced by GeoPoint.String.
func ParseGeoPoint(s string) (GeoPoint, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return GeoPoint{}, fmt.Errorf("invalid geo point %q: expected lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("invalid geo point %q: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("invalid geo point %q: %w", s, err)
	}
	p := GeoPoint{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range", p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range", p.Lon)
	}
	return nil
}

func (p GeoPoint) String() string {
	return formatNumber(p.Lat) + "," + formatNumber(p.Lon)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatValue renders a typed value the way it appears in filter strings and keys.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return formatNumber(x)
	case float32:
		return formatNumber(float64(x))
	case GeoPoint:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func valueKey(v any) string {
	return fmt.Sprintf("%T:%s", v, FormatValue(v))
}
