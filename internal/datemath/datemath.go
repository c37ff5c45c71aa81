// Package datemath handles relative date expressions such as NOW-7DAYS/DAY.
package datemath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Unit int

const (
	Millisecond Unit = iota + 1
	Second
	Minute
	Hour
	Day
	Week
	Month
	Year
)

var unitNames = map[Unit]string{
	Millisecond: "MILLI",
	Second:      "SECOND",
	Minute:      "MINUTE",
	Hour:        "HOUR",
	Day:         "DAY",
	Week:        "WEEK",
	Month:       "MONTH",
	Year:        "YEAR",
}

var esUnits = map[Unit]string{
	Second: "s",
	Minute: "m",
	Hour:   "h",
	Day:    "d",
	Week:   "w",
	Month:  "M",
	Year:   "y",
}

func (u Unit) String() string { return unitNames[u] }

func esUnit(s string) Unit {
	if s == "ms" {
		return Millisecond
	}
	for u, short := range esUnits {
		if s == short {
			return u
		}
	}
	return 0
}

func parseUnit(s string) (Unit, bool) {
	s = strings.TrimSuffix(strings.ToUpper(s), "S")
	switch s {
	case "MILLI", "MILLISECOND":
		return Millisecond, true
	case "SECOND":
		return Second, true
	case "MINUTE":
		return Minute, true
	case "HOUR":
		return Hour, true
	case "DAY", "DATE":
		return Day, true
	case "WEEK":
		return Week, true
	case "MONTH":
		return Month, true
	case "YEAR":
		return Year, true
	}
	return 0, false
}

// Op is a single step: an addition (Amount != 0) or a rounding (Round true).
type Op struct {
	Amount int
	Unit   Unit
	Round  bool
}

// Expr is an anchor (NOW when Anchor is zero) followed by ops applied left to right.
type Expr struct {
	Anchor time.Time
	Ops    []Op
}

func Now(ops ...Op) Expr { return Expr{Ops: ops} }

func Add(amount int, u Unit) Op { return Op{Amount: amount, Unit: u} }

func Round(u Unit) Op { return Op{Unit: u, Round: true} }

func (e Expr) IsNow() bool { return e.Anchor.IsZero() }

// Parse reads Solr-style date math: NOW, NOW-7DAYS/DAY, 2024-01-01T00:00:00Z+1MONTH.
func Parse(s string) (Expr, error) {
	in := strings.TrimSpace(s)
	var e Expr
	var rest string

	switch {
	case strings.HasPrefix(strings.ToUpper(in), "NOW"):
		rest = in[3:]
	default:
		z := strings.IndexAny(in, "Zz")
		if z < 0 {
			return Expr{}, fmt.Errorf("invalid date math %q: expected NOW or a UTC timestamp", s)
		}
		anchor, err := time.Parse(time.RFC3339Nano, in[:z+1])
		if err != nil {
			return Expr{}, fmt.Errorf("invalid date math anchor %q: %w", in[:z+1], err)
		}
		e.Anchor = anchor.UTC()
		rest = in[z+1:]
	}

	for len(rest) > 0 {
		sign := rest[0]
		rest = rest[1:]
		end := strings.IndexAny(rest, "+-/")
		if end < 0 {
			end = len(rest)
		}
		part := rest[:end]
		rest = rest[end:]

		switch sign {
		case '/':
			u, ok := parseUnit(part)
			if !ok {
				return Expr{}, fmt.Errorf("invalid date math %q: unknown unit %q", s, part)
			}
			e.Ops = append(e.Ops, Round(u))
		case '+', '-':
			i := 0
			for i < len(part) && part[i] >= '0' && part[i] <= '9' {
				i++
			}
			if i == 0 {
				return Expr{}, fmt.Errorf("invalid date math %q: missing amount", s)
			}
			n, err := strconv.Atoi(part[:i])
			if err != nil {
				return Expr{}, fmt.Errorf("invalid date math %q: %w", s, err)
			}
			u, ok := parseUnit(part[i:])
			if !ok {
				return Expr{}, fmt.Errorf("invalid date math %q: unknown unit %q", s, part[i:])
			}
			if sign == '-' {
				n = -n
			}
			e.Ops = append(e.Ops, Add(n, u))
		default:
			return Expr{}, fmt.Errorf("invalid date math %q: unexpected %q", s, string(sign))
		}
	}
	return e, nil
}

// MustParse panics on a malformed expression.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// String renders the Solr form.
func (e Expr) String() string {
	var b strings.Builder
	if e.IsNow() {
		b.WriteString("NOW")
	} else {
		b.WriteString(e.Anchor.UTC().Format("2006-01-02T15:04:05Z"))
	}
	for _, op := range e.Ops {
		switch {
		case op.Round:
			b.WriteString("/" + op.Unit.String())
		case op.Amount < 0:
			fmt.Fprintf(&b, "-%d%sS", -op.Amount, op.Unit)
		default:
			fmt.Fprintf(&b, "+%d%sS", op.Amount, op.Unit)
		}
	}
	return b.String()
}

// ES renders the Elasticsearch form (now-7d/d, 2024-01-01T00:00:00Z||+1M).
// Elasticsearch date math has no millisecond unit.
func (e Expr) ES() (string, error) {
	var b strings.Builder
	if e.IsNow() {
		b.WriteString("now")
	} else {
		b.WriteString(e.Anchor.UTC().Format("2006-01-02T15:04:05Z"))
		if len(e.Ops) > 0 {
			b.WriteString("||")
		}
	}
	for _, op := range e.Ops {
		u, ok := esUnits[op.Unit]
		if !ok {
			return "", fmt.Errorf("date math unit %s not supported by elasticsearch", op.Unit)
		}
		switch {
		case op.Round:
			b.WriteString("/" + u)
		case op.Amount < 0:
			fmt.Fprintf(&b, "-%d%s", -op.Amount, u)
		default:
			fmt.Fprintf(&b, "+%d%s", op.Amount, u)
		}
	}
	return b.String(), nil
}

// Resolve evaluates the expression against now, in UTC. Rounding truncates down;
// weeks start on Monday.
func (e Expr) Resolve(now time.Time) time.Time {
	t := now.UTC()
	if !e.IsNow() {
		t = e.Anchor.UTC()
	}
	for _, op := range e.Ops {
		if op.Round {
			t = truncate(t, op.Unit)
			continue
		}
		t = add(t, op.Amount, op.Unit)
	}
	return t
}

func add(t time.Time, n int, u Unit) time.Time {
	switch u {
	case Millisecond:
		return t.Add(time.Duration(n) * time.Millisecond)
	case Second:
		return t.Add(time.Duration(n) * time.Second)
	case Minute:
		return t.Add(time.Duration(n) * time.Minute)
	case Hour:
		return t.Add(time.Duration(n) * time.Hour)
	case Day:
		return t.AddDate(0, 0, n)
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return t.AddDate(0, n, 0)
	case Year:
		return t.AddDate(n, 0, 0)
	}
	return t
}

func truncate(t time.Time, u Unit) time.Time {
	y, m, d := t.Date()
	switch u {
	case Millisecond:
		return t.Truncate(time.Millisecond)
	case Second:
		return t.Truncate(time.Second)
	case Minute:
		return t.Truncate(time.Minute)
	case Hour:
		return t.Truncate(time.Hour)
	case Day:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case Week:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// Gap is a date-math step used by range facets, e.g. +1DAY.
type Gap struct {
	Amount int
	Unit   Unit
}

// maxGapMillis keeps a gap representable as a time.Duration.
const maxGapMillis = math.MaxInt64 / int64(time.Millisecond)

// Millis returns the gap length in milliseconds. Months and years use 30 and 365 days.
// It is only meaningful for gaps that pass Validate.
func (g Gap) Millis() int64 {
	return int64(g.Amount) * g.Unit.millis()
}

// Validate rejects non-positive gaps and gaps too long to represent.
func (g Gap) Validate() error {
	if g.Amount <= 0 {
		return fmt.Errorf("invalid gap %s: amount must be positive", g)
	}
	unit := g.Unit.millis()
	if unit == 0 {
		return fmt.Errorf("invalid gap: unknown unit %d", g.Unit)
	}
	if int64(g.Amount) > maxGapMillis/unit {
		return fmt.Errorf("invalid gap %s: too large", g)
	}
	return nil
}

func (u Unit) millis() int64 {
	var d time.Duration
	switch u {
	case Millisecond:
		d = time.Millisecond
	case Second:
		d = time.Second
	case Minute:
		d = time.Minute
	case Hour:
		d = time.Hour
	case Day:
		d = 24 * time.Hour
	case Week:
		d = 7 * 24 * time.Hour
	case Month:
		d = 30 * 24 * time.Hour
	case Year:
		d = 365 * 24 * time.Hour
	}
	return d.Milliseconds()
}

func (g Gap) String() string { return fmt.Sprintf("+%d%sS", g.Amount, g.Unit) }

// ParseGap reads +1DAY, 2HOURS or 1d style gaps.
func ParseGap(s string) (Gap, error) {
	in := strings.TrimPrefix(strings.TrimSpace(s), "+")
	i := 0
	for i < len(in) && in[i] >= '0' && in[i] <= '9' {
		i++
	}
	if i == 0 {
		return Gap{}, fmt.Errorf("invalid gap %q: missing amount", s)
	}
	n, err := strconv.Atoi(in[:i])
	if err != nil || n <= 0 {
		return Gap{}, fmt.Errorf("invalid gap %q: amount must be positive", s)
	}
	unit := in[i:]
	g := Gap{Amount: n, Unit: esUnit(unit)}
	if g.Unit == 0 {
		u, ok := parseUnit(unit)
		if !ok {
			return Gap{}, fmt.Errorf("invalid gap %q: unknown unit %q", s, unit)
		}
		g.Unit = u
	}
	if err := g.Validate(); err != nil {
		return Gap{}, err
	}
	return g, nil
}

// GapFromMillis picks the largest exact unit for a millisecond gap.
func GapFromMillis(ms int64) Gap {
	for _, u := range []Unit{Week, Day, Hour, Minute, Second} {
		unit := Gap{Amount: 1, Unit: u}.Millis()
		if ms >= unit && ms%unit == 0 {
			return Gap{Amount: int(ms / unit), Unit: u}
		}
	}
	return Gap{Amount: int(ms), Unit: Millisecond}
}

// ES renders the gap as an Elasticsearch interval (1d, 2h, 500ms).
func (g Gap) ES() string {
	if u, ok := esUnits[g.Unit]; ok {
		return strconv.Itoa(g.Amount) + u
	}
	return strconv.Itoa(g.Amount) + "ms"
}
