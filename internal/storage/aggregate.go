package storage

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/filter"
	"github.com/DjordjeVuckovic/facetq/internal/query"
)

// DefaultFacetLimit applies when a facet does not set a limit.
const DefaultFacetLimit = 100

// ValueKey is the canonical text form of a field value, used as the facet
// bucket key.
func ValueKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case filter.GeoPoint:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return filter.FormatValue(v)
}

// SameValue compares a stored value with a filter value. Numbers compare
// numerically, so a numeric field matches the string "10".
func SameValue(stored, want any) bool {
	_, storedStr := stored.(string)
	_, wantStr := want.(string)
	if !storedStr || !wantStr {
		if a, ok := ToFloat(stored); ok {
			b, ok := ToFloat(want)
			return ok && a == b
		}
		if a, ok := stored.(time.Time); ok {
			b, ok := ToTime(want)
			return ok && a.Equal(b)
		}
	}
	return ValueKey(stored) == ValueKey(want)
}

func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// ToTime accepts time values and RFC3339 strings.
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		return t, err == nil
	}
	return time.Time{}, false
}

// InBucket reports whether v lies inside b. Bounds are float64, time.Time or
// nil; a value of the wrong domain never matches.
func InBucket(b query.Bucket, v any) bool {
	return InRange(v, b.Lower, b.Upper, b.IncludeLower, b.IncludeUpper)
}

// InRange compares v against already resolved bounds.
func InRange(v, lower, upper any, includeLower, includeUpper bool) bool {
	c, ok := compareBound(v, lower)
	if lower != nil && (!ok || c < 0 || (c == 0 && !includeLower)) {
		return false
	}
	c, ok = compareBound(v, upper)
	if upper != nil && (!ok || c > 0 || (c == 0 && !includeUpper)) {
		return false
	}
	return true
}

func compareBound(v, bound any) (int, bool) {
	switch b := bound.(type) {
	case nil:
		return 0, true
	case time.Time:
		t, ok := ToTime(v)
		if !ok {
			return 0, false
		}
		return t.Compare(b), true
	default:
		bf, ok := ToFloat(b)
		if !ok {
			return 0, false
		}
		f, ok := ToFloat(v)
		if !ok {
			return 0, false
		}
		switch {
		case f < bf:
			return -1, true
		case f > bf:
			return 1, true
		}
		return 0, true
	}
}

// CountTerms counts the documents holding each distinct value. perDoc holds
// the values of one document per entry.
func CountTerms(perDoc [][]any, limit, minCount int) []BucketCount {
	counts := map[string]int64{}
	for _, values := range perDoc {
		seen := map[string]bool{}
		for _, v := range values {
			k := ValueKey(v)
			if !seen[k] {
				seen[k] = true
				counts[k]++
			}
		}
	}
	out := make([]BucketCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, BucketCount{Key: k, Count: n})
	}
	return TrimBuckets(out, limit, minCount)
}

// TrimBuckets orders buckets by count, then key, and applies min count and limit.
func TrimBuckets(buckets []BucketCount, limit, minCount int) []BucketCount {
	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Key < buckets[j].Key
	})
	if minCount < 1 {
		minCount = 1
	}
	kept := buckets[:0]
	for _, b := range buckets {
		if b.Count >= int64(minCount) {
			kept = append(kept, b)
		}
	}
	if limit <= 0 {
		limit = DefaultFacetLimit
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// ComputeStats evaluates the statistics of s over the values of each document.
// Dates report min and max as RFC3339 strings and mean as one.
func ComputeStats(s facet.Stats, perDoc [][]any) map[string]any {
	var (
		nums     []float64
		strs     []string
		dates    bool
		count    int64
		missing  int64
		distinct = map[string]any{}
	)
	for _, values := range perDoc {
		if len(values) == 0 {
			missing++
			continue
		}
		for _, v := range values {
			count++
			distinct[ValueKey(v)] = v
			if t, ok := v.(time.Time); ok {
				dates = true
				nums = append(nums, float64(t.UnixMilli()))
				continue
			}
			if f, ok := ToFloat(v); ok {
				if _, isStr := v.(string); !isStr {
					nums = append(nums, f)
					continue
				}
			}
			if str, ok := v.(string); ok {
				strs = append(strs, str)
			}
		}
	}

	out := map[string]any{}
	fl := s.Flags
	if fl.Count {
		out["count"] = count
	}
	if fl.Missing {
		out["missing"] = missing
	}
	if fl.CountDistinct || fl.Cardinality {
		key := "countDistinct"
		if !fl.CountDistinct {
			key = "cardinality"
		}
		out[key] = int64(len(distinct))
	}
	if fl.DistinctValues {
		keys := make([]string, 0, len(distinct))
		for k := range distinct {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out["distinctValues"] = keys
	}

	if len(nums) == 0 {
		if len(strs) > 0 && (fl.Min || fl.Max) {
			sort.Strings(strs)
			if fl.Min {
				out["min"] = strs[0]
			}
			if fl.Max {
				out["max"] = strs[len(strs)-1]
			}
		}
		return out
	}

	sort.Float64s(nums)
	var sum, sumSq float64
	for _, n := range nums {
		sum += n
		sumSq += n * n
	}
	n := float64(len(nums))
	mean := sum / n
	format := func(x float64) any {
		if dates {
			return time.UnixMilli(int64(x)).UTC().Format(time.RFC3339Nano)
		}
		return x
	}

	if fl.Min {
		out["min"] = format(nums[0])
	}
	if fl.Max {
		out["max"] = format(nums[len(nums)-1])
	}
	if fl.Mean {
		out["mean"] = format(mean)
	}
	if fl.Sum {
		out["sum"] = sum
	}
	if fl.SumOfSquares {
		out["sumOfSquares"] = sumSq
	}
	if fl.Stddev {
		stddev := 0.0
		if len(nums) > 1 {
			stddev = math.Sqrt(math.Max(0, (sumSq-sum*sum/n)/(n-1)))
		}
		out["stddev"] = stddev
	}
	if len(s.Percentiles) > 0 {
		pcts := map[string]float64{}
		for _, p := range s.Percentiles {
			pcts[strconv.FormatFloat(p, 'f', -1, 64)] = percentile(nums, p)
		}
		out["percentiles"] = pcts
	}
	return out
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}
