package reinforcement

import (
	"math"
	"sort"
)

// DefaultStatsLength is the default window of a StatsLogger.
const DefaultStatsLength = 100000

// StatsLogger collects every field of a stream of Records. Each field keeps the MaxLength
// most recent values in a ring, so appends are constant time and old values rotate out,
// while Min and Max are tracked over everything ever appended.
//
// Appends are numbered from zero. LowerBound and UpperBound are the numbers of the oldest
// and newest retained values, and UpperBound-LowerBound+1 == Count <= MaxLength.
type StatsLogger struct {
	MaxLength int

	fields []string
	rings  map[string][]float64
	min    map[string]float64
	max    map[string]float64

	// next is the ring slot written by the next Append.
	next  int
	count int
	upper int
}

// NewStatsLogger returns a logger for the fields of prototype holding at most maxLength
// values per field.
func NewStatsLogger(prototype Record, maxLength int) *StatsLogger {
	if maxLength <= 0 {
		maxLength = DefaultStatsLength
	}
	sl := &StatsLogger{
		MaxLength: maxLength,
		rings:     map[string][]float64{},
		min:       map[string]float64{},
		max:       map[string]float64{},
		upper:     -1,
	}
	for field := range prototype.Fields() {
		sl.fields = append(sl.fields, field)
		sl.rings[field] = make([]float64, maxLength)
		sl.min[field] = math.Inf(1)
		sl.max[field] = math.Inf(-1)
	}
	sort.Strings(sl.fields)
	return sl
}

// Append records the values of every logged field. Fields of record the logger was not
// created with are ignored; logged fields missing from record read as zero.
func (sl *StatsLogger) Append(record Record) {
	values := record.Fields()
	for _, field := range sl.fields {
		v := values[field]
		sl.rings[field][sl.next] = v
		sl.min[field] = math.Min(sl.min[field], v)
		sl.max[field] = math.Max(sl.max[field], v)
	}
	sl.next = (sl.next + 1) % sl.MaxLength
	sl.upper++
	if sl.count < sl.MaxLength {
		sl.count++
	}
}

// Fields returns the logged field names in sorted order.
func (sl *StatsLogger) Fields() []string {
	return append([]string(nil), sl.fields...)
}

// Count returns the number of retained values per field.
func (sl *StatsLogger) Count() int {
	return sl.count
}

// LowerBound returns the append number of the oldest retained value.
func (sl *StatsLogger) LowerBound() int {
	return sl.upper + 1 - sl.count
}

// UpperBound returns the append number of the newest value, or -1 before the first append.
func (sl *StatsLogger) UpperBound() int {
	return sl.upper
}

// Data returns the retained values of field, oldest first. Unknown fields return nil.
func (sl *StatsLogger) Data(field string) []float64 {
	return sl.Tail(field, sl.count)
}

// Tail returns the n newest values of field, oldest first, or fewer if fewer are retained.
func (sl *StatsLogger) Tail(field string, n int) []float64 {
	ring, ok := sl.rings[field]
	if !ok {
		return nil
	}
	if n > sl.count {
		n = sl.count
	}
	if n < 0 {
		n = 0
	}

	out := make([]float64, n)
	start := (sl.next - n + sl.MaxLength) % sl.MaxLength
	copied := copy(out, ring[start:])
	if copied < n {
		copy(out[copied:], ring[:n-copied])
	}
	return out
}

// Min returns the smallest value of field ever appended; +Inf before the first append.
func (sl *StatsLogger) Min(field string) float64 {
	if v, ok := sl.min[field]; ok {
		return v
	}
	return math.Inf(1)
}

// Max returns the largest value of field ever appended; -Inf before the first append.
func (sl *StatsLogger) Max(field string) float64 {
	if v, ok := sl.max[field]; ok {
		return v
	}
	return math.Inf(-1)
}

// Mean returns the average of the n newest values of field, or zero if none are retained.
func (sl *StatsLogger) Mean(field string, n int) float64 {
	tail := sl.Tail(field, n)
	if len(tail) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range tail {
		sum += v
	}
	return sum / float64(len(tail))
}
