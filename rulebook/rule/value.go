package rule

import (
	"math"
	"time"
)

// ValueKind names the variant of a typed literal.
type ValueKind string

const (
	KindString    ValueKind = "string"
	KindNumber    ValueKind = "number"
	KindRange     ValueKind = "range"
	KindList      ValueKind = "list"
	KindDateTime  ValueKind = "datetime"
	KindTimeDelta ValueKind = "timedelta"
	KindBool      ValueKind = "bool"
	KindWildcard  ValueKind = "wildcard"
)

// Value is the literal on the right-hand side of a condition.
type Value interface {
	Kind() ValueKind
	isValue()
}

type StringValue struct {
	Text string
}

type NumberValue struct {
	Num float64
}

// RangeValue matches Low <= x <= High.
type RangeValue struct {
	Low  float64
	High float64
}

type StringListValue struct {
	Items []string
}

type NumberListValue struct {
	Items []float64
}

// DatePart is one component of a DateTimeValue. Any marks a '*'.
type DatePart struct {
	Any bool
	N   int
}

// DateTimeValue holds year, month, day, hour, minute and second.
type DateTimeValue struct {
	Parts [6]DatePart
}

// TimeDeltaValue holds years, months, days, hours, minutes and seconds.
type TimeDeltaValue struct {
	Parts [6]int
}

type BoolValue struct {
	B bool
}

type WildcardValue struct{}

func (StringValue) Kind() ValueKind     { return KindString }
func (NumberValue) Kind() ValueKind     { return KindNumber }
func (RangeValue) Kind() ValueKind      { return KindRange }
func (StringListValue) Kind() ValueKind { return KindList }
func (NumberListValue) Kind() ValueKind { return KindList }
func (DateTimeValue) Kind() ValueKind   { return KindDateTime }
func (TimeDeltaValue) Kind() ValueKind  { return KindTimeDelta }
func (BoolValue) Kind() ValueKind       { return KindBool }
func (WildcardValue) Kind() ValueKind   { return KindWildcard }

func (StringValue) isValue()     {}
func (NumberValue) isValue()     {}
func (RangeValue) isValue()      {}
func (StringListValue) isValue() {}
func (NumberListValue) isValue() {}
func (DateTimeValue) isValue()   {}
func (TimeDeltaValue) isValue()  {}
func (BoolValue) isValue()       {}
func (WildcardValue) isValue()   {}

// Wild returns a wildcard date component.
func Wild() DatePart { return DatePart{Any: true} }

// At returns a concrete date component.
func At(n int) DatePart { return DatePart{N: n} }

// Duration converts the delta with the fixed approximation of 365 days per
// year and 30 days per month. The result saturates instead of overflowing.
func (td TimeDeltaValue) Duration() time.Duration {
	days := 365*float64(td.Parts[0]) + 30*float64(td.Parts[1]) + float64(td.Parts[2])
	secs := days*86400 +
		float64(td.Parts[3])*3600 +
		float64(td.Parts[4])*60 +
		float64(td.Parts[5])

	limit := float64(math.MaxInt64 / int64(time.Second))
	switch {
	case secs > limit:
		return time.Duration(math.MaxInt64)
	case secs < -limit:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(int64(secs)) * time.Second
}
