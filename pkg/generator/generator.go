// Package generator synthesizes schema-valid random values for form fields.
//
// Generation is pure: given a descriptor (type, widget, selection values and
// pre-resolved candidate ids) it returns one model.GeneratedValue or
// model.Unavailable. Fetching candidate ids and applying values is left to
// the caller.
package generator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Default generation limits.
const (
	DefaultMinString  = 4
	DefaultMaxString  = 40
	DefaultTextFactor = 10
	DefaultMinNumber  = 4
	DefaultMaxNumber  = 999999

	minPhone = 100000000
	maxPhone = 999999999
)

// Limits bounds generated strings and numbers. Text fields use
// MaxString*TextFactor as their upper length.
type Limits struct {
	MinString  int
	MaxString  int
	TextFactor int
	MinNumber  int64
	MaxNumber  int64
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MinString:  DefaultMinString,
		MaxString:  DefaultMaxString,
		TextFactor: DefaultTextFactor,
		MinNumber:  DefaultMinNumber,
		MaxNumber:  DefaultMaxNumber,
	}
}

func (l Limits) normalize() Limits {
	def := DefaultLimits()
	if l.MinString <= 0 {
		l.MinString = def.MinString
	}
	if l.MaxString < l.MinString {
		l.MaxString = max(def.MaxString, l.MinString)
	}
	if l.TextFactor <= 0 {
		l.TextFactor = def.TextFactor
	}
	if l.MinNumber == 0 && l.MaxNumber == 0 {
		l.MinNumber, l.MaxNumber = def.MinNumber, def.MaxNumber
	}
	if l.MaxNumber < l.MinNumber {
		l.MinNumber, l.MaxNumber = l.MaxNumber, l.MinNumber
	}
	return l
}

// DateFormatter renders generated instants in the host's wire format.
type DateFormatter interface {
	FormatDate(t time.Time) string
	FormatDatetime(t time.Time) string
}

// Default server formats.
const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02 15:04:05"
)

// LayoutFormatter formats instants in UTC with fixed layouts.
type LayoutFormatter struct {
	Date     string
	Datetime string
}

func (f LayoutFormatter) FormatDate(t time.Time) string {
	return t.UTC().Format(f.Date)
}

func (f LayoutFormatter) FormatDatetime(t time.Time) string {
	return t.UTC().Format(f.Datetime)
}

// Generator produces values for field descriptors.
type Generator struct {
	src       RandomSource
	limits    Limits
	now       func() time.Time
	formatter DateFormatter
	sanitizer *bluemonday.Policy
}

// Option customises a Generator.
type Option func(*Generator)

// WithSource sets the random source.
func WithSource(src RandomSource) Option {
	return func(g *Generator) {
		if src != nil {
			g.src = src
		}
	}
}

// WithSeed seeds a math/rand source.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.src = NewRandSource(seed)
	}
}

// WithLimits overrides the generation limits. Zero fields keep their
// defaults.
func WithLimits(limits Limits) Option {
	return func(g *Generator) {
		g.limits = limits.normalize()
	}
}

// WithClock sets the time source used for date ranges.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithDateFormatter sets the collaborator that renders dates.
func WithDateFormatter(f DateFormatter) Option {
	return func(g *Generator) {
		if f != nil {
			g.formatter = f
		}
	}
}

// New constructs a Generator. Without WithSource or WithSeed it seeds from
// the current time.
func New(opts ...Option) *Generator {
	g := &Generator{
		limits:    DefaultLimits(),
		now:       time.Now,
		formatter: LayoutFormatter{Date: DateLayout, Datetime: DatetimeLayout},
		sanitizer: bluemonday.UGCPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.src == nil {
		g.src = NewRandSource(time.Now().UnixNano())
	}
	return g
}

// Limits reports the active limits.
func (g *Generator) Limits() Limits {
	return g.limits
}

// Intn exposes the random source, so callers drawing run-level numbers (row
// counts) share the generator's seed.
func (g *Generator) Intn(n int) int {
	return g.src.Intn(n)
}

// IntRange returns an int uniformly drawn from [lo, hi].
func (g *Generator) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.src.Intn(hi-lo+1)
}

// Generate returns a value for desc, or model.Unavailable when no valid value
// exists. Excluded values are never returned for selection, many2one and
// many2many fields.
func (g *Generator) Generate(desc model.FieldDescriptor, excluded []model.Scalar) model.GeneratedValue {
	switch KindFor(desc) {
	case KindChar:
		return model.NewScalar(g.randomString(g.limits.MinString, g.limits.MaxString))
	case KindText:
		return model.NewScalar(g.randomString(g.limits.MinString, g.limits.MaxString*g.limits.TextFactor))
	case KindHTML:
		return model.NewScalar(g.html())
	case KindInteger:
		return model.NewScalar(g.int64Range(g.limits.MinNumber, g.limits.MaxNumber))
	case KindFloat:
		return model.NewScalar(g.floatRange(float64(g.limits.MinNumber), float64(g.limits.MaxNumber)))
	case KindBoolean:
		return model.NewScalar(g.src.Intn(2) == 1)
	case KindDate:
		return model.NewScalar(g.formatter.FormatDate(g.randomInstant()))
	case KindDatetime:
		return model.NewScalar(g.formatter.FormatDatetime(g.randomInstant()))
	case KindSelection:
		return g.selection(desc.SelectionValues, excluded)
	case KindManyToOne:
		return g.manyToOne(desc.CandidateIDs, excluded)
	case KindManyToMany:
		return g.manyToMany(desc.CandidateIDs, excluded)
	case KindOneToMany:
		return g.oneToMany(desc.Nested)
	case KindPhone:
		return model.NewScalar(strconv.Itoa(g.IntRange(minPhone, maxPhone)))
	case KindEmail:
		return model.NewScalar(g.email())
	case KindURL:
		return model.NewScalar(g.url())
	case KindUnsupported:
		return model.Unavailable
	default:
		return model.Unavailable
	}
}

func (g *Generator) selection(values, excluded []model.Scalar) model.GeneratedValue {
	pool := filterScalars(values, excluded)
	if len(pool) == 0 {
		return model.Unavailable
	}
	return model.NewScalar(pool[g.src.Intn(len(pool))])
}

func (g *Generator) manyToOne(candidates []model.ID, excluded []model.Scalar) model.GeneratedValue {
	pool := filterIDs(candidates, excluded)
	if len(pool) == 0 {
		return model.Unavailable
	}
	return model.NewSingle(pool[g.src.Intn(len(pool))])
}

// manyToMany picks a subset size uniformly in [0, n-1], so the full
// candidate set is never chosen and a size of zero yields Unavailable.
func (g *Generator) manyToMany(candidates []model.ID, excluded []model.Scalar) model.GeneratedValue {
	pool := filterIDs(candidates, excluded)
	if len(pool) == 0 {
		return model.Unavailable
	}
	size := g.src.Intn(len(pool))
	if size == 0 {
		return model.Unavailable
	}
	for i := 0; i < size; i++ {
		j := i + g.src.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return model.NewMulti(pool[:size])
}

func (g *Generator) oneToMany(nested []model.FieldDescriptor) model.GeneratedValue {
	row := g.NewRow()
	for _, sub := range nested {
		row.Add(sub, nil)
	}
	return row.Value()
}

func (g *Generator) randomInstant() time.Time {
	high := g.now().UnixMilli()
	low := high / 2
	ms := low + int64(g.src.Float64()*float64(high-low))
	if ms > high {
		ms = high
	}
	return time.UnixMilli(ms)
}

func (g *Generator) int64Range(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	span := hi - lo + 1
	if span > int64(maxInt) {
		return lo + int64(g.src.Float64()*float64(hi-lo))
	}
	return lo + int64(g.src.Intn(int(span)))
}

const maxInt = int(^uint(0) >> 1)

func (g *Generator) floatRange(lo, hi float64) float64 {
	v := lo + g.src.Float64()*(hi-lo)
	return min(max(v, lo), hi)
}

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	lowerAlnum   = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var topLevelDomains = []string{"com", "org", "net", "io"}

func (g *Generator) randomString(minLen, maxLen int) string {
	return g.fromAlphabet(alphanumeric, g.IntRange(minLen, maxLen))
}

func (g *Generator) fromAlphabet(alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(alphabet[g.src.Intn(len(alphabet))])
	}
	return sb.String()
}

func (g *Generator) email() string {
	local := g.fromAlphabet(lowerAlnum, g.IntRange(g.limits.MinString, g.limits.MaxString))
	host := g.fromAlphabet(lowerAlnum, g.IntRange(g.limits.MinString, g.limits.MinString*2))
	tld := topLevelDomains[g.src.Intn(len(topLevelDomains))]
	return fmt.Sprintf("%s@%s.%s", local, host, tld)
}

func (g *Generator) url() string {
	host := g.fromAlphabet(lowerAlnum, g.IntRange(g.limits.MinString, g.limits.MaxString))
	path := g.fromAlphabet(lowerAlnum, g.IntRange(g.limits.MinString, g.limits.MinString*2))
	tld := topLevelDomains[g.src.Intn(len(topLevelDomains))]
	return fmt.Sprintf("https://%s.%s/%s", host, tld, path)
}

func filterScalars(values, excluded []model.Scalar) []model.Scalar {
	if len(excluded) == 0 {
		return append([]model.Scalar(nil), values...)
	}
	skip := scalarSet(excluded)
	out := make([]model.Scalar, 0, len(values))
	for _, v := range values {
		if _, ok := skip[scalarKey(v)]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func filterIDs(ids []model.ID, excluded []model.Scalar) []model.ID {
	if len(excluded) == 0 {
		return append([]model.ID(nil), ids...)
	}
	skip := scalarSet(excluded)
	out := make([]model.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[scalarKey(id)]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func scalarSet(values []model.Scalar) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[scalarKey(v)] = struct{}{}
	}
	return out
}

// scalarKey normalises a scalar so an ID and the int64 a host returns for it
// compare equal.
func scalarKey(v model.Scalar) string {
	switch typed := v.(type) {
	case model.ID:
		return strconv.FormatInt(int64(typed), 10)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		if typed == float64(int64(typed)) {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
