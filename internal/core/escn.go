package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ESCN layout (RFC 4122 version 1, node field carried as decimal digits):
//
//	tttttttt-mmmm-1hhh-cccc-PPPNNNNNNNNN
//	time_low  mid  hi  seq  prefix + PIC
const (
	// OffsetMillis is the 15 Oct 1582 to 1 Jan 1970 offset. It is added
	// verbatim to the scaled wall clock reading.
	OffsetMillis = 12219292800000

	// HitBudget is the number of calls served per wall clock read.
	HitBudget = 10000

	ticksPerMilli = 10000
	versionBits   = 0x1000
	variantBits   = 0x8000
	clockSeqMask  = 0x3fff

	prefixLen = 3
)

var (
	prefixPattern = regexp.MustCompile(`^[0-9]{3}$`)
	picPattern    = regexp.MustCompile(`^[0-9]{9}$`)
)

// Stats counts generator events since construction.
type Stats struct {
	Generated        uint64
	Reseeds          uint64
	ClockAdjustments uint64
}

// Generator mints ESCNs. All state lives behind mu; a single Generator is
// meant to be shared by every caller of the process.
type Generator struct {
	mu sync.Mutex

	time        uint64 // 100ns ticks since the Gregorian epoch
	lastMillis  int64
	clockSeq    uint16
	hits        int
	adjustments uint16
	budget      int
	stats       Stats

	now    func() int64
	sleep  func(time.Duration)
	random func() uint16
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the millisecond wall clock.
func WithClock(now func() int64) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithSleep replaces the function used to wait for the clock to advance.
func WithSleep(sleep func(time.Duration)) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// WithRandom replaces the clock sequence source. Only the low 14 bits are used.
func WithRandom(random func() uint16) Option {
	return func(g *Generator) {
		g.random = random
	}
}

// WithHitBudget overrides HitBudget.
func WithHitBudget(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.budget = n
		}
	}
}

// NewGenerator returns a Generator reading the system clock. The first
// Generate call seeds the synthetic time.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		budget: HitBudget,
		now:    unixMillis,
		sleep:  time.Sleep,
		random: random14,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func unixMillis() int64 { return time.Now().UnixMilli() }

func random14() uint16 { return uint16(rand.IntN(clockSeqMask + 1)) }

// Generate mints a new ESCN for the given institutional prefix and
// participant identification code. Inputs are validated before any state
// is touched.
func (g *Generator) Generate(prefix, pic string) (string, error) {
	node, err := Node(prefix, pic)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// The clock sequence is redrawn on every call, not only on reseed.
	g.clockSeq = (g.random() & clockSeqMask) | variantBits
	t := g.advance()
	g.stats.Generated++

	return format(t, g.clockSeq, node), nil
}

// advance moves the synthetic time forward. Callers hold mu.
func (g *Generator) advance() uint64 {
	g.hits--
	if g.hits > 0 {
		g.time++
		return g.time
	}

	ms := g.now()
	g.hits = g.budget
	g.stats.Reseeds++

	switch {
	case ms < g.lastMillis:
		// clock was set back
		g.adjustments++
		g.stats.ClockAdjustments++
		g.clockSeq = (g.adjustments & clockSeqMask) | variantBits
	case ms == g.lastMillis:
		// requesting ESCNs faster than the clock resolution
		g.sleep(time.Millisecond)
		ms = g.now()
	}

	g.time = uint64(ms)*ticksPerMilli + OffsetMillis
	g.lastMillis = ms
	return g.time
}

// Stats returns a snapshot of the generator counters.
func (g *Generator) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func format(t uint64, clockSeq uint16, node string) string {
	low := uint32(t & 0xffffffff)
	mid := uint16((t >> 32) & 0xffff)
	hi := uint16((t>>48)&0x0fff) | versionBits
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%s", low, mid, hi, clockSeq, node)
}

// Node validates the inputs and returns the 12 digit node field.
// The prefix is zero-padded on the left to 3 characters first.
func Node(prefix, pic string) (string, error) {
	if len(prefix) < prefixLen {
		prefix = strings.Repeat("0", prefixLen-len(prefix)) + prefix
	}
	if !prefixPattern.MatchString(prefix) {
		return "", NewAppError(ErrInvalidPrefix, fmt.Sprintf("invalid prefix format %q", prefix))
	}
	if !picPattern.MatchString(pic) {
		return "", NewAppError(ErrInvalidPIC, fmt.Sprintf("invalid PIC format %q", pic))
	}
	return prefix + pic, nil
}

// FormatPrefix renders an integer server prefix, e.g. 7 -> "007".
func FormatPrefix(n int) string {
	return fmt.Sprintf("%03d", n)
}

// PrefixValue accepts a prefix decoded from JSON or a protobuf Struct:
// a string, a whole non-negative number, or nil for "not given".
// Numbers are rendered with FormatPrefix.
func PrefixValue(v interface{}) (string, error) {
	return nodeValue(v, ErrInvalidPrefix, "prefix", func(n int64) string {
		return FormatPrefix(int(n))
	})
}

// PICValue is PrefixValue for the participant identification code.
// Numbers are rendered without padding, so they must have 9 digits.
func PICValue(v interface{}) (string, error) {
	return nodeValue(v, ErrInvalidPIC, "PIC", func(n int64) string {
		return strconv.FormatInt(n, 10)
	})
}

// maxNodeNumber bounds numeric inputs well below the float64 integer limit.
const maxNodeNumber = 1e12

func nodeValue(v interface{}, code ErrorCode, name string, render func(int64) string) (string, error) {
	var n int64
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) || x < 0 || x >= maxNodeNumber {
			return "", NewAppError(code, fmt.Sprintf("%s must be a whole number, got %v", name, x))
		}
		n = int64(x)
	default:
		return "", NewAppError(code, fmt.Sprintf("%s must be a string or an integer, got %T", name, v))
	}
	if n < 0 || n >= maxNodeNumber {
		return "", NewAppError(code, fmt.Sprintf("%s out of range: %d", name, n))
	}
	return render(n), nil
}
