package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var escnPattern = regexp.MustCompile(`^([0-9a-f]{8})-([0-9a-f]{4})-([0-9a-f]{4})-([0-9a-f]{4})-([0-9]{12})$`)

// Decoded is an ESCN split back into its fields.
type Decoded struct {
	ESCN          string `json:"escn"`
	Time          uint64 `json:"time"`
	Version       int    `json:"version"`
	ClockSequence uint16 `json:"clock_sequence"`
	Node          string `json:"node"`
	Prefix        string `json:"prefix"`
	PIC           string `json:"pic"`
}

// Decode parses an ESCN. Upper-case hex digits are accepted.
func Decode(escn string) (Decoded, error) {
	s := strings.ToLower(strings.TrimSpace(escn))
	m := escnPattern.FindStringSubmatch(s)
	if m == nil {
		return Decoded{}, NewAppError(ErrMalformed, fmt.Sprintf("malformed ESCN %q", escn))
	}

	low, _ := strconv.ParseUint(m[1], 16, 32)
	mid, _ := strconv.ParseUint(m[2], 16, 16)
	hi, _ := strconv.ParseUint(m[3], 16, 16)
	seq, _ := strconv.ParseUint(m[4], 16, 16)

	if hi>>12 != 1 {
		return Decoded{}, NewAppError(ErrMalformed, fmt.Sprintf("unsupported ESCN version %d", hi>>12))
	}
	if seq&0xc000 != variantBits {
		return Decoded{}, NewAppError(ErrMalformed, "ESCN clock sequence does not carry the RFC 4122 variant")
	}

	return Decoded{
		ESCN:          s,
		Time:          (hi&0x0fff)<<48 | mid<<32 | low,
		Version:       int(hi >> 12),
		ClockSequence: uint16(seq),
		Node:          m[5],
		Prefix:        m[5][:prefixLen],
		PIC:           m[5][prefixLen:],
	}, nil
}

// WallClock returns the wall clock reading the ESCN was seeded from.
func (d Decoded) WallClock() time.Time {
	ms := (int64(d.Time) - OffsetMillis) / ticksPerMilli
	return time.UnixMilli(ms).UTC()
}

// Tick is the position of the ESCN within its hit budget, 0 for the call
// that read the clock.
func (d Decoded) Tick() uint64 {
	if d.Time < OffsetMillis {
		return 0
	}
	return (d.Time - OffsetMillis) % ticksPerMilli
}
