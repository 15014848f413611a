package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxLength is the longest version string accepted.
const MaxLength = 64

// Qualifier ranks. A release without a qualifier is stable.
const (
	RankDev = iota
	RankAlpha
	RankBeta
	RankRC
	RankStable
)

var qualifierRanks = map[string]int{
	"dev":    RankDev,
	"alpha":  RankAlpha,
	"a":      RankAlpha,
	"beta":   RankBeta,
	"b":      RankBeta,
	"rc":     RankRC,
	"stable": RankStable,
}

var (
	// ErrEmpty is returned for an empty version string.
	ErrEmpty = errors.New("version is empty")
	// ErrTooLong is returned for version strings over MaxLength.
	ErrTooLong = fmt.Errorf("version exceeds %d characters", MaxLength)
	// ErrMalformed is returned for strings with characters outside the accepted set.
	ErrMalformed = errors.New("version is malformed")

	allowed  = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._+\-]*$`)
	corePfx  = regexp.MustCompile(`^(\d+)\.x-(\d.*)$`)
	tupleExp = regexp.MustCompile(`^(\d+|x)(?:\.(\d+|x))?(?:\.(\d+|x))?(?:[-.]?([a-z]+)[.\-]?(\d*))?$`)
)

// Version is the normalized, comparable form of a version string.
type Version struct {
	Raw     string
	Core    int
	Major   int
	Minor   int
	Patch   int
	Rank    int
	QualNum int
	// Parsed is false when Raw could not be normalized; such versions compare
	// lexicographically.
	Parsed bool
}

// Validate rejects strings that cannot be stored as a version.
// Parsing never fails; Validate only guards length and character set.
func Validate(s string) error {
	switch {
	case s == "":
		return ErrEmpty
	case len(s) > MaxLength:
		return ErrTooLong
	case !allowed.MatchString(s):
		return fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return nil
}

// Parse normalizes s. Supported shapes include "1.2.3", "v2.0", "8.x-1.2",
// "1.x-dev", "2.0.0-beta3" and "3.1-rc.1".
func Parse(s string) Version {
	v := Version{Raw: s}
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimPrefix(norm, "v")

	if m := corePfx.FindStringSubmatch(norm); m != nil {
		v.Core, _ = strconv.Atoi(m[1])
		norm = m[2]
	}

	m := tupleExp.FindStringSubmatch(norm)
	if m == nil {
		return v
	}
	v.Major = segment(m[1])
	v.Minor = segment(m[2])
	v.Patch = segment(m[3])
	v.Rank = RankStable
	if m[4] != "" {
		rank, ok := qualifierRanks[m[4]]
		if !ok {
			return v
		}
		v.Rank = rank
		v.QualNum, _ = strconv.Atoi(m[5])
	}
	v.Parsed = true
	return v
}

// segment treats wildcard and missing segments as zero.
func segment(s string) int {
	if s == "" || s == "x" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// Compare returns -1, 0 or 1 as a sorts before, equal to, or after b.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	return Parse(a).Compare(Parse(b))
}

// Compare orders v against o.
func (v Version) Compare(o Version) int {
	if !v.Parsed || !o.Parsed {
		return sign(strings.Compare(v.Raw, o.Raw))
	}
	for _, pair := range [][2]int{
		{v.Core, o.Core},
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Patch, o.Patch},
		{v.Rank, o.Rank},
		{v.QualNum, o.QualNum},
	} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	// "1.0", "1.0.0" and "v1.0" are the same release.
	return 0
}

// IsUpgrade reports whether candidate is newer than current.
func IsUpgrade(current, candidate string) bool {
	return Compare(current, candidate) < 0
}

// Max returns the index of the greatest version in vs, or -1 when vs is empty.
// Among equal versions the first one wins.
func Max(vs []string) int {
	best := -1
	for i, s := range vs {
		if best < 0 || Compare(vs[best], s) < 0 {
			best = i
		}
	}
	return best
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
