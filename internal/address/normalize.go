// Package address cleans raw Korean address strings into the canonical form
// accepted by the VWorld geocoder.
package address

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	percentEscape = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

	// Trailing unit descriptors. The digits must start a token so that
	// administrative dongs such as "역삼1동" survive.
	unitSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|\s)\d+동\s*\d+호$`),
		regexp.MustCompile(`(?:^|\s)\d+동$`),
		regexp.MustCompile(`(?:^|\s)\d+호$`),
	}

	buildingWord  = regexp.MustCompile(`(?i)\s*(?:아파트|APT|상가|빌딩|오피스텔)$`)
	apartmentWord = regexp.MustCompile(`(?i)아파트|APT`)
	buildingUnit  = regexp.MustCompile(`(\d+)동\s*(\d+)호`)
	trailingLot   = regexp.MustCompile(`\d+(?:-\d+)?$`)
)

// Parsed is a normalized address plus the details pulled out of the raw input.
type Parsed struct {
	Raw            string
	Address        string // normalized main body
	BuildingNumber string // "456" from ", 456동 789호"; empty when absent
	Apartment      bool
}

// Normalize returns the canonical form of raw. It never fails; malformed
// input yields a best-effort cleaned string.
func Normalize(raw string) string {
	return Parse(raw).Address
}

// Parse normalizes raw and extracts the apartment building number from the
// comma-separated remainder.
func Parse(raw string) Parsed {
	s := norm.NFC.String(decode(raw))

	body, rest, _ := strings.Cut(s, ",")
	body = expandProvince(collapse(body))

	p := Parsed{
		Raw:       raw,
		Apartment: apartmentWord.MatchString(body) || buildingUnit.MatchString(body),
		Address:   stripSuffixes(body),
	}

	if m := buildingUnit.FindStringSubmatch(rest); m != nil {
		p.BuildingNumber = m[1]
		p.Apartment = true
	}
	return p
}

// GroupingForm separates a trailing lot number from the preceding token
// ("영통동123" -> "영통동 123") so trivially different spellings group together.
func GroupingForm(addr string) string {
	loc := trailingLot.FindStringIndex(addr)
	if loc == nil || loc[0] == 0 {
		return addr
	}
	return strings.TrimSpace(addr[:loc[0]]) + " " + addr[loc[0]:]
}

// decode URL-decodes s while it still contains percent escapes. A literal
// "+" is kept. On a decode error the last good value is kept.
func decode(s string) string {
	for percentEscape.MatchString(s) {
		decoded, err := url.PathUnescape(s)
		if err != nil || decoded == s {
			return s
		}
		s = decoded
	}
	return s
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripSuffixes removes unit descriptors and building-type words until
// neither matches, so "래미안 아파트 101동" and "래미안 101동 아파트" both end
// up as "래미안".
func stripSuffixes(s string) string {
	for {
		before := s
		for _, re := range unitSuffixes {
			s = strings.TrimSpace(re.ReplaceAllString(s, ""))
		}
		s = strings.TrimSpace(buildingWord.ReplaceAllString(s, ""))
		if s == before {
			return s
		}
	}
}
