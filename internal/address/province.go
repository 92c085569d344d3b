package address

import "strings"

// provinces maps abbreviated 도 names to their official form. Order matters
// only for readability; no abbreviation is a prefix of another.
var provinces = []struct {
	short string
	full  string
}{
	{"경기", "경기도"},
	{"강원", "강원도"},
	{"충북", "충청북도"},
	{"충남", "충청남도"},
	{"전북", "전라북도"},
	{"전남", "전라남도"},
	{"경북", "경상북도"},
	{"경남", "경상남도"},
	{"제주", "제주특별자치도"},
}

// expandProvince rewrites a leading abbreviated province. The abbreviation
// must be followed by a space, so "경기도" and "경기" alone are left as is.
func expandProvince(s string) string {
	for _, p := range provinces {
		if rest, ok := strings.CutPrefix(s, p.short+" "); ok {
			return p.full + " " + rest
		}
	}
	return s
}
