package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	nukta        = '\u093C'
	chandrabindu = '\u0901'
	anusvara     = '\u0902'
	zwnj         = '\u200C'
	zwj          = '\u200D'
	devaZero     = '\u0966'
	devaNine     = '\u096F'
)

var (
	clockLiteral   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	dayFirstDate   = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2}|\d{4}))?$`)
	yearFirstDate  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	latinAbbrevDot = regexp.MustCompile(`^[a-z]+(\.[a-z]+)+$`)
)

// normalizeText folds the spelling variants that carry no temporal meaning:
// nukta and joiners are dropped, chandrabindu becomes anusvara, Devanagari
// digits become ASCII and Latin letters are lowercased.
func normalizeText(s string) string {
	s = norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == nukta, r == zwnj, r == zwj:
			continue
		case r == chandrabindu:
			b.WriteRune(anusvara)
		case r >= devaZero && r <= devaNine:
			b.WriteRune('0' + (r - devaZero))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return norm.NFC.String(b.String())
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', '?', '!', ';', '"', '\'', '(', ')', '[', ']', '।', '॥', '…', '“', '”', '‘', '’':
		return true
	}
	return false
}

// tokenize normalizes s and splits it into words. A digit run glued to a
// lexicon word ("7बजे", "10am") is split in two.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(normalizeText(s), isSeparator)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".-")
		if f == "" {
			continue
		}
		if latinAbbrevDot.MatchString(f) {
			f = strings.ReplaceAll(f, ".", "")
		}
		out = append(out, splitAttached(f)...)
	}
	return out
}

func splitAttached(f string) []string {
	i := strings.IndexFunc(f, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != ':'
	})
	if i <= 0 || i == len(f) {
		return []string{f}
	}
	if _, ok := lexicon[f[i:]]; !ok {
		return []string{f}
	}
	return []string{f[:i], f[i:]}
}

// parseDigits accepts an ASCII digit run of at most four digits.
func parseDigits(s string) (int, bool) {
	if s == "" || len(s) > 4 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func parseClockLiteral(s string) (Clock, bool) {
	m := clockLiteral.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return Clock{Hour: h, Minute: min}, true
}

// parseDateLiteral recognizes DD/MM[/YYYY], DD-MM-YYYY and YYYY-MM-DD.
// Range checks are left to the grammar.
func parseDateLiteral(s string) (DateParts, bool) {
	if m := yearFirstDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return DateParts{Year: y, Month: monthOf(mo), Day: d}, true
	}
	if m := dayFirstDate.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y := 0
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
		}
		return DateParts{Year: y, Month: monthOf(mo), Day: d}, true
	}
	return DateParts{}, false
}

// monthOf keeps out-of-range months visible to validation as -1.
func monthOf(n int) time.Month {
	if n < 1 || n > 12 {
		return -1
	}
	return time.Month(n)
}
