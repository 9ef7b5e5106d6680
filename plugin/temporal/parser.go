package temporal

import (
	"strings"
	"time"

	"github.com/hrygo/samay/server/timezone"
)

// Parser turns Hindi/English mixed utterance text into a Spec.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	defaultHour int
}

// NewParser creates a parser that fills 09:00 into repeating phrases spoken
// without a clock or period.
func NewParser() *Parser {
	return &Parser{defaultHour: 9}
}

// Parse recognizes one temporal phrase in input.
//
// Families are tried in order: recurrence markers ("हर", "रोज़") first, then
// clock or date evidence, then duration units. Anything else is a ParseFailure.
func (p *Parser) Parse(input string) (Spec, error) {
	if strings.TrimSpace(input) == "" {
		return nil, parseFailure(input, "empty input")
	}
	g := newGrammar(input)
	if len(g.toks) == 0 {
		return nil, parseFailure(input, "no temporal expression")
	}

	clock, err := g.extractClock()
	if err != nil {
		return nil, err
	}
	if g.hasRecurrenceMarker() {
		return g.recurrence(clock, p.defaultHour)
	}

	period := g.extractPeriod()
	date, err := g.extractDate()
	if err != nil {
		return nil, err
	}
	if clock != nil || date.found || period != PeriodNone {
		return g.absolute(clock, period, date)
	}

	seconds, sawUnit, err := g.extractDuration()
	if err != nil {
		return nil, err
	}
	if seconds > 0 {
		return &Duration{Seconds: seconds}, nil
	}
	if sawUnit {
		return nil, parseFailure(input, "zero duration")
	}
	return nil, parseFailure(input, "no temporal expression")
}

type token struct {
	text  string
	lex   lexeme
	isNum bool
	num   int
	// numeral is set for anything that starts with a digit, recognized or not.
	numeral bool
	clock *Clock
	date  *DateParts
}

func classify(text string) token {
	t := token{text: text, numeral: text[0] >= '0' && text[0] <= '9'}
	if n, ok := parseDigits(text); ok {
		t.isNum, t.num = true, n
		return t
	}
	if c, ok := parseClockLiteral(text); ok {
		t.clock = &c
		return t
	}
	if d, ok := parseDateLiteral(text); ok {
		t.date = &d
		return t
	}
	t.lex = lexicon[text]
	if t.lex.kind == wordNumber {
		t.isNum, t.num = true, t.lex.value
	}
	return t
}

// grammar walks the token stream. Each token plays at most one role;
// used marks tokens already claimed by an earlier rule.
type grammar struct {
	input string
	toks  []token
	used  []bool
}

func newGrammar(input string) *grammar {
	words := tokenize(input)
	g := &grammar{input: input, toks: make([]token, len(words)), used: make([]bool, len(words))}
	for i, w := range words {
		g.toks[i] = classify(w)
	}
	return g
}

func (g *grammar) claim(from, to int) {
	for i := from; i <= to; i++ {
		g.used[i] = true
	}
}

func (g *grammar) free(i int) bool {
	return i >= 0 && i < len(g.toks) && !g.used[i]
}

func (g *grammar) kindAt(i int) wordKind {
	if i < 0 || i >= len(g.toks) {
		return wordNone
	}
	return g.toks[i].lex.kind
}

func (g *grammar) numAt(i int) (int, bool) {
	if !g.free(i) || !g.toks[i].isNum {
		return 0, false
	}
	return g.toks[i].num, true
}

// quantityEndingAt reads a quantity in quarters that ends at token j, such as
// "3", "साढ़े 3", "आधा", "डेढ़" or a bare "सवा".
func (g *grammar) quantityEndingAt(j int) (quarters, start int, ok bool) {
	if !g.free(j) {
		return 0, 0, false
	}
	t := g.toks[j]
	switch {
	case t.isNum:
		if g.free(j-1) && g.kindAt(j-1) == wordModifier {
			return t.num*4 + g.toks[j-1].lex.value, j - 1, true
		}
		return t.num * 4, j, true
	case t.lex.kind == wordFraction:
		return t.lex.value, j, true
	case t.lex.kind == wordModifier && t.lex.value != 2:
		return 4 + t.lex.value, j, true
	}
	return 0, 0, false
}

// clockMatch is a recognized time of day before period placement.
type clockMatch struct {
	clock Clock
	// twelveHour is set when the hour is a 1..12 value that still needs a meridiem.
	twelveHour bool
	// meridiem is set when am/pm fixed the hour.
	meridiem bool
}

func (g *grammar) extractClock() (*clockMatch, error) {
	for i, t := range g.toks {
		if !g.free(i) {
			continue
		}
		switch {
		case t.lex.kind == wordMidnight:
			g.claim(i, i)
			return &clockMatch{clock: Clock{Hour: 0}}, nil

		case t.lex.kind == wordNoon:
			g.claim(i, i)
			return &clockMatch{clock: Clock{Hour: 12}}, nil

		case t.clock != nil:
			c := *t.clock
			if c.Hour > 23 || c.Minute > 59 {
				return nil, parseFailure(g.input, "invalid clock time %s", t.text)
			}
			g.claim(i, i)
			if g.kindAt(i+1) == wordBaje {
				g.claim(i+1, i+1)
			}
			m := &clockMatch{clock: c, twelveHour: c.Hour >= 1 && c.Hour <= 12}
			return g.applyMeridiemAfter(m, i+1)

		case t.lex.kind == wordBaje:
			q, start, ok := g.quantityEndingAt(i - 1)
			if !ok {
				continue
			}
			c := Clock{Hour: q / 4, Minute: (q % 4) * 15}
			if c.Hour == 0 && c.Minute != 0 {
				// "पौने एक" is quarter to one, i.e. 12:45.
				c.Hour = 12
			}
			if c.Hour > 23 {
				return nil, parseFailure(g.input, "hour %d out of range", c.Hour)
			}
			g.claim(start, i)
			if n, ok := g.numAt(i + 1); ok && g.kindAt(i+2) == wordUnit && g.toks[i+2].lex.value == secondsPerMinute {
				if n > 59 || c.Minute != 0 {
					return nil, parseFailure(g.input, "invalid minutes %d", n)
				}
				c.Minute = n
				g.claim(i+1, i+2)
			}
			m := &clockMatch{clock: c, twelveHour: c.Hour >= 1 && c.Hour <= 12}
			return g.applyMeridiemAfter(m, i+1)

		case t.lex.kind == wordMeridiem:
			n, ok := g.numAt(i - 1)
			if !ok {
				continue
			}
			if n < 1 || n > 12 {
				return nil, parseFailure(g.input, "hour %d is not a 12-hour value", n)
			}
			g.claim(i-1, i)
			return applyMeridiem(&clockMatch{clock: Clock{Hour: n}}, t.lex.value == 1), nil
		}
	}
	return nil, nil
}

// applyMeridiemAfter consumes an am/pm marker that trails a clock phrase.
func (g *grammar) applyMeridiemAfter(m *clockMatch, i int) (*clockMatch, error) {
	for i < len(g.toks) && g.used[i] {
		i++
	}
	if !g.free(i) || g.kindAt(i) != wordMeridiem {
		return m, nil
	}
	if !m.twelveHour {
		return nil, parseFailure(g.input, "%s is not a 12-hour value", m.clock)
	}
	g.claim(i, i)
	return applyMeridiem(m, g.toks[i].lex.value == 1), nil
}

func applyMeridiem(m *clockMatch, pm bool) *clockMatch {
	h := m.clock.Hour % 12
	if pm {
		h += 12
	}
	m.clock.Hour = h
	m.twelveHour = false
	m.meridiem = true
	return m
}

func (g *grammar) extractPeriod() Period {
	for i, t := range g.toks {
		if g.free(i) && t.lex.kind == wordPeriod {
			g.claim(i, i)
			return Period(t.lex.value)
		}
	}
	return PeriodNone
}

// dateMatch collects date evidence for an absolute instant.
type dateMatch struct {
	parts       DateParts
	dayOffset   *int
	monthOffset int
	weekday     *WeekdayConstraint
	found       bool
}

func (g *grammar) extractDate() (dateMatch, error) {
	var d dateMatch

	for i, t := range g.toks {
		if g.free(i) && t.date != nil {
			d.parts = *t.date
			g.claim(i, i)
			break
		}
	}

	setOffset := func(n int) error {
		if d.dayOffset != nil && *d.dayOffset != n {
			return parseFailure(g.input, "conflicting relative days")
		}
		d.dayOffset = &n
		return nil
	}
	setWeekday := func(w time.Weekday, next bool) error {
		if d.weekday != nil && d.weekday.Day != w {
			return parseFailure(g.input, "conflicting weekdays")
		}
		if d.weekday == nil || next {
			d.weekday = &WeekdayConstraint{Day: w, Next: next}
		}
		return nil
	}

	for i, t := range g.toks {
		if !g.free(i) || t.lex.kind != wordNext {
			continue
		}
		switch {
		case g.free(i+1) && g.kindAt(i+1) == wordWeekday:
			if err := setWeekday(time.Weekday(g.toks[i+1].lex.value), true); err != nil {
				return d, err
			}
			g.claim(i, i+1)
		case g.free(i+1) && g.kindAt(i+1) == wordUnit && g.toks[i+1].lex.value == secondsPerWeek:
			g.claim(i, i+1)
			if g.free(i+2) && g.kindAt(i+2) == wordWeekday {
				if err := setWeekday(time.Weekday(g.toks[i+2].lex.value), true); err != nil {
					return d, err
				}
				g.claim(i+2, i+2)
			} else if err := setOffset(7); err != nil {
				return d, err
			}
		case g.free(i+1) && g.kindAt(i+1) == wordMonthWord:
			d.monthOffset = 1
			g.claim(i, i+1)
		}
	}

	for i, t := range g.toks {
		if !g.free(i) {
			continue
		}
		switch t.lex.kind {
		case wordRelDay:
			if err := setOffset(t.lex.value); err != nil {
				return d, err
			}
			g.claim(i, i)
		case wordWeekday:
			if err := setWeekday(time.Weekday(t.lex.value), false); err != nil {
				return d, err
			}
			g.claim(i, i)
		}
	}

	setDay := func(n int) error {
		if n < 1 || n > 31 {
			return parseFailure(g.input, "day %d out of range", n)
		}
		if d.parts.Day != 0 && d.parts.Day != n {
			return parseFailure(g.input, "conflicting days %d and %d", d.parts.Day, n)
		}
		d.parts.Day = n
		return nil
	}

	for i, t := range g.toks {
		if !g.free(i) {
			continue
		}
		switch t.lex.kind {
		case wordTarikh:
			n, ok := g.numAt(i - 1)
			if !ok {
				continue
			}
			if err := setDay(n); err != nil {
				return d, err
			}
			g.claim(i-1, i)
		case wordMonth:
			if d.parts.Month != 0 {
				continue
			}
			d.parts.Month = time.Month(t.lex.value)
			g.claim(i, i)
			if n, ok := g.numAt(i - 1); ok {
				if err := setDay(n); err != nil {
					return d, err
				}
				g.claim(i-1, i-1)
			} else if n, ok := g.numAt(i + 1); ok && n <= 31 {
				if err := setDay(n); err != nil {
					return d, err
				}
				g.claim(i+1, i+1)
			}
			for j := i + 1; j <= i+2; j++ {
				if n, ok := g.numAt(j); ok && n >= 1000 {
					d.parts.Year = n
					g.claim(j, j)
					break
				}
			}
			if d.parts.Day == 0 {
				return d, parseFailure(g.input, "month without a day")
			}
		}
	}

	if err := g.validateDate(&d); err != nil {
		return d, err
	}
	d.found = !d.parts.IsZero() || d.dayOffset != nil || d.monthOffset != 0 || d.weekday != nil
	return d, nil
}

func (g *grammar) validateDate(d *dateMatch) error {
	p := d.parts
	if p.Month < 0 {
		return parseFailure(g.input, "month out of range")
	}
	if p.Day != 0 && (p.Day < 1 || p.Day > 31) {
		return parseFailure(g.input, "day %d out of range", p.Day)
	}
	if p.Month != 0 && p.Day != 0 {
		maxDay := timezone.DaysIn(2024, p.Month) // leap year: Feb 29 allowed without a year
		if p.Year != 0 {
			maxDay = timezone.DaysIn(p.Year, p.Month)
		}
		if p.Day > maxDay {
			return parseFailure(g.input, "day %d does not exist in %s", p.Day, p.Month)
		}
	}
	if p.Day != 0 && d.dayOffset != nil {
		return parseFailure(g.input, "relative day conflicts with explicit date")
	}
	if p.Month != 0 && d.monthOffset != 0 {
		return parseFailure(g.input, "next month conflicts with explicit month")
	}
	if d.weekday != nil && p.Year != 0 && p.Month != 0 && p.Day != 0 {
		actual := time.Date(p.Year, p.Month, p.Day, 0, 0, 0, 0, time.UTC).Weekday()
		if actual != d.weekday.Day {
			return parseFailure(g.input, "%s is a %s, not a %s",
				time.Date(p.Year, p.Month, p.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), actual, d.weekday.Day)
		}
	}
	return nil
}

func (g *grammar) absolute(c *clockMatch, period Period, d dateMatch) (Spec, error) {
	if c == nil {
		return nil, parseFailure(g.input, "no hour")
	}
	a := &AbsoluteInstant{
		Date:        d.parts,
		DayOffset:   d.dayOffset,
		MonthOffset: d.monthOffset,
		Weekday:     d.weekday,
		Period:      period,
	}
	switch {
	case c.twelveHour && period != PeriodNone:
		a.Clock = Clock{Hour: period.place(c.clock.Hour), Minute: c.clock.Minute}
	case c.twelveHour:
		a.Clock = c.clock
		a.Flags |= AmbiguousMeridiem
	default:
		if period != PeriodNone && !c.meridiem && !period.Contains(c.clock.Hour) {
			return nil, parseFailure(g.input, "%s contradicts %s", c.clock, period)
		}
		a.Clock = c.clock
	}
	return a, nil
}

func (g *grammar) hasRecurrenceMarker() bool {
	for i, t := range g.toks {
		if g.free(i) && (t.lex.kind == wordEvery || t.lex.kind == wordDaily) {
			return true
		}
	}
	return false
}

func (g *grammar) recurrence(c *clockMatch, defaultHour int) (Spec, error) {
	daily := false
	weekly := false
	for i, t := range g.toks {
		if !g.free(i) {
			continue
		}
		switch t.lex.kind {
		case wordDaily:
			daily = true
			g.claim(i, i)
		case wordEvery:
			g.claim(i, i)
			next := i + 1
			if _, ok := g.numAt(next); ok {
				return nil, parseFailure(g.input, "interval recurrence is not supported")
			}
			switch g.kindAt(next) {
			case wordUnit:
				switch g.toks[next].lex.value {
				case secondsPerDay:
					daily = true
				case secondsPerWeek:
					weekly = true
				default:
					return nil, parseFailure(g.input, "interval recurrence is not supported")
				}
				g.claim(next, next)
			case wordPeriod, wordDaily:
				daily = true
			}
		}
	}

	var days WeekdaySet
	for i := 0; i < len(g.toks); i++ {
		if !g.free(i) {
			continue
		}
		t := g.toks[i]
		switch t.lex.kind {
		case wordWeekday:
			first := time.Weekday(t.lex.value)
			if g.kindAt(i+1) == wordRange && g.free(i+2) && g.kindAt(i+2) == wordWeekday {
				days |= Span(first, time.Weekday(g.toks[i+2].lex.value))
				g.claim(i, i+2)
				i += 2
				continue
			}
			days = days.Add(first)
			g.claim(i, i)
		case wordGroup:
			days |= WeekdaySet(t.lex.value)
			g.claim(i, i)
		}
	}
	if days.IsEmpty() && !daily {
		if weekly {
			return nil, parseFailure(g.input, "weekly recurrence needs a weekday")
		}
		return nil, parseFailure(g.input, "recurrence without days")
	}
	if days == EveryDay {
		days = 0
	}

	r := &Recurrence{Days: days}
	period := g.extractPeriod()
	switch {
	case c == nil && period != PeriodNone:
		r.TimeOfDay = Clock{Hour: period.defaultHour()}
		r.Flags |= DefaultedHour
	case c == nil:
		r.TimeOfDay = Clock{Hour: defaultHour}
		r.Flags |= DefaultedHour
	case c.twelveHour && period != PeriodNone:
		r.TimeOfDay = Clock{Hour: period.place(c.clock.Hour), Minute: c.clock.Minute}
	case c.twelveHour:
		// A repeating time needs one meridiem: 7-11 stays AM, 12 is noon, 1-6 is PM.
		h := c.clock.Hour
		if h >= 1 && h <= 6 {
			h += 12
		}
		r.TimeOfDay = Clock{Hour: h, Minute: c.clock.Minute}
		r.Flags |= AmbiguousMeridiem
	default:
		if period != PeriodNone && !c.meridiem && !period.Contains(c.clock.Hour) {
			return nil, parseFailure(g.input, "%s contradicts %s", c.clock, period)
		}
		r.TimeOfDay = c.clock
	}
	return r, nil
}

// extractDuration sums every remaining quantity+unit pair. A unit with no
// quantity counts once ("घंटे का टाइमर"), unless a numeral the grammar could
// not read sits in front of it.
func (g *grammar) extractDuration() (seconds int64, sawUnit bool, err error) {
	for i, t := range g.toks {
		if !g.free(i) || t.lex.kind != wordUnit {
			continue
		}
		sawUnit = true
		q, start, ok := g.quantityEndingAt(i - 1)
		if !ok {
			if g.free(i-1) && g.toks[i-1].numeral {
				return 0, sawUnit, parseFailure(g.input, "unrecognized quantity %s", g.toks[i-1].text)
			}
			q, start = 4, i
		}
		seconds += int64(q) * int64(t.lex.value) / 4
		g.claim(start, i)
	}
	return seconds, sawUnit, nil
}
