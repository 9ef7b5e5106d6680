package temporal

import "time"

// wordKind is the grammatical role of a lexicon entry.
type wordKind int

const (
	wordNone wordKind = iota
	wordNumber
	wordFraction // value in quarters
	wordModifier // quarters added to the following number
	wordBaje
	wordUnit // value in seconds
	wordPeriod
	wordMeridiem // 0 am, 1 pm
	wordRelDay
	wordWeekday
	wordMonth
	wordMonthWord
	wordTarikh
	wordNext
	wordEvery
	wordDaily
	wordRange
	wordGroup // value is a WeekdaySet
	wordMidnight
	wordNoon
)

type lexeme struct {
	kind  wordKind
	value int
}

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
	secondsPerWeek   = 7 * secondsPerDay
)

// lexicon maps normalized words to their role. Keys go through normalizeText,
// so spelling variants that differ only in nukta or chandrabindu collapse.
var lexicon = buildLexicon()

func buildLexicon() map[string]lexeme {
	m := make(map[string]lexeme, 512)
	add := func(kind wordKind, value int, words ...string) {
		for _, w := range words {
			m[normalizeText(w)] = lexeme{kind: kind, value: value}
		}
	}

	// Hindi number words.
	numbers := []struct {
		value int
		words []string
	}{
		{0, []string{"शून्य", "zero"}},
		{1, []string{"एक", "one"}},
		{2, []string{"दो", "two"}},
		{3, []string{"तीन", "three"}},
		{4, []string{"चार", "four"}},
		{5, []string{"पांच", "पाँच", "five"}},
		{6, []string{"छह", "छः", "छे", "छ", "six"}},
		{7, []string{"सात", "seven"}},
		{8, []string{"आठ", "eight"}},
		{9, []string{"नौ", "nine"}},
		{10, []string{"दस", "ten"}},
		{11, []string{"ग्यारह", "eleven"}},
		{12, []string{"बारह", "twelve"}},
		{13, []string{"तेरह"}},
		{14, []string{"चौदह"}},
		{15, []string{"पंद्रह", "पन्द्रह", "fifteen"}},
		{16, []string{"सोलह"}},
		{17, []string{"सत्रह"}},
		{18, []string{"अठारह"}},
		{19, []string{"उन्नीस"}},
		{20, []string{"बीस", "twenty"}},
		{21, []string{"इक्कीस"}},
		{22, []string{"बाईस"}},
		{23, []string{"तेईस"}},
		{24, []string{"चौबीस"}},
		{25, []string{"पच्चीस"}},
		{26, []string{"छब्बीस"}},
		{27, []string{"सत्ताईस"}},
		{28, []string{"अट्ठाईस", "अठ्ठाईस"}},
		{29, []string{"उनतीस"}},
		{30, []string{"तीस", "thirty"}},
		{31, []string{"इकतीस", "इकत्तीस"}},
		{32, []string{"बत्तीस"}},
		{33, []string{"तैंतीस", "तेंतीस"}},
		{34, []string{"चौंतीस", "चौतीस"}},
		{35, []string{"पैंतीस"}},
		{36, []string{"छत्तीस"}},
		{37, []string{"सैंतीस"}},
		{38, []string{"अड़तीस"}},
		{39, []string{"उनतालीस", "उन्तालीस"}},
		{40, []string{"चालीस", "forty"}},
		{41, []string{"इकतालीस"}},
		{42, []string{"बयालीस"}},
		{43, []string{"तैंतालीस", "तेंतालीस"}},
		{44, []string{"चौवालीस", "चवालीस"}},
		{45, []string{"पैंतालीस"}},
		{46, []string{"छियालीस"}},
		{47, []string{"सैंतालीस"}},
		{48, []string{"अड़तालीस"}},
		{49, []string{"उनचास"}},
		{50, []string{"पचास", "fifty"}},
		{51, []string{"इक्यावन"}},
		{52, []string{"बावन"}},
		{53, []string{"तिरपन", "तिरेपन"}},
		{54, []string{"चौवन", "चव्वन"}},
		{55, []string{"पचपन"}},
		{56, []string{"छप्पन"}},
		{57, []string{"सत्तावन"}},
		{58, []string{"अट्ठावन", "अठ्ठावन"}},
		{59, []string{"उनसठ"}},
		{60, []string{"साठ", "sixty"}},
		{61, []string{"इकसठ"}},
		{62, []string{"बासठ"}},
		{63, []string{"तिरसठ"}},
		{64, []string{"चौंसठ"}},
		{65, []string{"पैंसठ"}},
		{66, []string{"छियासठ"}},
		{67, []string{"सड़सठ", "सरसठ"}},
		{68, []string{"अड़सठ"}},
		{69, []string{"उनहत्तर"}},
		{70, []string{"सत्तर"}},
		{71, []string{"इकहत्तर"}},
		{72, []string{"बहत्तर"}},
		{73, []string{"तिहत्तर"}},
		{74, []string{"चौहत्तर"}},
		{75, []string{"पचहत्तर"}},
		{76, []string{"छिहत्तर"}},
		{77, []string{"सतहत्तर"}},
		{78, []string{"अठहत्तर"}},
		{79, []string{"उन्यासी", "उनासी"}},
		{80, []string{"अस्सी"}},
		{81, []string{"इक्यासी"}},
		{82, []string{"बयासी"}},
		{83, []string{"तिरासी"}},
		{84, []string{"चौरासी"}},
		{85, []string{"पचासी"}},
		{86, []string{"छियासी"}},
		{87, []string{"सत्तासी"}},
		{88, []string{"अट्ठासी", "अठ्ठासी"}},
		{89, []string{"नवासी"}},
		{90, []string{"नब्बे"}},
		{91, []string{"इक्यानबे", "इक्यानवे"}},
		{92, []string{"बानबे", "बानवे"}},
		{93, []string{"तिरानबे", "तिरानवे"}},
		{94, []string{"चौरानबे", "चौरानवे"}},
		{95, []string{"पचानबे", "पचानवे"}},
		{96, []string{"छियानबे", "छियानवे"}},
		{97, []string{"सत्तानबे", "सत्तानवे"}},
		{98, []string{"अट्ठानबे", "अट्ठानवे"}},
		{99, []string{"निन्यानबे", "निन्यानवे"}},
		{100, []string{"सौ"}},
	}
	for _, n := range numbers {
		add(wordNumber, n.value, n.words...)
	}

	add(wordFraction, 2, "आधा", "आधे", "आधी", "half")
	add(wordFraction, 6, "डेढ़", "डेढ")
	add(wordFraction, 10, "ढाई", "अढ़ाई")
	add(wordModifier, 2, "साढ़े", "साढे")
	add(wordModifier, 1, "सवा")
	add(wordModifier, -1, "पौने")

	add(wordBaje, 0, "बजे", "बजकर", "बज", "बजा", "बाजे", "oclock")

	add(wordUnit, 1, "सेकंड", "सेकेंड", "सेकण्ड", "सेकेण्ड", "second", "seconds", "sec", "secs")
	add(wordUnit, secondsPerMinute, "मिनट", "मिनिट", "मिनटों", "मिनट्स", "minute", "minutes", "min", "mins")
	add(wordUnit, secondsPerHour, "घंटा", "घंटे", "घंटों", "घण्टा", "घण्टे", "घन्टा", "घन्टे", "hour", "hours", "hr", "hrs")
	add(wordUnit, secondsPerDay, "दिन", "दिनों", "day", "days")
	add(wordUnit, secondsPerWeek, "हफ्ता", "हफ्ते", "हफ़्ता", "हफ़्ते", "सप्ताह", "week", "weeks")

	add(wordPeriod, int(PeriodMorning), "सुबह", "सवेरे", "सवेरा", "प्रातः", "प्रात", "morning")
	add(wordPeriod, int(PeriodAfternoon), "दोपहर", "afternoon")
	add(wordPeriod, int(PeriodEvening), "शाम", "साँझ", "सांझ", "evening")
	add(wordPeriod, int(PeriodNight), "रात", "रात्रि", "night")

	add(wordMeridiem, 0, "am", "एएम", "ए.एम", "a.m")
	add(wordMeridiem, 1, "pm", "पीएम", "पी.एम", "p.m")

	add(wordMidnight, 0, "मध्यरात्रि", "आधीरात", "midnight")
	add(wordNoon, 12, "मध्याह्न", "noon")

	add(wordRelDay, 0, "आज", "today")
	add(wordRelDay, 1, "कल", "tomorrow")
	add(wordRelDay, 2, "परसों", "परसो")
	add(wordRelDay, 3, "नरसों", "नरसो")

	weekdays := []struct {
		day   time.Weekday
		words []string
	}{
		{time.Monday, []string{"सोमवार", "सोम", "मंडे", "monday", "mon"}},
		{time.Tuesday, []string{"मंगलवार", "मंगल", "ट्यूजडे", "ट्यूसडे", "tuesday", "tue"}},
		{time.Wednesday, []string{"बुधवार", "बुध", "वेडनेसडे", "वेंसडे", "wednesday", "wed"}},
		{time.Thursday, []string{"गुरुवार", "गुरूवार", "बृहस्पतिवार", "वीरवार", "थर्सडे", "thursday", "thu"}},
		{time.Friday, []string{"शुक्रवार", "शुक्र", "फ्राइडे", "फ्रायडे", "friday", "fri"}},
		{time.Saturday, []string{"शनिवार", "शनि", "सैटरडे", "saturday", "sat"}},
		{time.Sunday, []string{"रविवार", "इतवार", "संडे", "sunday", "sun"}},
	}
	for _, w := range weekdays {
		add(wordWeekday, int(w.day), w.words...)
	}
	add(wordGroup, int(Weekend), "वीकेंड", "सप्ताहांत", "weekend", "weekends")
	add(wordGroup, int(WorkWeek), "वीकडे", "वीकडेज", "weekday", "weekdays")

	months := []struct {
		month time.Month
		words []string
	}{
		{time.January, []string{"जनवरी", "january", "jan"}},
		{time.February, []string{"फरवरी", "फ़रवरी", "february", "feb"}},
		{time.March, []string{"मार्च", "march"}},
		{time.April, []string{"अप्रैल", "april", "apr"}},
		{time.May, []string{"मई"}},
		{time.June, []string{"जून", "june"}},
		{time.July, []string{"जुलाई", "july"}},
		{time.August, []string{"अगस्त", "august", "aug"}},
		{time.September, []string{"सितंबर", "सितम्बर", "september", "sep", "sept"}},
		{time.October, []string{"अक्टूबर", "अक्तूबर", "october", "oct"}},
		{time.November, []string{"नवंबर", "नवम्बर", "november", "nov"}},
		{time.December, []string{"दिसंबर", "दिसम्बर", "december", "dec"}},
	}
	for _, mo := range months {
		add(wordMonth, int(mo.month), mo.words...)
	}
	add(wordMonthWord, 0, "महीने", "महीना", "माह", "month")
	add(wordTarikh, 0, "तारीख", "तारीख़", "तारिख", "तिथि", "date")

	add(wordNext, 0, "अगले", "अगला", "अगली", "नेक्स्ट", "next", "आगामी")
	add(wordEvery, 0, "हर", "प्रत्येक", "every", "each")
	add(wordDaily, 0, "रोज", "रोज़", "रोजाना", "रोज़ाना", "प्रतिदिन", "नित्य", "daily", "everyday")
	add(wordRange, 0, "से", "to", "till", "until")

	return m
}
