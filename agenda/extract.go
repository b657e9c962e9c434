package agenda

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"agenda-api/domain"
)

// numericDateToken matches a DD/MM/YYYY run bounded by start/end of string,
// whitespace or punctuation. The capture groups are day, month, year.
var numericDateToken = regexp.MustCompile(`(?:^|[\s\p{P}])((\d{2})/(\d{2})/(\d{4}))(?:[\s\p{P}]|$)`)

// weekdays maps folded Portuguese weekday names and abbreviations to Go
// weekdays. The optional "-feira" suffix is stripped before lookup.
var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday,
	"dom":     time.Sunday,
	"segunda": time.Monday,
	"seg":     time.Monday,
	"terca":   time.Tuesday,
	"ter":     time.Tuesday,
	"quarta":  time.Wednesday,
	"qua":     time.Wednesday,
	"quinta":  time.Thursday,
	"qui":     time.Thursday,
	"sexta":   time.Friday,
	"sex":     time.Friday,
	"sabado":  time.Saturday,
	"sab":     time.Saturday,
}

// ExtractDate recognizes at most one date token in an inline-add title. A
// numeric DD/MM/YYYY token wins over a weekday name; weekday names resolve to
// the nearest matching day on or after today, today included. The matched
// token is removed from the returned title and leftover double spaces are
// collapsed. When nothing matches, the title comes back unchanged and ok is
// false.
//
// The result depends only on (title, today), so callers decide what "today"
// means.
func ExtractDate(title string, today time.Time) (clean string, date time.Time, ok bool) {
	if clean, date, ok = extractNumericDate(title, today.Location()); ok {
		return clean, date, true
	}
	if clean, date, ok = extractWeekday(title, today); ok {
		return clean, date, true
	}
	return title, time.Time{}, false
}

func extractNumericDate(title string, loc *time.Location) (string, time.Time, bool) {
	m := numericDateToken.FindStringSubmatchIndex(title)
	if m == nil {
		return title, time.Time{}, false
	}
	day, _ := strconv.Atoi(title[m[4]:m[5]])
	month, _ := strconv.Atoi(title[m[6]:m[7]])
	year, _ := strconv.Atoi(title[m[8]:m[9]])

	// Rebuild the date and read the fields back; time.Date normalizes
	// overflow (31/02 becomes 02/03 or 03/03), so any drift means the token
	// never named a real calendar day.
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Day() != day || date.Month() != time.Month(month) || date.Year() != year {
		return title, time.Time{}, false
	}

	clean := collapseSpaces(title[:m[2]] + " " + title[m[3]:])
	return clean, date, true
}

func extractWeekday(title string, today time.Time) (string, time.Time, bool) {
	for _, tok := range splitWords(title) {
		core := strings.TrimFunc(tok.text, unicode.IsPunct)
		if core == "" {
			continue
		}
		name := foldString(core)
		name = strings.TrimSuffix(name, "-feira")
		wd, found := weekdays[name]
		if !found {
			continue
		}
		// Offsets of the punctuation-trimmed core within the original title.
		lead := len(tok.text) - len(strings.TrimLeftFunc(tok.text, unicode.IsPunct))
		start := tok.start + lead
		end := start + len(core)
		clean := collapseSpaces(title[:start] + " " + title[end:])
		return clean, nextOnOrAfter(today, wd), true
	}
	return title, time.Time{}, false
}

// nextOnOrAfter returns the first day on or after today whose weekday is wd.
// Asking for today's own weekday returns today, not a week later.
func nextOnOrAfter(today time.Time, wd time.Weekday) time.Time {
	day := domain.Midnight(today)
	delta := (int(wd) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, delta)
}

type word struct {
	text  string
	start int
}

// splitWords breaks s into whitespace-delimited runs, keeping byte offsets so
// a matched token can be cut out of the original string.
func splitWords(s string) []word {
	var out []word
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, word{text: s[start:i], start: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word{text: s[start:], start: start})
	}
	return out
}
