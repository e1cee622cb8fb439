package quiz

import (
	"fmt"
	"strings"

	"github.com/japaniel/aprendo/pkg/translations"
)

// Direction says which language a word is presented in and which one the
// answer is expected in.
type Direction struct {
	From translations.Language
	To   translations.Language
}

var (
	SpanishToBulgarian = Direction{From: translations.Spanish, To: translations.Bulgarian}
	BulgarianToSpanish = Direction{From: translations.Bulgarian, To: translations.Spanish}
)

var languageNames = map[translations.Language]string{
	translations.Spanish:   "Spanish",
	translations.Bulgarian: "Bulgarian",
}

func languageName(l translations.Language) string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

// String returns the label shown to the user, e.g. "Spanish → Bulgarian".
func (d Direction) String() string {
	return languageName(d.From) + " → " + languageName(d.To)
}

// Code returns the short form, e.g. "es-bg".
func (d Direction) Code() string {
	return string(d.From) + "-" + string(d.To)
}

// Reverse swaps the two languages.
func (d Direction) Reverse() Direction {
	return Direction{From: d.To, To: d.From}
}

// ParseDirection accepts either a code ("es-bg") or a label
// ("Spanish → Bulgarian").
func ParseDirection(s string) (Direction, error) {
	s = strings.TrimSpace(s)
	for _, d := range []Direction{SpanishToBulgarian, BulgarianToSpanish} {
		if strings.EqualFold(s, d.Code()) || s == d.String() {
			return d, nil
		}
	}
	return Direction{}, fmt.Errorf("unknown direction %q", s)
}
