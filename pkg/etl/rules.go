package etl

import (
	"strings"
	"unicode/utf8"
)

// Pair is one (source, target) candidate flowing through the rule chain.
type Pair struct {
	Source string
	Target string
}

// Rule is a single transformation step. It returns nil when it does not
// apply to the pair, otherwise a non-empty replacement list. Rules never
// mutate their input.
type Rule func(p Pair) []Pair

// VerbMarker tags Bulgarian translations of verbs in the raw export.
const VerbMarker = "/глагол"

// FeminineOnlyTarget is the placeholder some rows carry instead of a real
// translation for the feminine form.
const FeminineOnlyTarget = "-а"

// spanishPronouns is matched in order; the first prefix found is removed.
var spanishPronouns = []string{
	"yo ",
	"tú ",
	"él/ella",
	"él / ella / usted ",
	"nosotros / nosotras ",
	"vosotros / vosotras ",
	"ellos / ellas / ustedes ",
	"nosotros/as ",
	"vosotros/as ",
	"ellos/as ",
}

var bulgarianPronouns = []string{
	"аз ",
	"ти ",
	"той / тя / Вие",
	"той/тя",
	"той ",
	"тя ",
	"Вие ",
	"ние ",
	"вие ",
	"те / Вие (мн.ч.) ",
	"те ",
	"Вие (мн.ч.) ",
}

// StripVerbMarker removes VerbMarker from the target.
func StripVerbMarker(p Pair) []Pair {
	if !strings.Contains(p.Target, VerbMarker) {
		return nil
	}
	cleaned := strings.TrimSpace(strings.ReplaceAll(p.Target, VerbMarker, ""))
	return []Pair{{Source: strings.TrimSpace(p.Source), Target: cleaned}}
}

// StripPronouns removes a leading personal pronoun from conjugated verb
// forms on either side. Infinitives (source ending in "r") are left alone.
func StripPronouns(p Pair) []Pair {
	if strings.HasSuffix(p.Source, "r") {
		return nil
	}

	source := trimFirstPrefix(p.Source, spanishPronouns)
	target := trimFirstPrefix(p.Target, bulgarianPronouns)
	if source == p.Source && target == p.Target {
		return nil
	}
	return []Pair{{Source: strings.TrimSpace(source), Target: strings.TrimSpace(target)}}
}

func trimFirstPrefix(s string, prefixes []string) string {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

// SplitGenderSuffix expands adjective shorthand into masculine and feminine
// forms sharing one target:
//
//	"variado/a"   -> "variado", "variada"
//	"cansado, -a" -> "cansado", "cansada"
func SplitGenderSuffix(p Pair) []Pair {
	if p.Target == FeminineOnlyTarget {
		return nil
	}

	if base, ok := strings.CutSuffix(p.Source, "o/a"); ok {
		return []Pair{
			{Source: base + "o", Target: p.Target},
			{Source: base + "a", Target: p.Target},
		}
	}

	if base, ok := strings.CutSuffix(p.Source, ", -a"); ok {
		return []Pair{
			{Source: base, Target: p.Target},
			{Source: dropLastRune(base) + "a", Target: p.Target},
		}
	}

	return nil
}

func dropLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

// SplitByDelimiter returns a rule that zips both sides split by delim. It
// only applies when both sides contain delim and split into the same number
// of segments.
func SplitByDelimiter(delim string) Rule {
	return func(p Pair) []Pair {
		if !strings.Contains(p.Source, delim) || !strings.Contains(p.Target, delim) {
			return nil
		}

		sources := splitTrimmed(p.Source, delim)
		targets := splitTrimmed(p.Target, delim)
		if len(sources) != len(targets) {
			return nil
		}

		out := make([]Pair, len(sources))
		for i := range sources {
			out[i] = Pair{Source: sources[i], Target: targets[i]}
		}
		return out
	}
}

// SplitTargetByComma fans a comma separated target out into one pair per
// meaning.
func SplitTargetByComma(p Pair) []Pair {
	return splitTarget(p, ",")
}

// SplitTargetBySlash fans a slash separated target out into one pair per
// meaning.
func SplitTargetBySlash(p Pair) []Pair {
	return splitTarget(p, "/")
}

func splitTarget(p Pair, delim string) []Pair {
	if !strings.Contains(p.Target, delim) {
		return nil
	}
	source := strings.TrimSpace(p.Source)
	targets := splitTrimmed(p.Target, delim)
	out := make([]Pair, len(targets))
	for i, t := range targets {
		out[i] = Pair{Source: source, Target: t}
	}
	return out
}

func splitTrimmed(s, delim string) []string {
	parts := strings.Split(s, delim)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// BasicCleanup trims both sides. Pairs with an empty side do not match.
func BasicCleanup(p Pair) []Pair {
	source := strings.TrimSpace(p.Source)
	target := strings.TrimSpace(p.Target)
	if source == "" || target == "" {
		return nil
	}
	return []Pair{{Source: source, Target: target}}
}

// DefaultRules returns the rule chain used for the Spanish/Bulgarian export.
func DefaultRules() []Rule {
	return []Rule{
		StripVerbMarker,
		StripPronouns,
		SplitGenderSuffix,
		SplitByDelimiter(","),
		SplitByDelimiter("/"),
		SplitTargetByComma,
		SplitTargetBySlash,
		BasicCleanup,
	}
}
