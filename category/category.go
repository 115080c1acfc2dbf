// Package category assigns extracted declarations to the cosmetic
// groups used to order and headline the emitted documents. Categories
// carry no semantic weight for wrapper synthesis.
package category

import "regexp"

type Category string

const (
	Calendar  Category = "calendar"
	Planets   Category = "planets"
	Flags     Category = "flags"
	Sidereal  Category = "sidereal"
	Houses    Category = "houses"
	Eclipses  Category = "eclipses"
	RiseTrans Category = "risetrans"
	Other     Category = "other"
)

// All lists every category in emission order.
var All = []Category{Calendar, Planets, Flags, Sidereal, Houses, Eclipses, RiseTrans, Other}

// Title returns the human readable group heading.
func (c Category) Title() string {
	switch c {
	case Calendar:
		return "Calendar & time"
	case Planets:
		return "Planetary bodies"
	case Flags:
		return "Calculation flags"
	case Sidereal:
		return "Sidereal modes"
	case Houses:
		return "Houses"
	case Eclipses:
		return "Eclipses & occultations"
	case RiseTrans:
		return "Risings, settings & transits"
	}
	return "Other"
}

type rule struct {
	re  *regexp.Regexp
	cat Category
}

// Evaluated in order; first match wins, Other is the fallback.
var constantRules = []rule{
	{regexp.MustCompile(`^SE_(JUL_CAL|GREG_CAL|GREG_FLAG)$`), Calendar},
	{regexp.MustCompile(`^SE_(ECL_NUT|SUN|MOON|MERCURY|VENUS|MARS|JUPITER|SATURN|URANUS|NEPTUNE|PLUTO|EARTH|MEAN_NODE|TRUE_NODE|MEAN_APOG|OSCU_APOG|INTP_APOG|INTP_PERG|CHIRON|PHOLUS|CERES|PALLAS|JUNO|VESTA|NPLANETS|PLMOON_OFFSET|AST_OFFSET|FICT_OFFSET|NFICT_ELEM|COMET_OFFSET)$`), Planets},
	{regexp.MustCompile(`^SEFLG_`), Flags},
	{regexp.MustCompile(`^SE_SIDM_|^SE_SIDBIT`), Sidereal},
	{regexp.MustCompile(`^SE_(HSYS|HOUSE)`), Houses},
	{regexp.MustCompile(`^SE_ECL_`), Eclipses},
	{regexp.MustCompile(`^SE_CALC_(RISE|SET|MTRANSIT|ITRANSIT)$|^SE_BIT_`), RiseTrans},
}

var routineRules = []rule{
	{regexp.MustCompile(`jul|utc|date|deltat|sidtime|time_equ|lmt|lat_to_lmt`), Calendar},
	{regexp.MustCompile(`house`), Houses},
	{regexp.MustCompile(`eclipse|occult`), Eclipses},
	{regexp.MustCompile(`rise_trans|azalt`), RiseTrans},
	{regexp.MustCompile(`sid_mode|ayanamsa`), Sidereal},
	{regexp.MustCompile(`calc|fixstar|planet|nod_aps|pheno|orbital`), Planets},
}

// OfConstant maps a constant name to its category. Total: every name
// yields exactly one category.
func OfConstant(name string) Category {
	return classify(name, constantRules)
}

// OfRoutine maps a routine name to its category. Total as well.
func OfRoutine(name string) Category {
	return classify(name, routineRules)
}

func classify(name string, rules []rule) Category {
	for _, r := range rules {
		if r.re.MatchString(name) {
			return r.cat
		}
	}
	return Other
}
