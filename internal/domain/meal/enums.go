package meal

import "strings"

// Goal is the dietary category assigned to a meal by the classifier
type Goal string

const (
	GoalDaily      Goal = "Daily"
	GoalWeightLoss Goal = "WeightLoss"
	GoalBulking    Goal = "Bulking"
	GoalKids       Goal = "Kids"
)

// Cuisine is the user-selected cuisine style of a meal
type Cuisine string

const (
	CuisineStandard Cuisine = "Standard"
	CuisineItalian  Cuisine = "Italian"
	CuisineAsian    Cuisine = "Asian"
	CuisineOriental Cuisine = "Oriental"
	CuisineAmerican Cuisine = "American"
	CuisineFrench   Cuisine = "French"
	CuisineMexican  Cuisine = "Mexican"
)

// Season is the user-selected season of a meal
type Season string

const (
	SeasonAll    Season = "AllSeasons"
	SeasonWinter Season = "Winter"
	SeasonSummer Season = "Summer"
)

type displayLabel struct {
	emoji string
	text  string
}

func (l displayLabel) String() string {
	return l.emoji + " " + l.text
}

var goalLabels = map[Goal]displayLabel{
	GoalDaily:      {"🏡", "Quotidien"},
	GoalWeightLoss: {"🥗", "Perte de poids"},
	GoalBulking:    {"💪", "Prise de masse"},
	GoalKids:       {"👦", "Enfant"},
}

var cuisineLabels = map[Cuisine]displayLabel{
	CuisineStandard: {"🏷️", "Standard"},
	CuisineItalian:  {"🍕", "Italienne"},
	CuisineAsian:    {"🍜", "Asiatique"},
	CuisineOriental: {"🥘", "Orientale"},
	CuisineAmerican: {"🌭", "Américaine"},
	CuisineFrench:   {"🥖", "Française"},
	CuisineMexican:  {"🌮", "Mexicaine"},
}

var seasonLabels = map[Season]displayLabel{
	SeasonAll:    {"⛅️", "Toute saison"},
	SeasonWinter: {"❄️", "Hiver"},
	SeasonSummer: {"☀️", "Été"},
}

// AllGoals returns every goal in display order
func AllGoals() []Goal {
	return []Goal{GoalDaily, GoalWeightLoss, GoalBulking, GoalKids}
}

// AllCuisines returns every cuisine in display order
func AllCuisines() []Cuisine {
	return []Cuisine{CuisineStandard, CuisineItalian, CuisineAsian, CuisineOriental, CuisineAmerican, CuisineFrench, CuisineMexican}
}

// AllSeasons returns every season in display order
func AllSeasons() []Season {
	return []Season{SeasonAll, SeasonWinter, SeasonSummer}
}

// Valid reports whether g is one of the closed set of goals
func (g Goal) Valid() bool {
	_, ok := goalLabels[g]
	return ok
}

func (c Cuisine) Valid() bool {
	_, ok := cuisineLabels[c]
	return ok
}

func (s Season) Valid() bool {
	_, ok := seasonLabels[s]
	return ok
}

// Label returns the emoji-prefixed display label, or the raw token if unknown
func (g Goal) Label() string    { return labelOf(g, goalLabels) }
func (c Cuisine) Label() string { return labelOf(c, cuisineLabels) }
func (s Season) Label() string  { return labelOf(s, seasonLabels) }

// Emoji returns the emoji used in prompts and labels
func (g Goal) Emoji() string { return goalLabels[g].emoji }

// ParseGoal accepts a token ("WeightLoss"), a display label ("🥗 Perte de poids"),
// the label text alone or its emoji. Surrounding whitespace and trailing
// punctuation are ignored, so raw model replies can be fed in directly.
func ParseGoal(s string) (Goal, bool) { return parseTagged(s, AllGoals(), goalLabels) }

// ParseCuisine is the Cuisine counterpart of ParseGoal
func ParseCuisine(s string) (Cuisine, bool) { return parseTagged(s, AllCuisines(), cuisineLabels) }

// ParseSeason is the Season counterpart of ParseGoal
func ParseSeason(s string) (Season, bool) { return parseTagged(s, AllSeasons(), seasonLabels) }

func labelOf[T ~string](v T, table map[T]displayLabel) string {
	if l, ok := table[v]; ok {
		return l.String()
	}
	return string(v)
}

func parseTagged[T ~string](s string, all []T, table map[T]displayLabel) (T, bool) {
	var zero T
	t := strings.Trim(strings.TrimSpace(s), ".!\"'`")
	if t == "" {
		return zero, false
	}

	for _, v := range all {
		l := table[v]
		if strings.EqualFold(t, string(v)) || t == l.String() || strings.EqualFold(t, l.text) {
			return v, true
		}
	}
	// Emoji variation selectors are not always echoed back.
	for _, v := range all {
		emoji := strings.TrimSuffix(table[v].emoji, "\ufe0f")
		if strings.HasPrefix(t, emoji) {
			return v, true
		}
	}
	return zero, false
}
