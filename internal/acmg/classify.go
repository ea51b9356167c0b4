package acmg

// Classification is the five-tier ACMG/AMP outcome.
type Classification string

const (
	ClassPathogenic       Classification = "Pathogenic"
	ClassLikelyPathogenic Classification = "Likely pathogenic"
	ClassUncertain        Classification = "Uncertain significance"
	ClassLikelyBenign     Classification = "Likely benign"
	ClassBenign           Classification = "Benign"
)

// Tally counts met criteria per evidence level. Counts above the level's
// cap are clamped: no combining rule asks for more.
type Tally struct {
	PVS, PS, PM, PP int
	BA, BS, BP      int
}

// Caps of each Tally field. Raising a rule's minimum above a cap requires
// raising the cap too.
const (
	capPVS = 1
	capPS  = 2
	capPM  = 3
	capPP  = 4
	capBA  = 1
	capBS  = 2
	capBP  = 2
)

// TallyOf counts s by direction and actual strength. A benign criterion at
// very strong counts as stand-alone, and one at moderate counts as
// supporting since the benign side has no moderate level.
func TallyOf(s EvidenceSet) Tally {
	var t Tally
	for _, e := range s.Evidence() {
		if e.Criterion.Direction() == Pathogenic {
			switch e.Strength {
			case VeryStrong, StandAlone:
				t.PVS++
			case Strong:
				t.PS++
			case Moderate:
				t.PM++
			case Supporting:
				t.PP++
			}
			continue
		}
		switch e.Strength {
		case VeryStrong, StandAlone:
			t.BA++
		case Strong:
			t.BS++
		case Moderate, Supporting:
			t.BP++
		}
	}
	return t.clamp()
}

func (t Tally) clamp() Tally {
	return Tally{
		PVS: min(t.PVS, capPVS),
		PS:  min(t.PS, capPS),
		PM:  min(t.PM, capPM),
		PP:  min(t.PP, capPP),
		BA:  min(t.BA, capBA),
		BS:  min(t.BS, capBS),
		BP:  min(t.BP, capBP),
	}
}

// atLeast reports whether every field of t meets the minimum in m.
func (t Tally) atLeast(m Tally) bool {
	return t.PVS >= m.PVS && t.PS >= m.PS && t.PM >= m.PM && t.PP >= m.PP &&
		t.BA >= m.BA && t.BS >= m.BS && t.BP >= m.BP
}

// Rule assigns Class when a tally meets every minimum in Min.
type Rule struct {
	Class Classification
	Min   Tally
}

// Table5Rules are the combining criteria of Richards et al. 2015, Table 5.
// Pathogenic rules precede likely pathogenic ones, benign precede likely
// benign; the first matching rule on each side wins.
var Table5Rules = []Rule{
	// Pathogenic
	{ClassPathogenic, Tally{PVS: 1, PS: 1}},
	{ClassPathogenic, Tally{PVS: 1, PM: 2}},
	{ClassPathogenic, Tally{PVS: 1, PM: 1, PP: 1}},
	{ClassPathogenic, Tally{PVS: 1, PP: 2}},
	{ClassPathogenic, Tally{PS: 2}},
	{ClassPathogenic, Tally{PS: 1, PM: 3}},
	{ClassPathogenic, Tally{PS: 1, PM: 2, PP: 2}},
	{ClassPathogenic, Tally{PS: 1, PM: 1, PP: 4}},
	// Likely pathogenic
	{ClassLikelyPathogenic, Tally{PVS: 1, PM: 1}},
	{ClassLikelyPathogenic, Tally{PS: 1, PM: 1}},
	{ClassLikelyPathogenic, Tally{PS: 1, PP: 2}},
	{ClassLikelyPathogenic, Tally{PM: 3}},
	{ClassLikelyPathogenic, Tally{PM: 2, PP: 2}},
	{ClassLikelyPathogenic, Tally{PM: 1, PP: 4}},
	// Benign
	{ClassBenign, Tally{BA: 1}},
	{ClassBenign, Tally{BS: 2}},
	// Likely benign
	{ClassLikelyBenign, Tally{BS: 1, BP: 1}},
	{ClassLikelyBenign, Tally{BP: 2}},
}

// Table is a precomputed lookup from every clamped tally to a
// classification.
type Table struct {
	pathogenic [capPVS + 1][capPS + 1][capPM + 1][capPP + 1]Classification
	benign     [capBA + 1][capBS + 1][capBP + 1]Classification
}

// NewTable evaluates rules once for every reachable tally.
func NewTable(rules []Rule) *Table {
	var tbl Table
	for pvs := 0; pvs <= capPVS; pvs++ {
		for ps := 0; ps <= capPS; ps++ {
			for pm := 0; pm <= capPM; pm++ {
				for pp := 0; pp <= capPP; pp++ {
					t := Tally{PVS: pvs, PS: ps, PM: pm, PP: pp}
					tbl.pathogenic[pvs][ps][pm][pp] = firstMatch(rules, t, isPathogenicClass)
				}
			}
		}
	}
	for ba := 0; ba <= capBA; ba++ {
		for bs := 0; bs <= capBS; bs++ {
			for bp := 0; bp <= capBP; bp++ {
				t := Tally{BA: ba, BS: bs, BP: bp}
				tbl.benign[ba][bs][bp] = firstMatch(rules, t, isBenignClass)
			}
		}
	}
	return &tbl
}

func isPathogenicClass(c Classification) bool {
	return c == ClassPathogenic || c == ClassLikelyPathogenic
}

func isBenignClass(c Classification) bool {
	return c == ClassBenign || c == ClassLikelyBenign
}

func firstMatch(rules []Rule, t Tally, side func(Classification) bool) Classification {
	for _, r := range rules {
		if side(r.Class) && t.atLeast(r.Min) {
			return r.Class
		}
	}
	return ClassUncertain
}

// Lookup classifies a tally. When both sides reach a classification the
// evidence is contradictory and the result is uncertain significance.
func (tbl *Table) Lookup(t Tally) Classification {
	t = t.clamp()
	p := tbl.pathogenic[t.PVS][t.PS][t.PM][t.PP]
	b := tbl.benign[t.BA][t.BS][t.BP]
	switch {
	case p != ClassUncertain && b != ClassUncertain:
		return ClassUncertain
	case p != ClassUncertain:
		return p
	default:
		return b
	}
}

// Combiner classifies evidence sets with a table per mode of inheritance.
type Combiner struct {
	tables map[ModeOfInheritance]*Table
	def    *Table
}

// NewCombiner returns a Combiner that uses def for every mode without its
// own table.
func NewCombiner(def *Table) *Combiner {
	return &Combiner{tables: make(map[ModeOfInheritance]*Table), def: def}
}

// WithTable sets the table used for mode m and returns c.
func (c *Combiner) WithTable(m ModeOfInheritance, tbl *Table) *Combiner {
	c.tables[m] = tbl
	return c
}

// Classify returns the classification of s under mode m.
func (c *Combiner) Classify(s EvidenceSet, m ModeOfInheritance) Classification {
	tbl, ok := c.tables[m]
	if !ok {
		tbl = c.def
	}
	return tbl.Lookup(TallyOf(s))
}

var defaultCombiner = NewCombiner(NewTable(Table5Rules))

// Classify classifies s with the Table 5 rules. The mode of inheritance
// does not change the standard table.
func Classify(s EvidenceSet, m ModeOfInheritance) Classification {
	return defaultCombiner.Classify(s, m)
}
