// Package acmg defines ACMG/AMP criteria, evidence strengths, immutable
// evidence sets and the classification of an evidence set using the
// Richards et al. (2015) combining rules.
package acmg

import (
	"fmt"
	"strings"
)

// Direction is the side of the classification a criterion argues for.
type Direction uint8

const (
	Pathogenic Direction = iota
	Benign
)

func (d Direction) String() string {
	if d == Benign {
		return "benign"
	}
	return "pathogenic"
}

// Strength is the weight of a met criterion. Strengths are totally ordered.
type Strength uint8

const (
	Supporting Strength = iota + 1
	Moderate
	Strong
	VeryStrong
	// StandAlone is used only by BA1.
	StandAlone
)

var strengthNames = map[Strength]string{
	Supporting: "supporting",
	Moderate:   "moderate",
	Strong:     "strong",
	VeryStrong: "very_strong",
	StandAlone: "stand_alone",
}

func (s Strength) String() string {
	if n, ok := strengthNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Strength(%d)", s)
}

// Valid reports whether s is a defined strength.
func (s Strength) Valid() bool {
	return s >= Supporting && s <= StandAlone
}

// ParseStrength parses a strength name as printed by String.
func ParseStrength(name string) (Strength, error) {
	n := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for s, sn := range strengthNames {
		if sn == n {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown evidence strength %q", name)
}

// Criterion identifies one ACMG/AMP rule.
type Criterion uint8

const (
	PVS1 Criterion = iota
	PS1
	PS2
	PS3
	PS4
	PM1
	PM2
	PM3
	PM4
	PM5
	PM6
	PP1
	PP2
	PP3
	PP4
	PP5
	BA1
	BS1
	BS2
	BS3
	BS4
	BP1
	BP2
	BP3
	BP4
	BP5
	BP6
	BP7
	numCriteria
)

type criterionInfo struct {
	name      string
	direction Direction
	strength  Strength
}

var criteria = [numCriteria]criterionInfo{
	PVS1: {"PVS1", Pathogenic, VeryStrong},
	PS1:  {"PS1", Pathogenic, Strong},
	PS2:  {"PS2", Pathogenic, Strong},
	PS3:  {"PS3", Pathogenic, Strong},
	PS4:  {"PS4", Pathogenic, Strong},
	PM1:  {"PM1", Pathogenic, Moderate},
	PM2:  {"PM2", Pathogenic, Moderate},
	PM3:  {"PM3", Pathogenic, Moderate},
	PM4:  {"PM4", Pathogenic, Moderate},
	PM5:  {"PM5", Pathogenic, Moderate},
	PM6:  {"PM6", Pathogenic, Moderate},
	PP1:  {"PP1", Pathogenic, Supporting},
	PP2:  {"PP2", Pathogenic, Supporting},
	PP3:  {"PP3", Pathogenic, Supporting},
	PP4:  {"PP4", Pathogenic, Supporting},
	PP5:  {"PP5", Pathogenic, Supporting},
	BA1:  {"BA1", Benign, StandAlone},
	BS1:  {"BS1", Benign, Strong},
	BS2:  {"BS2", Benign, Strong},
	BS3:  {"BS3", Benign, Strong},
	BS4:  {"BS4", Benign, Strong},
	BP1:  {"BP1", Benign, Supporting},
	BP2:  {"BP2", Benign, Supporting},
	BP3:  {"BP3", Benign, Supporting},
	BP4:  {"BP4", Benign, Supporting},
	BP5:  {"BP5", Benign, Supporting},
	BP6:  {"BP6", Benign, Supporting},
	BP7:  {"BP7", Benign, Supporting},
}

// AllCriteria returns every criterion in canonical order.
func AllCriteria() []Criterion {
	out := make([]Criterion, numCriteria)
	for i := range out {
		out[i] = Criterion(i)
	}
	return out
}

func (c Criterion) String() string {
	if c < numCriteria {
		return criteria[c].name
	}
	return fmt.Sprintf("Criterion(%d)", c)
}

// Valid reports whether c is a defined criterion.
func (c Criterion) Valid() bool {
	return c < numCriteria
}

// Direction returns whether c argues for pathogenic or benign.
func (c Criterion) Direction() Direction {
	return criteria[c].direction
}

// DefaultStrength returns the strength c carries unless modified.
func (c Criterion) DefaultStrength() Strength {
	return criteria[c].strength
}

// ParseCriterion parses a criterion code such as "PM2" (case-insensitive).
func ParseCriterion(code string) (Criterion, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, info := range criteria {
		if info.name == code {
			return Criterion(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ACMG criterion %q", code)
}
