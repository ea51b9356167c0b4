package acmg

import (
	"fmt"
	"strings"
)

// ModeOfInheritance is the inheritance pattern a variant is evaluated under.
type ModeOfInheritance string

const (
	AutosomalDominant  ModeOfInheritance = "AD"
	AutosomalRecessive ModeOfInheritance = "AR"
	XDominant          ModeOfInheritance = "XD"
	XRecessive         ModeOfInheritance = "XR"
	Mitochondrial      ModeOfInheritance = "MT"
	AnyInheritance     ModeOfInheritance = "ANY"
)

var modeAliases = map[string]ModeOfInheritance{
	"AD":                  AutosomalDominant,
	"AUTOSOMAL_DOMINANT":  AutosomalDominant,
	"AR":                  AutosomalRecessive,
	"AUTOSOMAL_RECESSIVE": AutosomalRecessive,
	"XD":                  XDominant,
	"X_DOMINANT":          XDominant,
	"XR":                  XRecessive,
	"X_RECESSIVE":         XRecessive,
	"MT":                  Mitochondrial,
	"MITOCHONDRIAL":       Mitochondrial,
	"ANY":                 AnyInheritance,
}

// ParseModeOfInheritance accepts short codes ("AR") and long names
// ("autosomal_recessive").
func ParseModeOfInheritance(s string) (ModeOfInheritance, error) {
	k := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	if m, ok := modeAliases[k]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown mode of inheritance %q", s)
}

// IsRecessive reports whether m is autosomal or X-linked recessive.
func (m ModeOfInheritance) IsRecessive() bool {
	return m == AutosomalRecessive || m == XRecessive
}
