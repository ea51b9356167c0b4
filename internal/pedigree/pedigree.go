// Package pedigree reads PLINK/GATK PED files.
package pedigree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sex as coded in column 5.
type Sex uint8

const (
	SexUnknown Sex = iota
	SexMale
	SexFemale
)

// Phenotype as coded in column 6.
type Phenotype uint8

const (
	PhenotypeUnknown Phenotype = iota
	Unaffected
	Affected
)

// Individual is one PED line. Missing parents are "".
type Individual struct {
	FamilyID  string
	ID        string
	FatherID  string
	MotherID  string
	Sex       Sex
	Phenotype Phenotype
}

// Pedigree holds the individuals of a PED file in file order.
type Pedigree struct {
	individuals []Individual
	byID        map[string]int
}

// New builds a pedigree, rejecting duplicate individual IDs.
func New(individuals ...Individual) (*Pedigree, error) {
	p := &Pedigree{byID: make(map[string]int, len(individuals))}
	for _, ind := range individuals {
		if ind.ID == "" {
			return nil, fmt.Errorf("pedigree: empty individual ID in family %q", ind.FamilyID)
		}
		if _, dup := p.byID[ind.ID]; dup {
			return nil, fmt.Errorf("pedigree: duplicate individual %q", ind.ID)
		}
		p.byID[ind.ID] = len(p.individuals)
		p.individuals = append(p.individuals, ind)
	}
	return p, nil
}

// Has reports whether id is a member.
func (p *Pedigree) Has(id string) bool {
	if p == nil {
		return false
	}
	_, ok := p.byID[id]
	return ok
}

// Get returns the individual with the given ID.
func (p *Pedigree) Get(id string) (Individual, bool) {
	if p == nil {
		return Individual{}, false
	}
	i, ok := p.byID[id]
	if !ok {
		return Individual{}, false
	}
	return p.individuals[i], true
}

// Individuals returns the members in file order.
func (p *Pedigree) Individuals() []Individual {
	out := make([]Individual, len(p.individuals))
	copy(out, p.individuals)
	return out
}

// Len returns the number of members.
func (p *Pedigree) Len() int {
	return len(p.individuals)
}

// ReadPEDFile reads a PED file from disk.
func ReadPEDFile(path string) (*Pedigree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pedigree: %w", err)
	}
	defer f.Close()
	return ReadPED(f)
}

// ReadPED parses whitespace-separated PED lines. Blank lines and lines
// starting with '#' are skipped.
func ReadPED(r io.Reader) (*Pedigree, error) {
	var individuals []Individual
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 6 {
			return nil, fmt.Errorf("pedigree line %d: expected 6 columns, got %d", line, len(fields))
		}
		individuals = append(individuals, Individual{
			FamilyID:  fields[0],
			ID:        fields[1],
			FatherID:  parentID(fields[2]),
			MotherID:  parentID(fields[3]),
			Sex:       parseSex(fields[4]),
			Phenotype: parsePhenotype(fields[5]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pedigree: %w", err)
	}
	return New(individuals...)
}

func parentID(s string) string {
	if s == "0" {
		return ""
	}
	return s
}

func parseSex(s string) Sex {
	switch s {
	case "1":
		return SexMale
	case "2":
		return SexFemale
	}
	return SexUnknown
}

func parsePhenotype(s string) Phenotype {
	switch s {
	case "1":
		return Unaffected
	case "2":
		return Affected
	}
	return PhenotypeUnknown
}
