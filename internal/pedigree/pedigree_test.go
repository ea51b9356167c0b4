package pedigree

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trio = `# family trio
FAM1	PROBAND	FATHER	MOTHER	1	2
FAM1	FATHER	0	0	1	1
FAM1  MOTHER  0  0  2  1

`

func TestReadPED(t *testing.T) {
	p, err := ReadPED(strings.NewReader(trio))
	require.NoError(t, err)

	assert.Equal(t, 3, p.Len())
	assert.True(t, p.Has("PROBAND"))
	assert.False(t, p.Has("SIBLING"))

	proband, ok := p.Get("PROBAND")
	require.True(t, ok)
	assert.Equal(t, "FATHER", proband.FatherID)
	assert.Equal(t, "MOTHER", proband.MotherID)
	assert.Equal(t, SexMale, proband.Sex)
	assert.Equal(t, Affected, proband.Phenotype)

	mother, _ := p.Get("MOTHER")
	assert.Empty(t, mother.FatherID)
	assert.Equal(t, SexFemale, mother.Sex)
	assert.Equal(t, Unaffected, mother.Phenotype)

	ids := []string{}
	for _, ind := range p.Individuals() {
		ids = append(ids, ind.ID)
	}
	assert.Equal(t, []string{"PROBAND", "FATHER", "MOTHER"}, ids)
}

func TestReadPEDErrors(t *testing.T) {
	_, err := ReadPED(strings.NewReader("FAM1 A 0 0\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = ReadPED(strings.NewReader("FAM1 A 0 0 1 2\nFAM1 A 0 0 1 2\n"))
	assert.ErrorContains(t, err, "duplicate")
}

func TestReadPEDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trio.ped")
	require.NoError(t, os.WriteFile(path, []byte(trio), 0644))

	p, err := ReadPEDFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	_, err = ReadPEDFile(filepath.Join(t.TempDir(), "missing.ped"))
	assert.Error(t, err)
}

func TestNilPedigree(t *testing.T) {
	var p *Pedigree
	assert.False(t, p.Has("PROBAND"))
}
