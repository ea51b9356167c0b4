package annotate

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/cache"
	"github.com/inodb/vibe-acmg/internal/variantkey"
)

// ErrEmptyAlleles is returned for keys with neither a reference nor an
// alternate allele.
var ErrEmptyAlleles = errors.New("variant has no alleles")

// TranscriptLookup defines the interface for finding transcripts at a position.
type TranscriptLookup interface {
	FindTranscripts(chrom string, pos int64) []*cache.Transcript
}

// Annotator annotates variants with consequence predictions.
type Annotator struct {
	cache  TranscriptLookup
	logger *zap.Logger
}

// NewAnnotator creates a new annotator with the given cache.
func NewAnnotator(c TranscriptLookup) *Annotator {
	return &Annotator{
		cache:  c,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Annotate returns one annotation per overlapping transcript, or a single
// intergenic annotation when none overlap.
func (a *Annotator) Annotate(k variantkey.Key) ([]*Annotation, error) {
	if k.Ref == "" && k.Alt == "" {
		return nil, ErrEmptyAlleles
	}

	var annotations []*Annotation
	for _, t := range a.cache.FindTranscripts(k.ContigName(), k.Pos) {
		r := PredictConsequence(k, t)
		annotations = append(annotations, &Annotation{
			TranscriptID:    t.ID,
			GeneName:        t.GeneName,
			GeneID:          t.GeneID,
			Consequence:     r.Consequence,
			Impact:          r.Impact,
			CDSPosition:     r.CDSPosition,
			ProteinPosition: r.ProteinPosition,
			AminoAcidChange: r.AminoAcidChange,
			CodonChange:     r.CodonChange,
			IsCanonical:     t.IsCanonical,
			IsMANESelect:    t.IsMANESelect,
			Biotype:         t.Biotype,
			ExonNumber:      r.ExonNumber,
			HGVSp:           r.HGVSp,
			HGVSc:           r.HGVSc,
		})
	}

	if len(annotations) == 0 {
		a.logger.Debug("no transcript overlaps variant", zap.String("variant", k.String()))
		return []*Annotation{{
			Consequence: ConsequenceIntergenicVariant,
			Impact:      ImpactModifier,
		}}, nil
	}
	return annotations, nil
}

// SelectPrimary picks the annotation reported for a variant: MANE Select
// first, then the canonical transcript, then the most severe impact. Ties
// fall back to transcript ID so the choice is stable.
func SelectPrimary(anns []*Annotation) *Annotation {
	if len(anns) == 0 {
		return nil
	}
	ranked := append([]*Annotation(nil), anns...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.IsMANESelect != b.IsMANESelect {
			return a.IsMANESelect
		}
		if a.IsCanonical != b.IsCanonical {
			return a.IsCanonical
		}
		if ra, rb := ImpactRank(a.Impact), ImpactRank(b.Impact); ra != rb {
			return ra > rb
		}
		return a.TranscriptID < b.TranscriptID
	})
	return ranked[0]
}
