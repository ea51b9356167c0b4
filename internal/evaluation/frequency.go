package evaluation

import (
	"strconv"
	"strings"
)

// Frequency is what one population source reports for an allele.
type Frequency struct {
	Source string
	AF     float64
	AC     int64
	HasAF  bool
	HasAC  bool
}

// FrequencySummary collects the frequencies of the configured sources.
// Sources without data for the allele are left out.
type FrequencySummary struct {
	Sources []Frequency
}

// MaxAlleleCount returns the largest allele count over all sources.
func (s FrequencySummary) MaxAlleleCount() (int64, bool) {
	var best int64
	found := false
	for _, f := range s.Sources {
		if f.HasAC && (!found || f.AC > best) {
			best, found = f.AC, true
		}
	}
	return best, found
}

// MaxFrequency returns the largest allele frequency over all sources.
func (s FrequencySummary) MaxFrequency() (float64, bool) {
	var best float64
	found := false
	for _, f := range s.Sources {
		if f.HasAF && (!found || f.AF > best) {
			best, found = f.AF, true
		}
	}
	return best, found
}

// HasObservation reports whether any source observed the allele, that is
// reports a frequency or an allele count above zero.
func (s FrequencySummary) HasObservation() bool {
	for _, f := range s.Sources {
		if (f.HasAF && f.AF > 0) || (f.HasAC && f.AC > 0) {
			return true
		}
	}
	return false
}

// SourceFields names the INFO fields holding one source's frequency and
// allele count. Either may be empty.
type SourceFields struct {
	Name    string `mapstructure:"name"`
	AFField string `mapstructure:"af_field"`
	ACField string `mapstructure:"ac_field"`
}

// Config selects the frequency sources read from INFO.
type Config struct {
	Sources []SourceFields
}

// DefaultConfig reads gnomAD exome and genome fields as written by VEP's
// --af_gnomade/--af_gnomadg options and by gnomAD-annotated VCFs.
func DefaultConfig() Config {
	return Config{Sources: []SourceFields{
		{Name: "gnomad_exomes", AFField: "gnomADe_AF", ACField: "gnomADe_AC"},
		{Name: "gnomad_genomes", AFField: "gnomADg_AF", ACField: "gnomADg_AC"},
	}}
}

// Frequencies extracts the configured sources from a split record's INFO.
func (c Config) Frequencies(info map[string]interface{}) FrequencySummary {
	var s FrequencySummary
	for _, src := range c.Sources {
		f := Frequency{Source: src.Name}
		if v, ok := infoValue(info, src.AFField); ok {
			if af, err := strconv.ParseFloat(v, 64); err == nil {
				f.AF, f.HasAF = af, true
			}
		}
		if v, ok := infoValue(info, src.ACField); ok {
			if ac, err := strconv.ParseInt(v, 10, 64); err == nil {
				f.AC, f.HasAC = ac, true
			}
		}
		if f.HasAF || f.HasAC {
			s.Sources = append(s.Sources, f)
		}
	}
	return s
}

// infoValue returns a single-valued INFO string. Multi-valued fields keep
// their first value; "." is treated as missing.
func infoValue(info map[string]interface{}, field string) (string, bool) {
	if field == "" {
		return "", false
	}
	s, ok := info[field].(string)
	if !ok {
		return "", false
	}
	s, _, _ = strings.Cut(s, ",")
	if s == "" || s == "." {
		return "", false
	}
	return s, true
}
