package assigner

// Thresholds are the calibrated cut-offs used by the rules. Field tags
// match the keys under "thresholds" in the config file.
type Thresholds struct {
	// PS1/PM5 search window around the variant, in bases.
	PS1PM5Window int64 `mapstructure:"ps1_pm5_window" yaml:"ps1_pm5_window"`
	// Minimum ClinVar review stars of a PS1/PM5 reference variant.
	MinClinVarStars int `mapstructure:"min_clinvar_stars" yaml:"min_clinvar_stars"`

	PP2MinPathogenicRatio           float64 `mapstructure:"pp2_min_pathogenic_ratio" yaml:"pp2_min_pathogenic_ratio"`
	BP1MinTruncatingPathogenicRatio float64 `mapstructure:"bp1_min_truncating_pathogenic_ratio" yaml:"bp1_min_truncating_pathogenic_ratio"`
	BP1MinBenignMissenseRatio       float64 `mapstructure:"bp1_min_benign_missense_ratio" yaml:"bp1_min_benign_missense_ratio"`

	// BS2 is met when the allele count exceeds the limit of the mode.
	BS2RecessiveMaxCount int64 `mapstructure:"bs2_recessive_max_count" yaml:"bs2_recessive_max_count"`
	BS2DominantMaxCount  int64 `mapstructure:"bs2_dominant_max_count" yaml:"bs2_dominant_max_count"`

	BP7MaxPhyloP    float64 `mapstructure:"bp7_max_phylop" yaml:"bp7_max_phylop"`
	BA1MinFrequency float64 `mapstructure:"ba1_min_frequency" yaml:"ba1_min_frequency"`
}

// DefaultThresholds returns the published calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PS1PM5Window:                    2,
		MinClinVarStars:                 2,
		PP2MinPathogenicRatio:           0.808,
		BP1MinTruncatingPathogenicRatio: 0.9,
		BP1MinBenignMissenseRatio:       0.569,
		BS2RecessiveMaxCount:            2,
		BS2DominantMaxCount:             5,
		BP7MaxPhyloP:                    0.1,
		BA1MinFrequency:                 0.05,
	}
}
