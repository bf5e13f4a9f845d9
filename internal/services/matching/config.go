package matching

import "finsoft-reconciliation-backend/internal/config"

// Config holds the tunables of the matching engine. All values can be
// overridden through MATCH_* environment variables.
type Config struct {
	// AmountTolerance is the maximum relative amount difference before a
	// pair is disqualified (0.02 = 2%).
	AmountTolerance float64

	// AmountEpsilon is the absolute difference, in currency units, under
	// which two amounts count as equal (cent rounding).
	AmountEpsilon float64

	// DateWindowDays disqualifies pairs whose dates are further apart.
	DateWindowDays int

	// AutoThreshold is the minimum score for an automatic valide match.
	AutoThreshold int

	// SuggestionThreshold is the minimum score to record a suggestion.
	SuggestionThreshold int

	// AmountWeight and DateWeight combine the two score components.
	// Amount dominates: it is the stronger discriminant.
	AmountWeight float64
	DateWeight   float64
}

func DefaultConfig() Config {
	return Config{
		AmountTolerance:     0.02,
		AmountEpsilon:       0.01,
		DateWindowDays:      60,
		AutoThreshold:       90,
		SuggestionThreshold: 50,
		AmountWeight:        0.7,
		DateWeight:          0.3,
	}
}

// ConfigFromEnv returns DefaultConfig with MATCH_* overrides applied.
func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		AmountTolerance:     config.EnvFloat("MATCH_AMOUNT_TOLERANCE", def.AmountTolerance),
		AmountEpsilon:       config.EnvFloat("MATCH_AMOUNT_EPSILON", def.AmountEpsilon),
		DateWindowDays:      config.EnvInt("MATCH_DATE_WINDOW_DAYS", def.DateWindowDays),
		AutoThreshold:       config.EnvInt("MATCH_AUTO_THRESHOLD", def.AutoThreshold),
		SuggestionThreshold: config.EnvInt("MATCH_SUGGESTION_THRESHOLD", def.SuggestionThreshold),
		AmountWeight:        config.EnvFloat("MATCH_AMOUNT_WEIGHT", def.AmountWeight),
		DateWeight:          config.EnvFloat("MATCH_DATE_WEIGHT", def.DateWeight),
	}
}
