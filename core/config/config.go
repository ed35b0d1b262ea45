package config

// DefaultResolution is the number of points of the output grid over which an
// output fuzzy set is computed unless a caller asks for another value.
const DefaultResolution = 1000

// DefaultConditionResolution is the number of points of the input grid used
// by relational composition and singleton fuzzification.
const DefaultConditionResolution = 201

// MinConditionResolution bounds the discretization error of fuzzified crisp
// inputs. Smaller condition resolutions are raised to this value.
const MinConditionResolution = 51

// MaxResolution is the largest output grid accepted by the engine.
const MaxResolution = 10_000
