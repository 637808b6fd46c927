package strategy

import (
	"math"
	"sort"
	"strings"

	"StrategyLab/internal/model"
)

// Params are the numeric knobs of a variant, keyed by snake_case name.
type Params map[string]float64

// Float returns p[key] or def when unset.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Positive returns p[key] or def, failing unless the value is a finite number above zero.
func (p Params) Positive(key string, def float64) (float64, error) {
	v := p.Float(key, def)
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, model.NewConfigurationError(key, "must be positive")
	}
	return v, nil
}

// NonNegative allows zero.
func (p Params) NonNegative(key string, def float64) (float64, error) {
	v := p.Float(key, def)
	if !(v >= 0) || math.IsInf(v, 0) {
		return 0, model.NewConfigurationError(key, "must not be negative")
	}
	return v, nil
}

// Fraction requires a value in [0, 1].
func (p Params) Fraction(key string, def float64) (float64, error) {
	v := p.Float(key, def)
	if !(v >= 0 && v <= 1) {
		return 0, model.NewConfigurationError(key, "must be between 0 and 1")
	}
	return v, nil
}

// Period requires a positive whole number.
func (p Params) Period(key string, def int) (int, error) {
	v := p.Float(key, float64(def))
	if v < 1 || v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, model.NewConfigurationError(key, "must be a positive integer")
	}
	return int(v), nil
}

// Bool treats any non-zero value as true.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	return v != 0
}

// Only fails when p holds a key outside known.
func (p Params) Only(known ...string) error {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}
	var unknown []string
	for k := range p {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return model.NewConfigurationError(strings.Join(unknown, ","), "unknown parameter")
}

// ParamReader collects the first error across several reads.
type ParamReader struct {
	p   Params
	err error
}

func NewParamReader(p Params) *ParamReader { return &ParamReader{p: p} }

// Err is the first failed read.
func (r *ParamReader) Err() error { return r.err }

func (r *ParamReader) keep(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *ParamReader) Period(key string, def int) int {
	v, err := r.p.Period(key, def)
	r.keep(err)
	return v
}

func (r *ParamReader) Positive(key string, def float64) float64 {
	v, err := r.p.Positive(key, def)
	r.keep(err)
	return v
}

func (r *ParamReader) NonNegative(key string, def float64) float64 {
	v, err := r.p.NonNegative(key, def)
	r.keep(err)
	return v
}

func (r *ParamReader) Fraction(key string, def float64) float64 {
	v, err := r.p.Fraction(key, def)
	r.keep(err)
	return v
}
