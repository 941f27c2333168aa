package opc

import (
	"fmt"
	"sync/atomic"
)

// Limits bounds what the archive backend will inflate for a single entry.
//
// MinInflateRatio is the smallest accepted compressed/uncompressed ratio;
// an entry that inflates past 1/MinInflateRatio times the compressed bytes
// consumed so far is treated as a decompression bomb. MaxEntrySize caps the
// uncompressed size of any one entry. Zero fields take the defaults.
type Limits struct {
	MinInflateRatio float64
	MaxEntrySize    uint64
}

const (
	defaultMinInflateRatio = 0.01
	defaultMaxEntrySize    = 0xFFFFFFFF
)

func defaultLimits() Limits {
	return Limits{
		MinInflateRatio: defaultMinInflateRatio,
		MaxEntrySize:    defaultMaxEntrySize,
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MinInflateRatio == 0 {
		l.MinInflateRatio = d.MinInflateRatio
	}
	if l.MaxEntrySize == 0 {
		l.MaxEntrySize = d.MaxEntrySize
	}
	return l
}

// Validate reports whether l, after defaults are applied, is usable.
func (l Limits) Validate() error {
	l = l.withDefaults()
	if !(l.MinInflateRatio > 0 && l.MinInflateRatio <= 1) {
		return fmt.Errorf("%w: MinInflateRatio %v outside (0,1]", ErrInvalidLimits, l.MinInflateRatio)
	}
	return nil
}

var processLimits atomic.Pointer[Limits]

// DefaultLimits returns the process-wide limits new packages start from.
func DefaultLimits() Limits {
	if l := processLimits.Load(); l != nil {
		return *l
	}
	return defaultLimits()
}

// SetDefaultLimits replaces the process-wide limits. Packages snapshot the
// limits when they are created or opened, so a change only affects later
// packages. Passing the zero Limits restores the built-in defaults.
func SetDefaultLimits(l Limits) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l = l.withDefaults()
	processLimits.Store(&l)
	return nil
}
