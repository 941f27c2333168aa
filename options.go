package opc

import (
	"io"
	"log/slog"
)

type config struct {
	limits Limits
	logger *slog.Logger
	target saveTarget
	save   []SaveOption
}

// Option configures Create and the Open family.
type Option func(*config)

// WithLimits overrides the process-wide limits for one package.
func WithLimits(l Limits) Option {
	return func(c *config) { c.limits = l }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSaveTarget names the writer Close persists pending changes to.
func WithSaveTarget(w io.Writer) Option {
	return func(c *config) { c.target = saveTarget{w: w} }
}

// WithSaveOptions sets the options Close uses when it saves.
func WithSaveOptions(opts ...SaveOption) Option {
	return func(c *config) { c.save = append(c.save, opts...) }
}

func newConfig(opts []Option) config {
	c := config{
		limits: DefaultLimits(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.limits = c.limits.withDefaults()
	return c
}

const defaultLevel = -1000

type saveConfig struct {
	compression Compression
	level       int
}

// SaveOption configures Save and SaveFile.
type SaveOption func(*saveConfig)

// WithCompression selects the ZIP method for entries the save has to
// encode. Unchanged entries read from the source archive are copied as is.
func WithCompression(c Compression) SaveOption {
	return func(s *saveConfig) { s.compression = c }
}

// WithCompressionLevel sets the codec level: -2..9 for deflate and a
// zstd level (1..22) for CompZSTD.
func WithCompressionLevel(level int) SaveOption {
	return func(s *saveConfig) { s.level = level }
}

func newSaveConfig(base, opts []SaveOption) saveConfig {
	s := saveConfig{compression: CompDeflate, level: defaultLevel}
	for _, opt := range base {
		opt(&s)
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
