// Package scanner classifies keystroke input as barcode-scanner bursts or
// manual typing. Scanners emit a whole code as a fast run of characters
// ending in a terminator key; the classifier detects that timing signature
// without any dedicated hardware channel.
//
// The classifier is an explicit state machine (idle → accumulating →
// flushed) fed one keystroke event at a time, independent of any UI.
// The detection is a heuristic: it tolerates timing jitter by comparing the
// average gap of the burst, drops partial scans interrupted by typing via
// an idle reset, and ignores flushes shorter than a minimum length.
package scanner

import "time"

// Source tags how a flushed code was captured.
type Source string

const (
	SourceScanner Source = "ESCANER"
	SourceManual  Source = "MANUAL"
)

// Config holds the classifier thresholds.
type Config struct {
	// BurstThreshold is the largest average inter-keystroke gap still
	// considered a scanner burst.
	BurstThreshold time.Duration
	// IdleReset discards a partial buffer after this much silence, so an
	// interrupted scan does not pollute the next code.
	IdleReset time.Duration
	// MinLength drops flushed codes shorter than this as noise.
	MinLength int
	// Terminator is the key that ends a code (scanners send Enter).
	Terminator rune
}

// DefaultConfig mirrors common USB HID scanner timing.
func DefaultConfig() Config {
	return Config{
		BurstThreshold: 50 * time.Millisecond,
		IdleReset:      200 * time.Millisecond,
		MinLength:      4,
		Terminator:     '\n',
	}
}

type state int

const (
	stateIdle state = iota
	stateAccumulating
)

// Result is one flushed code with its classified source.
type Result struct {
	Code   string
	Source Source
}

// Classifier accumulates keystroke events and flushes codes on the
// terminator key. Not safe for concurrent use; feed it from one input
// stream.
type Classifier struct {
	cfg      Config
	st       state
	buf      []rune
	last     time.Time
	gapTotal time.Duration
	gaps     int
}

// New creates a classifier. Zero thresholds fall back to DefaultConfig.
func New(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.BurstThreshold <= 0 {
		cfg.BurstThreshold = def.BurstThreshold
	}
	if cfg.IdleReset <= 0 {
		cfg.IdleReset = def.IdleReset
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = def.MinLength
	}
	if cfg.Terminator == 0 {
		cfg.Terminator = def.Terminator
	}
	return &Classifier{cfg: cfg}
}

// Feed processes one keystroke observed at the given time. It returns a
// Result and true when the keystroke completed a code (terminator received
// and the buffer was long enough).
func (c *Classifier) Feed(r rune, at time.Time) (Result, bool) {
	if r == c.cfg.Terminator {
		return c.flush()
	}
	if c.st == stateAccumulating {
		gap := at.Sub(c.last)
		if gap >= c.cfg.IdleReset {
			// Interrupted scan or a new entry after a pause: start over.
			c.reset()
		} else {
			c.gapTotal += gap
			c.gaps++
		}
	}
	c.st = stateAccumulating
	c.buf = append(c.buf, r)
	c.last = at
	return Result{}, false
}

// flush ends the current accumulation. Codes below MinLength are dropped
// as noise.
func (c *Classifier) flush() (Result, bool) {
	defer c.reset()
	if len(c.buf) < c.cfg.MinLength {
		return Result{}, false
	}
	res := Result{Code: string(c.buf), Source: SourceManual}
	// A single keystroke has no gaps; treat it as manual.
	if c.gaps > 0 && c.gapTotal/time.Duration(c.gaps) <= c.cfg.BurstThreshold {
		res.Source = SourceScanner
	}
	return res, true
}

// Reset discards any buffered input and returns to idle.
func (c *Classifier) Reset() { c.reset() }

func (c *Classifier) reset() {
	c.st = stateIdle
	c.buf = c.buf[:0]
	c.gapTotal = 0
	c.gaps = 0
}
