// Package validation checks scene configuration and inbound telemetry
// messages before they reach the simulation.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/opd-ai/go-orrery/pkg/orbit"
)

// Message size and content limits
const (
	MaxMessageSize     = 4 * 1024
	MaxBodyNameLen     = 32
	MaxInfoLen         = 1024
	MaxOrbitSegments   = 4096
	DefaultMessageRate = 10 // messages per second per client
	DefaultBurst       = 20
)

// Sentinel errors for orbital element checks
var (
	ErrNonFinite      = errors.New("value is not finite")
	ErrSemiMajorAxis  = errors.New("semi-major axis must be positive")
	ErrEccentricity   = errors.New("eccentricity must be in [0, 1)")
	ErrPeriod         = errors.New("period must be positive")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrMessageTooBig  = errors.New("message too large")
	ErrInvalidMessage = errors.New("invalid JSON format")
)

var (
	validBodyNameChars = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.']+$`)
	hexColorPattern    = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)
)

// MessageValidator checks inbound client messages and throttles each client
// with its own token bucket.
type MessageValidator struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewMessageValidator creates a validator allowing perSecond messages per
// client with the given burst. Non-positive values select the defaults.
func NewMessageValidator(perSecond float64, burst int) *MessageValidator {
	if perSecond <= 0 {
		perSecond = DefaultMessageRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &MessageValidator{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (v *MessageValidator) limiter(clientID string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.limiters[clientID]
	if !ok {
		l = rate.NewLimiter(v.limit, v.burst)
		v.limiters[clientID] = l
	}
	return l
}

// ValidateMessage validates a raw message against size and format
// constraints and the client's rate limit.
func (v *MessageValidator) ValidateMessage(data []byte, clientID string) error {
	if len(data) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooBig, len(data), MaxMessageSize)
	}
	if !json.Valid(data) {
		return ErrInvalidMessage
	}
	if !v.limiter(clientID).Allow() {
		return fmt.Errorf("%w: max %v messages per second", ErrRateLimited, float64(v.limit))
	}
	return nil
}

// Forget drops the limiter state of a disconnected client
func (v *MessageValidator) Forget(clientID string) {
	v.mu.Lock()
	delete(v.limiters, clientID)
	v.mu.Unlock()
}

// Clients returns the number of clients with limiter state
func (v *MessageValidator) Clients() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.limiters)
}

// Close releases all per-client state
func (v *MessageValidator) Close() {
	v.mu.Lock()
	v.limiters = make(map[string]*rate.Limiter)
	v.mu.Unlock()
}

// ValidateBodyName validates and trims a body name
func ValidateBodyName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("body name cannot be empty")
	}
	if len(name) > MaxBodyNameLen {
		return "", fmt.Errorf("body name too long: %d characters (max %d)", len(name), MaxBodyNameLen)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("body name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("body name cannot be only whitespace")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("body name contains control characters")
		}
	}
	if !validBodyNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("body name contains invalid characters: %q", trimmed)
	}
	return trimmed, nil
}

// ValidateInfo checks the free-text description shown for a body
func ValidateInfo(info string) error {
	if len(info) > MaxInfoLen {
		return fmt.Errorf("info text too long: %d characters (max %d)", len(info), MaxInfoLen)
	}
	if !utf8.ValidString(info) {
		return fmt.Errorf("info text contains invalid UTF-8 characters")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateElements rejects orbital elements the solver cannot place on a
// closed ellipse.
func ValidateElements(el orbit.Elements) error {
	for _, v := range []float64{el.SemiMajorAxis, el.Eccentricity, el.Period, el.InclinationDeg} {
		if !finite(v) {
			return ErrNonFinite
		}
	}
	if el.SemiMajorAxis <= 0 {
		return fmt.Errorf("%w: %v", ErrSemiMajorAxis, el.SemiMajorAxis)
	}
	if el.Eccentricity < 0 || el.Eccentricity >= 1 {
		return fmt.Errorf("%w: %v", ErrEccentricity, el.Eccentricity)
	}
	if el.Period <= 0 {
		return fmt.Errorf("%w: %v", ErrPeriod, el.Period)
	}
	return nil
}

// ValidateSegments checks an orbit path segment count
func ValidateSegments(n int) error {
	if n < 1 || n > MaxOrbitSegments {
		return fmt.Errorf("invalid orbit segments: %d (must be 1-%d)", n, MaxOrbitSegments)
	}
	return nil
}

// ParseColor parses "#rrggbb" (the leading # is optional) into an opaque color
func ParseColor(s string) (color.RGBA, error) {
	if !hexColorPattern.MatchString(s) {
		return color.RGBA{}, fmt.Errorf("invalid color %q (want #rrggbb)", s)
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
