package validation

import (
	"errors"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/opd-ai/go-orrery/pkg/orbit"
)

func TestValidateBodyName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{
			name:  "valid simple name",
			input: "Earth",
			want:  "Earth",
		},
		{
			name:  "valid name with spaces and digits",
			input: "Comet 67P",
			want:  "Comet 67P",
		},
		{
			name:  "name with leading/trailing spaces",
			input: "  Mars  ",
			want:  "Mars",
		},
		{
			name:        "empty name",
			input:       "",
			wantErr:     true,
			errContains: "cannot be empty",
		},
		{
			name:        "only whitespace",
			input:       "   ",
			wantErr:     true,
			errContains: "cannot be only whitespace",
		},
		{
			name:        "too long name",
			input:       strings.Repeat("a", MaxBodyNameLen+1),
			wantErr:     true,
			errContains: "too long",
		},
		{
			name:        "name with markup",
			input:       "<b>Venus</b>",
			wantErr:     true,
			errContains: "invalid characters",
		},
		{
			name:        "name with control character",
			input:       "Ju\x00piter",
			wantErr:     true,
			errContains: "control characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateBodyName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBodyName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ValidateBodyName() error = %v, should contain %q", err, tt.errContains)
			}
			if got != tt.want {
				t.Errorf("ValidateBodyName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateElements(t *testing.T) {
	valid := orbit.Elements{SemiMajorAxis: 350, Eccentricity: 0.0167, Period: 31557600}

	tests := []struct {
		name    string
		mutate  func(*orbit.Elements)
		wantErr error
	}{
		{"valid", func(*orbit.Elements) {}, nil},
		{"circular", func(el *orbit.Elements) { el.Eccentricity = 0 }, nil},
		{"negative inclination", func(el *orbit.Elements) { el.InclinationDeg = -7 }, nil},
		{"zero axis", func(el *orbit.Elements) { el.SemiMajorAxis = 0 }, ErrSemiMajorAxis},
		{"negative axis", func(el *orbit.Elements) { el.SemiMajorAxis = -1 }, ErrSemiMajorAxis},
		{"negative eccentricity", func(el *orbit.Elements) { el.Eccentricity = -0.1 }, ErrEccentricity},
		{"parabolic", func(el *orbit.Elements) { el.Eccentricity = 1 }, ErrEccentricity},
		{"zero period", func(el *orbit.Elements) { el.Period = 0 }, ErrPeriod},
		{"NaN axis", func(el *orbit.Elements) { el.SemiMajorAxis = math.NaN() }, ErrNonFinite},
		{"infinite period", func(el *orbit.Elements) { el.Period = math.Inf(1) }, ErrNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := valid
			tt.mutate(&el)
			err := ValidateElements(el)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateElements() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateElements() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#ffa500", color.RGBA{0xff, 0xa5, 0x00, 0xff}, false},
		{"4682B4", color.RGBA{0x46, 0x82, 0xb4, 0xff}, false},
		{"#fff", color.RGBA{}, true},
		{"orange", color.RGBA{}, true},
		{"#gg0000", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateSegments(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{1, false},
		{128, false},
		{MaxOrbitSegments, false},
		{0, true},
		{-5, true},
		{MaxOrbitSegments + 1, true},
	}
	for _, tt := range tests {
		if err := ValidateSegments(tt.n); (err != nil) != tt.wantErr {
			t.Errorf("ValidateSegments(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
	}
}

func TestValidateInfo(t *testing.T) {
	if err := ValidateInfo("The third planet from the Sun."); err != nil {
		t.Errorf("ValidateInfo() error = %v", err)
	}
	if err := ValidateInfo(strings.Repeat("x", MaxInfoLen+1)); err == nil {
		t.Error("ValidateInfo() accepted oversized text")
	}
}

func TestMessageValidator_ValidateMessage(t *testing.T) {
	v := NewMessageValidator(1, 3)
	defer v.Close()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid JSON", []byte(`{"type":"ping"}`), nil},
		{"invalid JSON", []byte(`{"type":`), ErrInvalidMessage},
		{"too large", []byte(`"` + strings.Repeat("a", MaxMessageSize) + `"`), ErrMessageTooBig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateMessage(tt.data, "client-format")
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateMessage() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageValidator_RateLimit(t *testing.T) {
	v := NewMessageValidator(0.001, 3)
	defer v.Close()

	msg := []byte(`{"type":"ping"}`)
	for i := 0; i < 3; i++ {
		if err := v.ValidateMessage(msg, "client1"); err != nil {
			t.Fatalf("message %d rejected within burst: %v", i, err)
		}
	}
	if err := v.ValidateMessage(msg, "client1"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("message over burst error = %v, want ErrRateLimited", err)
	}

	// Other clients have their own bucket.
	if err := v.ValidateMessage(msg, "client2"); err != nil {
		t.Errorf("second client rejected: %v", err)
	}
	if v.Clients() != 2 {
		t.Errorf("Clients() = %d, want 2", v.Clients())
	}

	v.Forget("client1")
	if v.Clients() != 1 {
		t.Errorf("Clients() after Forget = %d, want 1", v.Clients())
	}
	if err := v.ValidateMessage(msg, "client1"); err != nil {
		t.Errorf("forgotten client should start with a fresh bucket: %v", err)
	}
}

func TestNewMessageValidator_Defaults(t *testing.T) {
	v := NewMessageValidator(0, 0)
	if v.limit != DefaultMessageRate || v.burst != DefaultBurst {
		t.Errorf("defaults = %v/%d, want %v/%d", v.limit, v.burst, DefaultMessageRate, DefaultBurst)
	}
}
