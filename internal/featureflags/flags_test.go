package featureflags

import "testing"

func TestEnabled(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"TRUE", false, true},
		{"on", false, true},
		{" 0 ", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("FLAG_RATE_LIMIT", tt.value)
			if got := Enabled(RateLimit, tt.def); got != tt.want {
				t.Errorf("Enabled(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}
