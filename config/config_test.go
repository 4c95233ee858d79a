package config

import "testing"

func TestGetPageSize(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"empty", "", 50},
		{"invalid", "foo", 50},
		{"zero", "0", 50},
		{"negative", "-10", 50},
		{"min", "1", 1},
		{"mid", "25", 25},
		{"max", "50", 50},
		{"over", "51", 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BROWSE_PAGE_SIZE", tt.env)
			if got := getPageSize(); got != tt.want {
				t.Errorf("getPageSize() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestGetMinBatch(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"empty", "", 20},
		{"invalid", "abc", 20},
		{"zero", "0", 20},
		{"negative", "-1", 20},
		{"valid_small", "5", 5},
		{"valid_default", "20", 20},
		{"valid_large", "40", 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BROWSE_MIN_BATCH", tt.env)
			if got := getMinBatch(); got != tt.want {
				t.Errorf("getMinBatch() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestGetLookbackWindow(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"empty", "", 5},
		{"invalid", "x", 5},
		{"zero", "0", 5},
		{"valid", "8", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BROWSE_LOOKBACK_WINDOW", tt.env)
			if got := getLookbackWindow(); got != tt.want {
				t.Errorf("getLookbackWindow() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestGetUnlimitedCeiling(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"empty", "", 1000},
		{"invalid", "foo", 1000},
		{"zero", "0", 1000},
		{"negative", "-500", 1000},
		{"mid", "500", 500},
		{"max", "1000", 1000},
		{"over", "5000", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BROWSE_UNLIMITED_CEILING", tt.env)
			if got := getUnlimitedCeiling(); got != tt.want {
				t.Errorf("getUnlimitedCeiling() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestGetTrustedChannels(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"empty", "", 0},
		{"single", "UCabc", 1},
		{"multi", "UCabc,UCdef,UCghi", 3},
		{"whitespace", " UCabc , , UCdef ", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRUSTED_CHANNEL_IDS", tt.env)
			if got := getTrustedChannels(); len(got) != tt.want {
				t.Errorf("getTrustedChannels() = %v; want %d entries", got, tt.want)
			}
		})
	}
}
