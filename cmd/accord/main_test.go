package main

import (
	"testing"

	"accord/internal/strategy"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    strategy.Strategy
		wantErr bool
	}{
		{"ours", strategy.StrategyOurs, false},
		{"Theirs", strategy.StrategyTheirs, false},
		{" merge ", strategy.StrategyMerge, false},
		{"interactive", strategy.StrategyInteractive, false},
		{"rewrite", "", true},
		{"pick-best", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseStrategy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseStrategy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseStrategy(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseStrategy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
