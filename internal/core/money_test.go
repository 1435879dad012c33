package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"-160.89", "-160.89", true},
		{"-160,89", "-160.89", true},
		{" 2.50 ", "2.5", true},
		{"-1 234,56", "-1234.56", true},
		{"-1 234,56", "-1234.56", true},
		{"−1712", "-1712", true},
		{"+5", "5", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseOptionalAmount(t *testing.T) {
	got, err := ParseOptionalAmount("  ")
	if err != nil || !got.IsZero() {
		t.Fatalf("expected zero for empty cell, got %s (err=%v)", got, err)
	}
	if _, err := ParseOptionalAmount("x"); err == nil {
		t.Fatalf("expected error for garbage")
	}
}

func TestRound2(t *testing.T) {
	cases := map[string]string{
		"1.005":   "1.01",
		"-1.005":  "-1.01",
		"3.98290": "3.98",
		"100":     "100",
	}
	for in, want := range cases {
		if got := Round2(decimal.RequireFromString(in)); !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("Round2(%s) = %s, want %s", in, got, want)
		}
	}
}
