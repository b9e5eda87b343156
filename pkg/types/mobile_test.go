package types

import "testing"

func TestNormalizeMobile(t *testing.T) {
	cases := map[string]string{
		"98765 43210":        "9876543210",
		"+91 (987) 654-3210": "+919876543210",
		" 98.76.54 ":         "987654",
		"12+34":              "1234",
		"":                   "",
	}
	for in, want := range cases {
		if got := NormalizeMobile(in); got != want {
			t.Fatalf("NormalizeMobile(%q) = %q, want %q", in, got, want)
		}
	}
}
