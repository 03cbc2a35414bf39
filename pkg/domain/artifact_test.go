package domain

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Albert Einstein", "albert einstein"},
		{"  albert EINSTEIN ", "albert einstein"},
		{"\tMarie Curie\n", "marie curie"},
		{"mononym", "mononym"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeVariantsCollide(t *testing.T) {
	variants := []string{"Ada Lovelace", "ada lovelace", " ADA LOVELACE  ", "Ada lovelace"}
	for _, v := range variants {
		if Normalize(v) != "ada lovelace" {
			t.Fatalf("variant %q maps to %q", v, Normalize(v))
		}
	}
}
