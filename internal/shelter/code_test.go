package shelter

import "testing"

func TestCode(t *testing.T) {
	cases := map[int]string{
		0:   "",
		1:   "A",
		2:   "B",
		26:  "Z",
		27:  "AA",
		28:  "AB",
		52:  "AZ",
		53:  "BA",
		702: "ZZ",
		703: "AAA",
	}
	for n, want := range cases {
		if got := Code(n); got != want {
			t.Errorf("Code(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestOrdinalRoundTrip(t *testing.T) {
	for n := 1; n <= 2000; n++ {
		got, ok := Ordinal(Code(n))
		if !ok || got != n {
			t.Fatalf("Ordinal(Code(%d)) = %d, %v", n, got, ok)
		}
	}
}

func TestOrdinalRejectsInvalid(t *testing.T) {
	for _, c := range []string{"", "a", "A1", "Ä", " A"} {
		if _, ok := Ordinal(c); ok {
			t.Errorf("Ordinal(%q) accepted", c)
		}
	}
}

func TestNextCodeSequence(t *testing.T) {
	var codes []string
	for i := 0; i < 28; i++ {
		codes = append(codes, NextCode(codes))
	}
	if codes[0] != "A" || codes[25] != "Z" || codes[26] != "AA" || codes[27] != "AB" {
		t.Errorf("sequence = %v", codes)
	}
	seen := make(map[string]bool)
	for _, c := range codes {
		if seen[c] {
			t.Fatalf("duplicate code %q", c)
		}
		seen[c] = true
	}
}

func TestNextCodeSkipsGaps(t *testing.T) {
	// B was deleted; the next code must not collide with anything later.
	if got := NextCode([]string{"A", "C", "D", "I"}); got != "J" {
		t.Errorf("NextCode = %q, want %q", got, "J")
	}
	if got := NextCode(nil); got != "A" {
		t.Errorf("NextCode(nil) = %q, want %q", got, "A")
	}
	if got := NextCode([]string{"Z", "junk"}); got != "AA" {
		t.Errorf("NextCode = %q, want %q", got, "AA")
	}
}
