package identity

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"4105551212":      "4105551212",
		"(410) 555-1212":  "4105551212",
		"+1 410 555 1212": "4105551212",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		if err != nil || got != want {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizePhone("555-1212"); !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("short phone err = %v", err)
	}
}

func TestClassify(t *testing.T) {
	ch, v, err := Classify(" Bob@Example.org ")
	if err != nil || ch != ChannelEmail || v != "bob@example.org" {
		t.Errorf("Classify email = %q, %q, %v", ch, v, err)
	}
	ch, v, err = Classify("410.555.1212")
	if err != nil || ch != ChannelPhone || v != "4105551212" {
		t.Errorf("Classify phone = %q, %q, %v", ch, v, err)
	}
	if _, _, err := Classify(""); !errors.Is(err, ErrNoChannel) {
		t.Errorf("Classify empty err = %v", err)
	}
}
