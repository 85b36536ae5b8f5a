package codegen

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
)

func TestOTPRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := OTP()
		if err != nil {
			t.Fatalf("otp: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("len(%q) = %d, want 6", code, len(code))
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("otp %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Errorf("otp = %d, out of range", n)
		}
	}
}

func TestMagicCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := MagicCode()
		if _, err := uuid.Parse(code); err != nil {
			t.Fatalf("magic code %q is not a uuid: %v", code, err)
		}
		if seen[code] {
			t.Fatalf("duplicate magic code %q", code)
		}
		seen[code] = true
	}
}

func TestFormCodeDiffersFromMagicCode(t *testing.T) {
	if FormCode() == MagicCode() {
		t.Error("expected distinct codes")
	}
}
