package utils

import "testing"

func TestRandStringUnique(t *testing.T) {
	a, err := RandString(32)
	if err != nil {
		t.Fatalf("rand: %v", err)
	}
	b, err := RandString(32)
	if err != nil {
		t.Fatalf("rand: %v", err)
	}
	if a == b || a == "" {
		t.Fatalf("collision: %q %q", a, b)
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !ConstantTimeEquals([]byte("secret"), []byte("secret")) {
		t.Fatalf("equal slices compared unequal")
	}
	if ConstantTimeEquals([]byte("secret"), []byte("secreT")) {
		t.Fatalf("different slices compared equal")
	}
	if ConstantTimeEquals([]byte("secret"), []byte("secret-longer")) {
		t.Fatalf("length mismatch compared equal")
	}
}
