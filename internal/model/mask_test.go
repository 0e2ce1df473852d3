package model

import "testing"

func TestMaskEmail(t *testing.T) {
	if got := MaskEmail("tony@stark.com"); got != "t***@stark.com" {
		t.Errorf("MaskEmail() = %q", got)
	}
}

func TestMaskIDLast4(t *testing.T) {
	if got := MaskIDLast4("1234"); got != "**34" {
		t.Errorf("MaskIDLast4() = %q", got)
	}
}
