package docnum

import "testing"

func TestFormatZeroPads(t *testing.T) {
	if got := Format(OrderPrefix, 123); got != "ORD-000123" {
		t.Fatalf("expected ORD-000123, got %s", got)
	}
	if got := Format(ReturnPrefix, 1); got != "ORDR-000001" {
		t.Fatalf("expected ORDR-000001, got %s", got)
	}
}

func TestFormatWidensBeyondSixDigits(t *testing.T) {
	if got := Format(PurchasePrefix, 1234567); got != "PUR-1234567" {
		t.Fatalf("expected PUR-1234567, got %s", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	prefix, seq, ok := Parse(Format(OrderPrefix, 42))
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if prefix != OrderPrefix || seq != 42 {
		t.Fatalf("unexpected parse result: %s %d", prefix, seq)
	}
}

func TestParseRejectsNonNumericTail(t *testing.T) {
	if _, _, ok := Parse("ORD-"); ok {
		t.Fatalf("expected parse failure for code without sequence")
	}
	if _, _, ok := Parse("ORD-000000"); ok {
		t.Fatalf("expected parse failure for zero sequence")
	}
}

func TestIsValidPrefix(t *testing.T) {
	for _, prefix := range []string{OrderPrefix, PurchasePrefix, ReturnPrefix, ProductPrefix} {
		if !IsValidPrefix(prefix) {
			t.Fatalf("expected %s to be valid", prefix)
		}
	}
	if IsValidPrefix("INV-") {
		t.Fatalf("expected INV- to be rejected")
	}
}
