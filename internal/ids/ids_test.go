package ids

import "testing"

func TestNextStartsAt1001(t *testing.T) {
	if got := Next("PUR", nil, 0); got != "PUR-1001" {
		t.Fatalf("Next on empty = %q, want PUR-1001", got)
	}
	if got := Next("DM", []string{}, 0); got != "DM-1001" {
		t.Fatalf("Next on empty = %q, want DM-1001", got)
	}
}

func TestNextUsesMaximumSuffix(t *testing.T) {
	existing := []string{"SAL-1003", "SAL-1001", "SAL-1010", "SAL-1002"}
	if got := Next("SAL", existing, 0); got != "SAL-1011" {
		t.Fatalf("Next = %q, want SAL-1011", got)
	}
}

func TestNextIgnoresMalformedAndForeignIDs(t *testing.T) {
	existing := []string{
		"SAL-abc",
		"SAL-",
		"SAL",
		"PUR-9999",
		"SALE-5000",
		"",
		"SAL-1004",
	}
	if got := Next("SAL", existing, 0); got != "SAL-1005" {
		t.Fatalf("Next = %q, want SAL-1005", got)
	}
}

func TestNextHonoursFloor(t *testing.T) {
	// 1007 was issued and later deleted; it must never be handed out again.
	if got := Next("EXP", []string{"EXP-1003"}, 1007); got != "EXP-1008" {
		t.Fatalf("Next = %q, want EXP-1008", got)
	}
}

func TestNextParsesFirstSegmentOnly(t *testing.T) {
	if got := Next("DM", []string{"DM-1020-copy"}, 0); got != "DM-1021" {
		t.Fatalf("Next = %q, want DM-1021", got)
	}
}

func TestNextYearScoped(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		floor    int
		want     string
	}{
		{"first of year", nil, 0, "INV-2026-0001"},
		{"continues", []string{"INV-2026-0001", "INV-2026-0007"}, 0, "INV-2026-0008"},
		{"other years ignored", []string{"INV-2025-0042", "INV-2026-0002"}, 0, "INV-2026-0003"},
		{"malformed ignored", []string{"INV-2026-xx", "INV-1700000000000"}, 0, "INV-2026-0001"},
		{"floor", []string{"INV-2026-0002"}, 5, "INV-2026-0006"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextYearScoped("INV", 2026, tt.existing, tt.floor); got != tt.want {
				t.Errorf("NextYearScoped = %q, want %q", got, tt.want)
			}
		})
	}
}
