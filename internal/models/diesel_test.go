package models

import "testing"

func TestCostReference(t *testing.T) {
	towing := ConsumptionRecord{ID: "abc123", AssetClass: AssetClassTowing}
	if got := towing.CostReference(); got != "DIESEL-abc123" {
		t.Errorf("expected DIESEL-abc123, got %s", got)
	}

	reefer := ConsumptionRecord{ID: "abc123", AssetClass: AssetClassReefer}
	if got := reefer.CostReference(); got != "DIESEL-REEFER-abc123" {
		t.Errorf("expected DIESEL-REEFER-abc123, got %s", got)
	}
}

func TestCostReferences(t *testing.T) {
	refs := CostReferences("abc123")
	if len(refs) != 2 {
		t.Fatalf("expected 2 references, got %d", len(refs))
	}
	if refs[0] != "DIESEL-abc123" || refs[1] != "DIESEL-REEFER-abc123" {
		t.Errorf("unexpected references: %v", refs)
	}
}

func TestRecordIDFromReference(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"DIESEL-abc123", "abc123"},
		{"DIESEL-REEFER-abc123", "abc123"},
		{"TOLL-abc123", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RecordIDFromReference(tt.ref); got != tt.want {
			t.Errorf("RecordIDFromReference(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestAllocationTarget(t *testing.T) {
	var none AllocationTarget
	if none.IsAllocated() {
		t.Error("zero allocation should not be allocated")
	}

	direct := DirectAllocation("trip-1")
	if !direct.IsAllocated() || direct.Kind != AllocationDirect || direct.TripID != "trip-1" {
		t.Errorf("unexpected direct allocation: %+v", direct)
	}
	if direct.TowingRecordID != "" {
		t.Error("direct allocation should not carry a towing record id")
	}

	linked := ReeferAllocation("rec-9")
	if !linked.IsAllocated() || linked.Kind != AllocationViaTowingUnit || linked.TowingRecordID != "rec-9" {
		t.Errorf("unexpected reefer allocation: %+v", linked)
	}
	if linked.TripID != "" {
		t.Error("reefer allocation should not carry a trip id")
	}
}
