package authdb

import (
	"testing"

	"github.com/google/uuid"
)

func TestToCQLUUID_RoundTrips(t *testing.T) {
	id := uuid.New()
	cqlID, err := toCQLUUID(id)
	if err != nil {
		t.Fatalf("toCQLUUID: %v", err)
	}
	if cqlID.String() != id.String() {
		t.Errorf("round trip mismatch: got %s, want %s", cqlID.String(), id.String())
	}
}

func TestQuorumAndDefaultWrite_DistinctConsistencies(t *testing.T) {
	if QuorumWrite.Consistency == DefaultWrite.Consistency {
		t.Error("QuorumWrite and DefaultWrite should use different consistency levels")
	}
}
