package orchestration

import "testing"

func TestAttributeManagerGetSeesStagedWrite(t *testing.T) {
	inst := NewInstance("db", nil, nil)
	mgr := NewAttributeManager(nil)

	mgr.Set(inst, "port", NewScalar(5432))
	v, err := mgr.Get(inst, "port")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Scalar != 5432 {
		t.Errorf("expected staged write visible before commit, got %v", v.Scalar)
	}
}

func TestAttributeManagerCommitClearsStaging(t *testing.T) {
	inst := NewInstance("db", nil, nil)
	mgr := NewAttributeManager(nil)
	mgr.Set(inst, "port", NewScalar(5432))

	snap := mgr.CommitChanges()
	if len(snap) != 1 {
		t.Fatalf("expected one instance in snapshot, got %d", len(snap))
	}
	change := snap[inst.Key()]["port"]
	if change.New.Scalar != 5432 {
		t.Errorf("committed change has wrong value: %v", change.New.Scalar)
	}

	empty := mgr.CommitChanges()
	if len(empty) != 0 {
		t.Errorf("expected empty staging area after commit, got %v", empty)
	}
}

func TestAttributeManagerPreservesOriginalOldValue(t *testing.T) {
	inst := NewInstance("db", nil, nil)
	inst.Attributes["port"] = NewScalar(1000)
	mgr := NewAttributeManager(nil)

	mgr.Set(inst, "port", NewScalar(2000))
	mgr.Set(inst, "port", NewScalar(3000))

	snap := mgr.CommitChanges()
	change := snap[inst.Key()]["port"]
	if change.Old.Scalar != 1000 {
		t.Errorf("Old should be the pre-task value 1000, got %v", change.Old.Scalar)
	}
	if change.New.Scalar != 3000 {
		t.Errorf("New should be the final write 3000, got %v", change.New.Scalar)
	}
}

func TestMergeSnapshotsLaterWriteWins(t *testing.T) {
	first := ChangeSnapshot{"db": {"port": AttrChange{Old: NewScalar(1), New: NewScalar(2)}}}
	second := ChangeSnapshot{"db": {"port": AttrChange{Old: NewScalar(2), New: NewScalar(3)}}}

	merged := MergeSnapshots([]ChangeSnapshot{first, second})
	change := merged["db"]["port"]
	if change.New.Scalar != 3 {
		t.Errorf("expected the later snapshot's New to win, got %v", change.New.Scalar)
	}
	if change.Old.Scalar != 1 {
		t.Errorf("expected the earliest Old to be preserved, got %v", change.Old.Scalar)
	}
}
