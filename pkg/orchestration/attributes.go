package orchestration

// AttrChange records one write: the instance it targeted, the attribute
// key, and the value before and after the write.
type AttrChange struct {
	InstanceKey string
	Key         string
	Old         *Value
	New         *Value
}

// ChangeSnapshot is one commit's worth of writes, keyed by instance then
// attribute — a changeset, one of which ConfigTask.changeList accumulates
// per cooperative step.
type ChangeSnapshot map[string]map[string]AttrChange

// AttributeManager mediates all reads and writes against instance
// attributes for the duration of a task. Each ConfigTask owns its own
// AttributeManager; a sub-task stages and commits its writes separately, and
// its parent appends the sub-task's committed snapshot to its own change
// list.
type AttributeManager struct {
	refCtxFor func(*Instance) RefContext
	staging   ChangeSnapshot
}

// NewAttributeManager builds an AttributeManager. refCtxFor builds the
// RefContext used to lazily resolve reference-kind attribute values on
// read; it is typically the owning ConfigTask's own context builder.
func NewAttributeManager(refCtxFor func(*Instance) RefContext) *AttributeManager {
	return &AttributeManager{
		refCtxFor: refCtxFor,
		staging:   make(ChangeSnapshot),
	}
}

// Get returns the current value of key on instance, resolving a
// reference-kind value lazily. A write staged earlier in the same task,
// before any commit, is visible here.
func (m *AttributeManager) Get(instance *Instance, key string) (*Value, error) {
	if staged, ok := m.staging[instance.Key()]; ok {
		if change, ok := staged[key]; ok {
			return change.New, nil
		}
	}
	v, ok := instance.Attributes[key]
	if !ok {
		return nil, nil
	}
	if v.Kind == KindReference && m.refCtxFor != nil {
		resolved, err := MapValue(v, m.refCtxFor(instance))
		if err != nil {
			return nil, err
		}
		return resolved, nil
	}
	return v, nil
}

// Set writes key = value through to instance.Attributes, so it is
// immediately visible to Get (invariant (a)), and records it in the staging
// log with its prior value for change-record construction. CommitChanges
// only snapshots and clears that log.
func (m *AttributeManager) Set(instance *Instance, key string, value *Value) {
	old := instance.Attributes[key]
	key2 := instance.Key()
	if m.staging[key2] == nil {
		m.staging[key2] = make(map[string]AttrChange)
	}
	// Preserve the true "before this task touched it" value across
	// multiple writes to the same key within one task.
	if existing, ok := m.staging[key2][key]; ok {
		old = existing.Old
	}
	m.staging[key2][key] = AttrChange{
		InstanceKey: key2,
		Key:         key,
		Old:         old,
		New:         value,
	}
	instance.Attributes[key] = value
}

// CommitChanges snapshots the staging log into a ChangeSnapshot and clears
// the staging area (invariant (b)). Idempotent on an empty staging area —
// returns an empty, non-nil snapshot.
func (m *AttributeManager) CommitChanges() ChangeSnapshot {
	if len(m.staging) == 0 {
		return ChangeSnapshot{}
	}
	out := m.staging
	m.staging = make(ChangeSnapshot)
	return out
}

// MergeSnapshots folds a list of ChangeSnapshots into one, later snapshots
// winning per (instance, key), with the earliest recorded Old value kept so
// the merged AttrChange still reflects the value before any of the writes.
func MergeSnapshots(snapshots []ChangeSnapshot) ChangeSnapshot {
	accum := make(ChangeSnapshot)
	for _, snap := range snapshots {
		for instKey, attrs := range snap {
			if accum[instKey] == nil {
				accum[instKey] = make(map[string]AttrChange)
			}
			for attrKey, change := range attrs {
				if existing, ok := accum[instKey][attrKey]; ok {
					// keep the earliest Old, take the latest New.
					change.Old = existing.Old
				}
				accum[instKey][attrKey] = change
			}
		}
	}
	return accum
}
