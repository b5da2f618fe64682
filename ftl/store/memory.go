// Package store provides an in-memory ftl.Store implementation
// (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skyops/ftl-engine/ftl"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	configs    map[ftl.OrgID]*ftl.RegulatoryConfig
	duties     map[uuid.UUID]*ftl.DutyPeriod
	rests      map[uuid.UUID]*ftl.RestPeriod
	violations map[uuid.UUID]*ftl.FTLViolation
	summaries  map[pilotKey]*ftl.PilotFtlSummary
}

type pilotKey struct {
	Org   ftl.OrgID
	Pilot ftl.PilotID
}

func NewMemory() *Memory {
	return &Memory{
		configs:    make(map[ftl.OrgID]*ftl.RegulatoryConfig),
		duties:     make(map[uuid.UUID]*ftl.DutyPeriod),
		rests:      make(map[uuid.UUID]*ftl.RestPeriod),
		violations: make(map[uuid.UUID]*ftl.FTLViolation),
		summaries:  make(map[pilotKey]*ftl.PilotFtlSummary),
	}
}

// --- Config ---

func (m *Memory) GetConfig(_ context.Context, orgID ftl.OrgID) (*ftl.RegulatoryConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[orgID]
	if !ok {
		return nil, ftl.ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (m *Memory) PutConfig(_ context.Context, cfg *ftl.RegulatoryConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cfg
	m.configs[cfg.OrgID] = &cp
	return nil
}

// --- Duty periods ---

func (m *Memory) CreateDuty(_ context.Context, d *ftl.DutyPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyDuty(d)
	m.duties[d.ID] = cp
	return nil
}

func (m *Memory) GetDuty(_ context.Context, id uuid.UUID) (*ftl.DutyPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.duties[id]
	if !ok {
		return nil, ftl.ErrNotFound
	}
	return copyDuty(d), nil
}

func (m *Memory) UpdateDuty(_ context.Context, d *ftl.DutyPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.duties[d.ID]; !ok {
		return ftl.ErrNotFound
	}
	m.duties[d.ID] = copyDuty(d)
	return nil
}

func (m *Memory) OpenDuties(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) ([]*ftl.DutyPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*ftl.DutyPeriod
	for _, d := range m.duties {
		if d.OrgID == orgID && d.PilotID == pilotID && d.IsOpen() {
			result = append(result, copyDuty(d))
		}
	}
	sortDuties(result)
	return result, nil
}

func (m *Memory) ClosedDutiesInRange(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID, from, to time.Time) ([]*ftl.DutyPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*ftl.DutyPeriod
	for _, d := range m.duties {
		if d.OrgID != orgID || d.PilotID != pilotID || d.IsOpen() {
			continue
		}
		// Date-based overlap, inclusive of both endpoints. An overnight
		// period that began before the range but ran into it counts.
		if ftl.DateOf(d.Start).After(ftl.DateOf(to)) || ftl.DateOf(*d.End).Before(ftl.DateOf(from)) {
			continue
		}
		result = append(result, copyDuty(d))
	}
	sortDuties(result)
	return result, nil
}

func (m *Memory) LastClosedDuty(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) (*ftl.DutyPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last *ftl.DutyPeriod
	for _, d := range m.duties {
		if d.OrgID != orgID || d.PilotID != pilotID || d.IsOpen() {
			continue
		}
		if last == nil || d.End.After(*last.End) {
			last = d
		}
	}
	if last == nil {
		return nil, ftl.ErrNotFound
	}
	return copyDuty(last), nil
}

// --- Rest periods ---

func (m *Memory) CreateRest(_ context.Context, r *ftl.RestPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rests[r.ID] = copyRest(r)
	return nil
}

func (m *Memory) GetRest(_ context.Context, id uuid.UUID) (*ftl.RestPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rests[id]
	if !ok {
		return nil, ftl.ErrNotFound
	}
	return copyRest(r), nil
}

func (m *Memory) UpdateRest(_ context.Context, r *ftl.RestPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rests[r.ID]; !ok {
		return ftl.ErrNotFound
	}
	m.rests[r.ID] = copyRest(r)
	return nil
}

func (m *Memory) OpenRests(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) ([]*ftl.RestPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*ftl.RestPeriod
	for _, r := range m.rests {
		if r.OrgID == orgID && r.PilotID == pilotID && r.IsOpen() {
			result = append(result, copyRest(r))
		}
	}
	sortRests(result)
	return result, nil
}

func (m *Memory) RestsEndedInRange(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID, from, to time.Time) ([]*ftl.RestPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*ftl.RestPeriod
	for _, r := range m.rests {
		if r.OrgID != orgID || r.PilotID != pilotID || r.IsOpen() {
			continue
		}
		date := ftl.DateOf(*r.End)
		if date.Before(ftl.DateOf(from)) || date.After(ftl.DateOf(to)) {
			continue
		}
		result = append(result, copyRest(r))
	}
	sortRests(result)
	return result, nil
}

func (m *Memory) LastEndedRest(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) (*ftl.RestPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var last *ftl.RestPeriod
	for _, r := range m.rests {
		if r.OrgID != orgID || r.PilotID != pilotID || r.IsOpen() {
			continue
		}
		if last == nil || r.End.After(*last.End) {
			last = r
		}
	}
	if last == nil {
		return nil, ftl.ErrNotFound
	}
	return copyRest(last), nil
}

// --- Violations ---

func (m *Memory) AppendViolation(_ context.Context, v *ftl.FTLViolation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.violations[v.ID] = &cp
	return nil
}

func (m *Memory) GetViolation(_ context.Context, id uuid.UUID) (*ftl.FTLViolation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.violations[id]
	if !ok {
		return nil, ftl.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *Memory) ListViolations(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) ([]*ftl.FTLViolation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*ftl.FTLViolation
	for _, v := range m.violations {
		if v.OrgID == orgID && v.PilotID == pilotID {
			cp := *v
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) UpdateViolation(_ context.Context, v *ftl.FTLViolation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.violations[v.ID]; !ok {
		return ftl.ErrNotFound
	}
	cp := *v
	m.violations[v.ID] = &cp
	return nil
}

// --- Summary cache ---

func (m *Memory) GetSummary(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) (*ftl.PilotFtlSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[pilotKey{Org: orgID, Pilot: pilotID}]
	if !ok {
		return nil, ftl.ErrNotFound
	}
	cp := *s
	cp.Issues = append([]string(nil), s.Issues...)
	return &cp, nil
}

func (m *Memory) PutSummary(_ context.Context, s *ftl.PilotFtlSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Issues = append([]string(nil), s.Issues...)
	m.summaries[pilotKey{Org: s.OrgID, Pilot: s.PilotID}] = &cp
	return nil
}

func (m *Memory) DeleteSummary(_ context.Context, orgID ftl.OrgID, pilotID ftl.PilotID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.summaries, pilotKey{Org: orgID, Pilot: pilotID})
	return nil
}

// =============================================================================
// COPY HELPERS - The store never hands out its own pointers
// =============================================================================

func copyDuty(d *ftl.DutyPeriod) *ftl.DutyPeriod {
	cp := *d
	if d.End != nil {
		end := *d.End
		cp.End = &end
	}
	cp.FlightIDs = append([]uuid.UUID(nil), d.FlightIDs...)
	return &cp
}

func copyRest(r *ftl.RestPeriod) *ftl.RestPeriod {
	cp := *r
	if r.End != nil {
		end := *r.End
		cp.End = &end
	}
	return &cp
}

func sortDuties(duties []*ftl.DutyPeriod) {
	sort.Slice(duties, func(i, j int) bool { return duties[i].Start.Before(duties[j].Start) })
}

func sortRests(rests []*ftl.RestPeriod) {
	sort.Slice(rests, func(i, j int) bool { return rests[i].Start.Before(rests[j].Start) })
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx serializes transactions: the snapshot must be the exact state a
// rollback returns to, so no other transaction may commit in between.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ftl.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	configs    map[ftl.OrgID]*ftl.RegulatoryConfig
	duties     map[uuid.UUID]*ftl.DutyPeriod
	rests      map[uuid.UUID]*ftl.RestPeriod
	violations map[uuid.UUID]*ftl.FTLViolation
	summaries  map[pilotKey]*ftl.PilotFtlSummary
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	s := memorySnapshot{
		configs:    make(map[ftl.OrgID]*ftl.RegulatoryConfig, len(tm.configs)),
		duties:     make(map[uuid.UUID]*ftl.DutyPeriod, len(tm.duties)),
		rests:      make(map[uuid.UUID]*ftl.RestPeriod, len(tm.rests)),
		violations: make(map[uuid.UUID]*ftl.FTLViolation, len(tm.violations)),
		summaries:  make(map[pilotKey]*ftl.PilotFtlSummary, len(tm.summaries)),
	}
	for k, v := range tm.configs {
		cp := *v
		s.configs[k] = &cp
	}
	for k, v := range tm.duties {
		s.duties[k] = copyDuty(v)
	}
	for k, v := range tm.rests {
		s.rests[k] = copyRest(v)
	}
	for k, v := range tm.violations {
		cp := *v
		s.violations[k] = &cp
	}
	for k, v := range tm.summaries {
		cp := *v
		s.summaries[k] = &cp
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.configs = s.configs
	tm.duties = s.duties
	tm.rests = s.rests
	tm.violations = s.violations
	tm.summaries = s.summaries
}
