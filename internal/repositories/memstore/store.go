// Package memstore is an in-memory repositories.Store for tests.
//
// Transactions run against a snapshot that replaces the live state on
// commit, so a failing transaction leaves no trace. Transactions are
// serialized; writes made outside a transaction while one is running are
// lost when it commits.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
)

type state struct {
	users       map[uuid.UUID]models.User
	structures  map[uuid.UUID]models.Structure
	associates  []models.Associate
	memberships []models.Membership
	properties  map[uuid.UUID]models.Property
	tenants     map[uuid.UUID]models.Tenant
	tenancies   []models.TenancyLink
	documents   map[uuid.UUID]models.Document
	inspections map[uuid.UUID]models.Inspection
}

func newState() *state {
	return &state{
		users:       make(map[uuid.UUID]models.User),
		structures:  make(map[uuid.UUID]models.Structure),
		properties:  make(map[uuid.UUID]models.Property),
		tenants:     make(map[uuid.UUID]models.Tenant),
		documents:   make(map[uuid.UUID]models.Document),
		inspections: make(map[uuid.UUID]models.Inspection),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.structures {
		c.structures[k] = v
	}
	c.associates = append([]models.Associate(nil), s.associates...)
	c.memberships = append([]models.Membership(nil), s.memberships...)
	for k, v := range s.properties {
		c.properties[k] = v
	}
	for k, v := range s.tenants {
		c.tenants[k] = v
	}
	c.tenancies = append([]models.TenancyLink(nil), s.tenancies...)
	for k, v := range s.documents {
		c.documents[k] = v
	}
	for k, v := range s.inspections {
		v.Photos = append([]string(nil), v.Photos...)
		c.inspections[k] = v
	}
	return c
}

type clock struct {
	mu   sync.Mutex
	last time.Time
}

// next returns a strictly increasing timestamp so creation order is total.
func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

type faults struct {
	mu  sync.Mutex
	ops map[string]error
}

// take returns and clears the injected error for op.
func (f *faults) take(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.ops[op]
	delete(f.ops, op)
	return err
}

// Store implements repositories.Store in memory.
type Store struct {
	mu     *sync.Mutex
	txMu   *sync.Mutex
	st     *state
	clock  *clock
	faults *faults
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		mu:     &sync.Mutex{},
		txMu:   &sync.Mutex{},
		st:     newState(),
		clock:  &clock{},
		faults: &faults{ops: make(map[string]error)},
	}
}

// FailNext makes the next call of op (for example "properties.UpdateStatus") return err.
func (s *Store) FailNext(op string, err error) {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	s.faults.ops[op] = err
}

func (s *Store) Users() repositories.UserRepository             { return &userRepo{s} }
func (s *Store) Structures() repositories.StructureRepository   { return &structureRepo{s} }
func (s *Store) Memberships() repositories.MembershipRepository { return &membershipRepo{s} }
func (s *Store) Properties() repositories.PropertyRepository    { return &propertyRepo{s} }
func (s *Store) Tenants() repositories.TenantRepository         { return &tenantRepo{s} }
func (s *Store) Tenancies() repositories.TenancyRepository      { return &tenancyRepo{s} }
func (s *Store) Documents() repositories.DocumentRepository     { return &documentRepo{s} }
func (s *Store) Inspections() repositories.InspectionRepository { return &inspectionRepo{s} }

func (s *Store) InTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	tx := &Store{
		mu:     &sync.Mutex{},
		txMu:   &sync.Mutex{},
		st:     snapshot,
		clock:  s.clock,
		faults: s.faults,
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = tx.st
	s.mu.Unlock()
	return nil
}

// lock acquires the store and reports any injected fault for op.
func (s *Store) lock(op string) (func(), error) {
	if err := s.faults.take(op); err != nil {
		return func() {}, err
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

func (s *state) membership(structureID, userID uuid.UUID) (models.Membership, bool) {
	for _, m := range s.memberships {
		if m.StructureID == structureID && m.UserID == userID {
			return m, true
		}
	}
	return models.Membership{}, false
}

func (s *state) propertyReachable(p models.Property, userID uuid.UUID) bool {
	if p.OwnedBy(userID) {
		return true
	}
	if p.StructureID == nil {
		return false
	}
	_, ok := s.membership(*p.StructureID, userID)
	return ok
}

func (s *state) tenantReachable(t models.Tenant, userID uuid.UUID) bool {
	if t.CreatedBy == userID {
		return true
	}
	for _, l := range s.tenancies {
		if l.TenantID != t.ID {
			continue
		}
		if p, ok := s.properties[l.PropertyID]; ok && s.propertyReachable(p, userID) {
			return true
		}
	}
	return false
}

func (s *state) documentReachable(d models.Document, userID uuid.UUID) bool {
	if d.StructureID != nil {
		if _, ok := s.membership(*d.StructureID, userID); ok {
			return true
		}
	}
	if d.PropertyID != nil {
		if p, ok := s.properties[*d.PropertyID]; ok && s.propertyReachable(p, userID) {
			return true
		}
	}
	if d.TenantID != nil {
		if t, ok := s.tenants[*d.TenantID]; ok && s.tenantReachable(t, userID) {
			return true
		}
	}
	return false
}

func (s *state) deleteProperty(id uuid.UUID) {
	delete(s.properties, id)
	links := s.tenancies[:0]
	for _, l := range s.tenancies {
		if l.PropertyID != id {
			links = append(links, l)
		}
	}
	s.tenancies = links
	for k, d := range s.documents {
		if d.PropertyID != nil && *d.PropertyID == id {
			delete(s.documents, k)
		}
	}
	for k, i := range s.inspections {
		if i.PropertyID == id {
			delete(s.inspections, k)
		}
	}
}

func (s *state) deleteTenant(id uuid.UUID) {
	delete(s.tenants, id)
	links := s.tenancies[:0]
	for _, l := range s.tenancies {
		if l.TenantID != id {
			links = append(links, l)
		}
	}
	s.tenancies = links
	for k, d := range s.documents {
		if d.TenantID != nil && *d.TenantID == id {
			delete(s.documents, k)
		}
	}
}

func (s *state) deleteStructure(id uuid.UUID) {
	delete(s.structures, id)
	associates := s.associates[:0]
	for _, a := range s.associates {
		if a.StructureID != id {
			associates = append(associates, a)
		}
	}
	s.associates = associates
	memberships := s.memberships[:0]
	for _, m := range s.memberships {
		if m.StructureID != id {
			memberships = append(memberships, m)
		}
	}
	s.memberships = memberships
	for pid, p := range s.properties {
		if p.StructureID != nil && *p.StructureID == id {
			s.deleteProperty(pid)
		}
	}
	for k, d := range s.documents {
		if d.StructureID != nil && *d.StructureID == id {
			delete(s.documents, k)
		}
	}
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortByCreatedDesc[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}
