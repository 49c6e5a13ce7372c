package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"

	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r *userRepo) UpsertBySubject(ctx context.Context, user *models.User) (*models.User, error) {
	unlock, err := r.s.lock("users.UpsertBySubject")
	defer unlock()
	if err != nil {
		return nil, err
	}
	st := r.s.st
	for id, u := range st.users {
		if u.Subject != user.Subject {
			continue
		}
		if user.Email != nil {
			u.Email = user.Email
		}
		if user.Name != nil {
			u.Name = user.Name
		}
		st.users[id] = u
		return &u, nil
	}
	if user.Email != nil {
		for _, u := range st.users {
			if u.Email != nil && strings.EqualFold(*u.Email, *user.Email) {
				return nil, fmt.Errorf("%w: email already exists", common.ErrConflict)
			}
		}
	}
	u := *user
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = r.s.clock.next()
	st.users[u.ID] = u
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	unlock, err := r.s.lock("users.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	unlock, err := r.s.lock("users.GetByEmail")
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, u := range r.s.st.users {
		if u.Email != nil && strings.EqualFold(*u.Email, email) {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

type structureRepo struct{ s *Store }

func (r *structureRepo) Create(ctx context.Context, structure *models.Structure) error {
	unlock, err := r.s.lock("structures.Create")
	defer unlock()
	if err != nil {
		return err
	}
	for _, existing := range r.s.st.structures {
		if existing.RegistrationNumber == structure.RegistrationNumber {
			return fmt.Errorf("%w: registration number already exists", common.ErrConflict)
		}
	}
	now := r.s.clock.next()
	structure.CreatedAt, structure.UpdatedAt = now, now
	r.s.st.structures[structure.ID] = *structure
	return nil
}

func (r *structureRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Structure, error) {
	unlock, err := r.s.lock("structures.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	s, ok := r.s.st.structures[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (r *structureRepo) GetByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Structure, error) {
	unlock, err := r.s.lock("structures.GetByRegistrationNumber")
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, s := range r.s.st.structures {
		if s.RegistrationNumber == registrationNumber {
			return &s, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *structureRepo) Update(ctx context.Context, structure *models.Structure) error {
	unlock, err := r.s.lock("structures.Update")
	defer unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.st.structures[structure.ID]
	if !ok {
		return common.ErrNotFound
	}
	existing.Name = structure.Name
	existing.Address = structure.Address
	existing.Capital = structure.Capital
	existing.MainContact = structure.MainContact
	existing.Email = structure.Email
	existing.Phone = structure.Phone
	existing.UpdatedAt = r.s.clock.next()
	r.s.st.structures[structure.ID] = existing
	structure.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *structureRepo) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := r.s.lock("structures.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.st.structures[id]; !ok {
		return common.ErrNotFound
	}
	r.s.st.deleteStructure(id)
	return nil
}

func (r *structureRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Structure, error) {
	unlock, err := r.s.lock("structures.ListForUser")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Structure
	for _, m := range r.s.st.memberships {
		if m.UserID != userID {
			continue
		}
		if s, ok := r.s.st.structures[m.StructureID]; ok {
			out = append(out, &s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *structureRepo) Lock(ctx context.Context, id uuid.UUID) error {
	unlock, err := r.s.lock("structures.Lock")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.st.structures[id]; !ok {
		return common.ErrNotFound
	}
	return nil
}

func (r *structureRepo) AddAssociates(ctx context.Context, associates []*models.Associate) error {
	unlock, err := r.s.lock("structures.AddAssociates")
	defer unlock()
	if err != nil {
		return err
	}
	for _, a := range associates {
		if _, ok := r.s.st.structures[a.StructureID]; !ok {
			return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
		}
		r.s.st.associates = append(r.s.st.associates, *a)
	}
	return nil
}

func (r *structureRepo) ListAssociates(ctx context.Context, structureID uuid.UUID) ([]*models.Associate, error) {
	unlock, err := r.s.lock("structures.ListAssociates")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Associate
	for _, a := range r.s.st.associates {
		if a.StructureID == structureID {
			a := a
			out = append(out, &a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type membershipRepo struct{ s *Store }

func (r *membershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	unlock, err := r.s.lock("memberships.Create")
	defer unlock()
	if err != nil {
		return err
	}
	st := r.s.st
	if _, ok := st.membership(membership.StructureID, membership.UserID); ok {
		return fmt.Errorf("%w: membership already exists", common.ErrConflict)
	}
	if _, ok := st.structures[membership.StructureID]; !ok {
		return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
	}
	if _, ok := st.users[membership.UserID]; !ok {
		return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
	}
	membership.CreatedAt = r.s.clock.next()
	st.memberships = append(st.memberships, *membership)
	return nil
}

func (r *membershipRepo) Get(ctx context.Context, structureID, userID uuid.UUID) (*models.Membership, error) {
	unlock, err := r.s.lock("memberships.Get")
	defer unlock()
	if err != nil {
		return nil, err
	}
	m, ok := r.s.st.membership(structureID, userID)
	if !ok {
		return nil, common.ErrNotFound
	}
	return &m, nil
}

func (r *membershipRepo) ListMembers(ctx context.Context, structureID uuid.UUID) ([]*models.Member, error) {
	unlock, err := r.s.lock("memberships.ListMembers")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Member
	for _, m := range r.s.st.memberships {
		if m.StructureID != structureID {
			continue
		}
		u := r.s.st.users[m.UserID]
		out = append(out, &models.Member{UserID: m.UserID, Name: u.Name, Email: u.Email, Role: m.Role, CreatedAt: m.CreatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *membershipRepo) UpdateRole(ctx context.Context, structureID, userID uuid.UUID, role models.Role) error {
	unlock, err := r.s.lock("memberships.UpdateRole")
	defer unlock()
	if err != nil {
		return err
	}
	for i, m := range r.s.st.memberships {
		if m.StructureID == structureID && m.UserID == userID {
			r.s.st.memberships[i].Role = role
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *membershipRepo) Delete(ctx context.Context, structureID, userID uuid.UUID) error {
	unlock, err := r.s.lock("memberships.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	for i, m := range r.s.st.memberships {
		if m.StructureID == structureID && m.UserID == userID {
			r.s.st.memberships = append(r.s.st.memberships[:i], r.s.st.memberships[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *membershipRepo) CountOwners(ctx context.Context, structureID uuid.UUID) (int, error) {
	unlock, err := r.s.lock("memberships.CountOwners")
	defer unlock()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range r.s.st.memberships {
		if m.StructureID == structureID && m.Role == models.RoleOwner {
			count++
		}
	}
	return count, nil
}

type propertyRepo struct{ s *Store }

func checkOwnership(p *models.Property) error {
	if (p.StructureID == nil) == (p.UserID == nil) {
		return fmt.Errorf("%w: properties_single_owner", common.ErrInvalidInput)
	}
	return nil
}

func (r *propertyRepo) Create(ctx context.Context, property *models.Property) error {
	unlock, err := r.s.lock("properties.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if err := checkOwnership(property); err != nil {
		return err
	}
	if property.StructureID != nil {
		if _, ok := r.s.st.structures[*property.StructureID]; !ok {
			return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
		}
	}
	now := r.s.clock.next()
	property.CreatedAt, property.UpdatedAt = now, now
	r.s.st.properties[property.ID] = *property
	return nil
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	unlock, err := r.s.lock("properties.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	p, ok := r.s.st.properties[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (r *propertyRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	if err := r.s.faults.take("properties.GetForUpdate"); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *propertyRepo) Update(ctx context.Context, property *models.Property) error {
	unlock, err := r.s.lock("properties.Update")
	defer unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.st.properties[property.ID]
	if !ok {
		return common.ErrNotFound
	}
	if err := checkOwnership(property); err != nil {
		return err
	}
	updated := *property
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.s.clock.next()
	r.s.st.properties[property.ID] = updated
	property.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *propertyRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PropertyStatus) error {
	unlock, err := r.s.lock("properties.UpdateStatus")
	defer unlock()
	if err != nil {
		return err
	}
	p, ok := r.s.st.properties[id]
	if !ok {
		return common.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = r.s.clock.next()
	r.s.st.properties[id] = p
	return nil
}

func (r *propertyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := r.s.lock("properties.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.st.properties[id]; !ok {
		return common.ErrNotFound
	}
	r.s.st.deleteProperty(id)
	return nil
}

func (r *propertyRepo) ListAccessible(ctx context.Context, userID uuid.UUID, filter models.PropertyFilter) ([]*models.Property, error) {
	unlock, err := r.s.lock("properties.ListAccessible")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Property
	for _, p := range r.s.st.properties {
		if !r.s.st.propertyReachable(p, userID) {
			continue
		}
		if filter.StructureID != nil && (p.StructureID == nil || *p.StructureID != *filter.StructureID) {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && p.Type != *filter.Type {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sortByCreatedDesc(out, func(p *models.Property) time.Time { return p.CreatedAt })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *propertyRepo) ListByStructure(ctx context.Context, structureID uuid.UUID) ([]*models.Property, error) {
	unlock, err := r.s.lock("properties.ListByStructure")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Property
	for _, p := range r.s.st.properties {
		if p.StructureID != nil && *p.StructureID == structureID {
			p := p
			out = append(out, &p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

type tenantRepo struct{ s *Store }

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	unlock, err := r.s.lock("tenants.Create")
	defer unlock()
	if err != nil {
		return err
	}
	now := r.s.clock.next()
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	r.s.st.tenants[tenant.ID] = *tenant
	return nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	unlock, err := r.s.lock("tenants.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	t, ok := r.s.st.tenants[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	unlock, err := r.s.lock("tenants.Update")
	defer unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.st.tenants[tenant.ID]
	if !ok {
		return common.ErrNotFound
	}
	updated := *tenant
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.s.clock.next()
	r.s.st.tenants[tenant.ID] = updated
	tenant.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *tenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := r.s.lock("tenants.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.st.tenants[id]; !ok {
		return common.ErrNotFound
	}
	r.s.st.deleteTenant(id)
	return nil
}

func (r *tenantRepo) ListAccessible(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Tenant, error) {
	unlock, err := r.s.lock("tenants.ListAccessible")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Tenant
	for _, t := range r.s.st.tenants {
		if r.s.st.tenantReachable(t, userID) {
			t := t
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return paginate(out, limit, offset), nil
}

func (r *tenantRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Tenant, error) {
	unlock, err := r.s.lock("tenants.GetByIDs")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Tenant
	for _, id := range ids {
		if t, ok := r.s.st.tenants[id]; ok {
			out = append(out, &t)
		}
	}
	return out, nil
}

type tenancyRepo struct{ s *Store }

func (r *tenancyRepo) Create(ctx context.Context, link *models.TenancyLink) error {
	unlock, err := r.s.lock("tenancies.Create")
	defer unlock()
	if err != nil {
		return err
	}
	st := r.s.st
	if _, ok := st.properties[link.PropertyID]; !ok {
		return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
	}
	if _, ok := st.tenants[link.TenantID]; !ok {
		return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
	}
	if link.Active {
		for _, l := range st.tenancies {
			if l.PropertyID == link.PropertyID && l.Active {
				return fmt.Errorf("%w: active tenancy already exists", common.ErrConflict)
			}
		}
	}
	link.CreatedAt = r.s.clock.next()
	st.tenancies = append(st.tenancies, *link)
	return nil
}

func (r *tenancyRepo) DeactivateActive(ctx context.Context, propertyID uuid.UUID, endDate time.Time) (int64, error) {
	unlock, err := r.s.lock("tenancies.DeactivateActive")
	defer unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for i, l := range r.s.st.tenancies {
		if l.PropertyID == propertyID && l.Active {
			end := endDate
			r.s.st.tenancies[i].Active = false
			r.s.st.tenancies[i].EndDate = &end
			n++
		}
	}
	return n, nil
}

func (r *tenancyRepo) GetActiveByProperty(ctx context.Context, propertyID uuid.UUID) (*models.TenancyLink, error) {
	unlock, err := r.s.lock("tenancies.GetActiveByProperty")
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, l := range r.s.st.tenancies {
		if l.PropertyID == propertyID && l.Active {
			return &l, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *tenancyRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.TenancyLink, error) {
	return r.filter("tenancies.ListByProperty", func(l models.TenancyLink) bool { return l.PropertyID == propertyID })
}

func (r *tenancyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.TenancyLink, error) {
	return r.filter("tenancies.ListByTenant", func(l models.TenancyLink) bool { return l.TenantID == tenantID })
}

func (r *tenancyRepo) ListByProperties(ctx context.Context, propertyIDs []uuid.UUID) ([]*models.TenancyLink, error) {
	ids := make(map[uuid.UUID]bool, len(propertyIDs))
	for _, id := range propertyIDs {
		ids[id] = true
	}
	return r.filter("tenancies.ListByProperties", func(l models.TenancyLink) bool { return ids[l.PropertyID] })
}

func (r *tenancyRepo) HasActiveForTenant(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	links, err := r.filter("tenancies.HasActiveForTenant", func(l models.TenancyLink) bool {
		return l.TenantID == tenantID && l.Active
	})
	return len(links) > 0, err
}

func (r *tenancyRepo) filter(op string, keep func(models.TenancyLink) bool) ([]*models.TenancyLink, error) {
	unlock, err := r.s.lock(op)
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.TenancyLink
	for _, l := range r.s.st.tenancies {
		if keep(l) {
			l := l
			out = append(out, &l)
		}
	}
	sortByCreatedDesc(out, func(l *models.TenancyLink) time.Time { return l.CreatedAt })
	return out, nil
}

type documentRepo struct{ s *Store }

func (r *documentRepo) Create(ctx context.Context, document *models.Document) error {
	unlock, err := r.s.lock("documents.Create")
	defer unlock()
	if err != nil {
		return err
	}
	document.CreatedAt = r.s.clock.next()
	r.s.st.documents[document.ID] = *document
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	unlock, err := r.s.lock("documents.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	d, ok := r.s.st.documents[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &d, nil
}

func (r *documentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := r.s.lock("documents.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.st.documents[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.st.documents, id)
	return nil
}

func (r *documentRepo) ListAccessible(ctx context.Context, userID uuid.UUID, filter models.DocumentFilter) ([]*models.Document, error) {
	unlock, err := r.s.lock("documents.ListAccessible")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Document
	for _, d := range r.s.st.documents {
		if !r.s.st.documentReachable(d, userID) {
			continue
		}
		if filter.Category != nil && d.Category != *filter.Category {
			continue
		}
		if filter.Type != nil && d.Type != *filter.Type {
			continue
		}
		if filter.EntityID != nil && !refersTo(d, *filter.EntityID) {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sortByCreatedDesc(out, func(d *models.Document) time.Time { return d.CreatedAt })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func refersTo(d models.Document, id uuid.UUID) bool {
	for _, ref := range []*uuid.UUID{d.StructureID, d.PropertyID, d.TenantID} {
		if ref != nil && *ref == id {
			return true
		}
	}
	return false
}

func (r *documentRepo) ListByTarget(ctx context.Context, category models.DocumentCategory, targetID uuid.UUID) ([]*models.Document, error) {
	unlock, err := r.s.lock("documents.ListByTarget")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Document
	for _, d := range r.s.st.documents {
		probe := models.Document{Category: category, StructureID: d.StructureID, PropertyID: d.PropertyID, TenantID: d.TenantID}
		if id, ok := probe.TargetID(); ok && id == targetID {
			d := d
			out = append(out, &d)
		}
	}
	sortByCreatedDesc(out, func(d *models.Document) time.Time { return d.CreatedAt })
	return out, nil
}

func (r *documentRepo) CountByTarget(ctx context.Context, category models.DocumentCategory, targetID uuid.UUID) (int, error) {
	docs, err := r.ListByTarget(ctx, category, targetID)
	return len(docs), err
}

func (r *documentRepo) ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.Document, error) {
	unlock, err := r.s.lock("documents.ListExpiring")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Document
	for _, d := range r.s.st.documents {
		if d.ExpiryDate != nil && !d.ExpiryDate.After(cutoff) {
			d := d
			out = append(out, &d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return out, nil
}

type inspectionRepo struct{ s *Store }

func (r *inspectionRepo) Create(ctx context.Context, inspection *models.Inspection) error {
	unlock, err := r.s.lock("inspections.Create")
	defer unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.st.properties[inspection.PropertyID]; !ok {
		return fmt.Errorf("%w: referenced entity does not exist", common.ErrInvalidInput)
	}
	now := r.s.clock.next()
	inspection.CreatedAt, inspection.UpdatedAt = now, now
	stored := *inspection
	stored.Photos = append([]string(nil), inspection.Photos...)
	r.s.st.inspections[inspection.ID] = stored
	return nil
}

func (r *inspectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Inspection, error) {
	unlock, err := r.s.lock("inspections.GetByID")
	defer unlock()
	if err != nil {
		return nil, err
	}
	i, ok := r.s.st.inspections[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	i.Photos = append([]string{}, i.Photos...)
	return &i, nil
}

func (r *inspectionRepo) GetByShareToken(ctx context.Context, token string) (*models.Inspection, error) {
	unlock, err := r.s.lock("inspections.GetByShareToken")
	defer unlock()
	if err != nil {
		return nil, err
	}
	for _, i := range r.s.st.inspections {
		if i.ShareToken != nil && *i.ShareToken == token {
			i.Photos = append([]string{}, i.Photos...)
			return &i, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *inspectionRepo) Update(ctx context.Context, inspection *models.Inspection) error {
	unlock, err := r.s.lock("inspections.Update")
	defer unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.st.inspections[inspection.ID]
	if !ok {
		return common.ErrNotFound
	}
	if existing.Completed() {
		return common.Conflictf("completed inspections cannot be modified")
	}
	updated := *inspection
	updated.Photos = append([]string(nil), inspection.Photos...)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = r.s.clock.next()
	r.s.st.inspections[inspection.ID] = updated
	inspection.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *inspectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := r.s.lock("inspections.Delete")
	defer unlock()
	if err != nil {
		return err
	}
	existing, ok := r.s.st.inspections[id]
	if !ok {
		return common.ErrNotFound
	}
	if existing.Completed() {
		return common.Conflictf("completed inspections cannot be deleted")
	}
	delete(r.s.st.inspections, id)
	return nil
}

func (r *inspectionRepo) ListAccessible(ctx context.Context, userID uuid.UUID, filter models.InspectionFilter) ([]*models.Inspection, error) {
	unlock, err := r.s.lock("inspections.ListAccessible")
	defer unlock()
	if err != nil {
		return nil, err
	}
	var out []*models.Inspection
	for _, i := range r.s.st.inspections {
		p, ok := r.s.st.properties[i.PropertyID]
		if !ok || p.StructureID == nil {
			continue
		}
		if _, member := r.s.st.membership(*p.StructureID, userID); !member {
			continue
		}
		if filter.PropertyID != nil && i.PropertyID != *filter.PropertyID {
			continue
		}
		if filter.Type != nil && i.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && i.Status != *filter.Status {
			continue
		}
		i := i
		i.Photos = append([]string{}, i.Photos...)
		out = append(out, &i)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *inspectionRepo) ClearExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	unlock, err := r.s.lock("inspections.ClearExpiredShares")
	defer unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for id, i := range r.s.st.inspections {
		if i.ShareExpiry != nil && i.ShareExpiry.Before(now) {
			i.ShareToken = nil
			i.ShareExpiry = nil
			r.s.st.inspections[id] = i
			n++
		}
	}
	return n, nil
}
