package services

import (
	"context"
	"errors"

	"sciportfolio/internal/common"
	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
)

// Outcome is the result of an access check.
type Outcome int

const (
	Allowed Outcome = iota
	// Forbidden means the caller can see the entity but lacks the role for the action.
	Forbidden
	// NotFound means the entity does not exist or the caller has no relationship to it.
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	default:
		return "not_found"
	}
}

// Err maps the outcome onto the common error taxonomy; Allowed yields nil.
func (o Outcome) Err() error {
	switch o {
	case Allowed:
		return nil
	case Forbidden:
		return common.ErrForbidden
	default:
		return common.ErrNotFound
	}
}

// AccessResolver decides whether a user may perform an action on an entity by
// walking the ownership chain Structure -> Property -> Tenant/Document/Inspection.
// Every check is a direct lookup against the store it was built on, so a resolver
// built on a transaction-scoped store reads within that transaction.
type AccessResolver struct {
	store repositories.Store
}

func NewAccessResolver(store repositories.Store) *AccessResolver {
	return &AccessResolver{store: store}
}

// StructureRole returns the caller's role on a structure, or false when not a member.
func (a *AccessResolver) StructureRole(ctx context.Context, userID, structureID uuid.UUID) (models.Role, bool, error) {
	m, err := a.store.Memberships().Get(ctx, structureID, userID)
	if errors.Is(err, common.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Role, true, nil
}

func decide(role models.Role, visible bool, action Action) Outcome {
	if !visible {
		return NotFound
	}
	if RoleAllows(role, action) {
		return Allowed
	}
	return Forbidden
}

// CheckStructure requires a membership for visibility and a role granting action.
func (a *AccessResolver) CheckStructure(ctx context.Context, userID, structureID uuid.UUID, action Action) (Outcome, error) {
	role, member, err := a.StructureRole(ctx, userID, structureID)
	if err != nil {
		return NotFound, err
	}
	return decide(role, member, action), nil
}

// PropertyRole returns the caller's effective role on a property: owner for a
// directly held property, the membership role for a structure-held one.
func (a *AccessResolver) PropertyRole(ctx context.Context, userID uuid.UUID, p *models.Property) (models.Role, bool, error) {
	if p.OwnedBy(userID) {
		return models.RoleOwner, true, nil
	}
	if p.StructureID == nil {
		return "", false, nil
	}
	return a.StructureRole(ctx, userID, *p.StructureID)
}

// PropertyAccess evaluates action on an already loaded property.
func (a *AccessResolver) PropertyAccess(ctx context.Context, userID uuid.UUID, p *models.Property, action Action) (Outcome, error) {
	role, visible, err := a.PropertyRole(ctx, userID, p)
	if err != nil {
		return NotFound, err
	}
	return decide(role, visible, action), nil
}

func (a *AccessResolver) CheckProperty(ctx context.Context, userID, propertyID uuid.UUID, action Action) (Outcome, error) {
	p, err := a.store.Properties().GetByID(ctx, propertyID)
	if errors.Is(err, common.ErrNotFound) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}
	return a.PropertyAccess(ctx, userID, p, action)
}

// TenantAccess evaluates action on an already loaded tenant. The creator may
// view the tenant and has full control while it has no tenancy links. Otherwise
// rights come from the strongest role held on any property the tenant was ever
// linked to.
func (a *AccessResolver) TenantAccess(ctx context.Context, userID uuid.UUID, t *models.Tenant, action Action) (Outcome, error) {
	links, err := a.store.Tenancies().ListByTenant(ctx, t.ID)
	if err != nil {
		return NotFound, err
	}
	creator := t.CreatedBy == userID
	if creator && len(links) == 0 {
		return Allowed, nil
	}

	visible := creator
	seen := make(map[uuid.UUID]bool, len(links))
	for _, l := range links {
		if seen[l.PropertyID] {
			continue
		}
		seen[l.PropertyID] = true

		p, err := a.store.Properties().GetByID(ctx, l.PropertyID)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return NotFound, err
		}
		role, ok, err := a.PropertyRole(ctx, userID, p)
		if err != nil {
			return NotFound, err
		}
		if !ok {
			continue
		}
		visible = true
		if RoleAllows(role, action) {
			return Allowed, nil
		}
	}

	switch {
	case !visible:
		return NotFound, nil
	case action == ActionView:
		return Allowed, nil
	default:
		return Forbidden, nil
	}
}

func (a *AccessResolver) CheckTenant(ctx context.Context, userID, tenantID uuid.UUID, action Action) (Outcome, error) {
	t, err := a.store.Tenants().GetByID(ctx, tenantID)
	if errors.Is(err, common.ErrNotFound) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}
	return a.TenantAccess(ctx, userID, t, action)
}

// CheckDocumentTarget evaluates action against the entity a document of the
// given category would be attached to.
func (a *AccessResolver) CheckDocumentTarget(ctx context.Context, userID uuid.UUID, category models.DocumentCategory, targetID uuid.UUID, action Action) (Outcome, error) {
	switch category {
	case models.DocumentStructure:
		return a.CheckStructure(ctx, userID, targetID, action)
	case models.DocumentProperty:
		return a.CheckProperty(ctx, userID, targetID, action)
	case models.DocumentTenant:
		return a.CheckTenant(ctx, userID, targetID, action)
	}
	return NotFound, common.Invalidf("unknown document category %q", category)
}

// DocumentAccess evaluates action on an already loaded document through its target.
func (a *AccessResolver) DocumentAccess(ctx context.Context, userID uuid.UUID, d *models.Document, action Action) (Outcome, error) {
	targetID, ok := d.TargetID()
	if !ok {
		return NotFound, nil
	}
	return a.CheckDocumentTarget(ctx, userID, d.Category, targetID, action)
}

func (a *AccessResolver) CheckDocument(ctx context.Context, userID, documentID uuid.UUID, action Action) (Outcome, error) {
	d, err := a.store.Documents().GetByID(ctx, documentID)
	if errors.Is(err, common.ErrNotFound) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}
	return a.DocumentAccess(ctx, userID, d, action)
}

// InspectionPropertyAccess evaluates action for inspections of a property.
// Inspections are reachable only through the property's structure; a directly
// owned property is visible to its owner but carries no inspection rights.
func (a *AccessResolver) InspectionPropertyAccess(ctx context.Context, userID uuid.UUID, p *models.Property, action Action) (Outcome, error) {
	if p.StructureID == nil {
		if p.OwnedBy(userID) {
			return Forbidden, nil
		}
		return NotFound, nil
	}
	return a.CheckStructure(ctx, userID, *p.StructureID, action)
}

func (a *AccessResolver) CheckInspection(ctx context.Context, userID, inspectionID uuid.UUID, action Action) (Outcome, error) {
	i, err := a.store.Inspections().GetByID(ctx, inspectionID)
	if errors.Is(err, common.ErrNotFound) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}
	p, err := a.store.Properties().GetByID(ctx, i.PropertyID)
	if errors.Is(err, common.ErrNotFound) {
		return NotFound, nil
	}
	if err != nil {
		return NotFound, err
	}
	return a.InspectionPropertyAccess(ctx, userID, p, action)
}

// require converts a check result into an error, preferring storage failures.
func require(out Outcome, err error) error {
	if err != nil {
		return err
	}
	return out.Err()
}
