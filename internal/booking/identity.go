package booking

import "github.com/iliyamo/museum-booking/internal/model"

// Identity is the authenticated caller as supplied by the credential
// layer.  The booking core trusts it without re-validating credentials.
type Identity struct {
	UserID uint64
	Role   string
}

// Permission names one capability checked at the service boundary.
type Permission string

const (
	PermBook          Permission = "book"
	PermCancel        Permission = "cancel"
	PermViewOwn       Permission = "view_own"
	PermViewAll       Permission = "view_all"
	PermManageCatalog Permission = "manage_catalog"
	PermManagePool    Permission = "manage_pool"
	PermManageUsers   Permission = "manage_users"
)

var grants = map[Permission]map[string]bool{
	PermBook:          {model.RoleVisitor: true, model.RoleGuide: true, model.RoleAdmin: true},
	PermCancel:        {model.RoleVisitor: true, model.RoleGuide: true, model.RoleAdmin: true},
	PermViewOwn:       {model.RoleVisitor: true, model.RoleGuide: true, model.RoleAdmin: true},
	PermViewAll:       {model.RoleAdmin: true},
	PermManageCatalog: {model.RoleAdmin: true},
	PermManagePool:    {model.RoleAdmin: true},
	PermManageUsers:   {model.RoleAdmin: true},
}

// Can reports whether id holds p.
func (id Identity) Can(p Permission) bool {
	return id.UserID != 0 && grants[p][id.Role]
}

// Authorize returns an authorization error unless id holds p.
func Authorize(id Identity, p Permission) error {
	if id.UserID == 0 {
		return NewForbidden("authentication required")
	}
	if !id.Can(p) {
		return NewForbidden("role " + id.Role + " may not " + string(p)).WithDetail("permission", string(p))
	}
	return nil
}
