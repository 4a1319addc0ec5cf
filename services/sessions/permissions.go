package sessions

// Actions a role may perform on a resource.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// memberPermissions is the capability table for every non-admin role.
// Resources missing from the table deny every action.
var memberPermissions = map[string][]string{
	"projects":      {ActionView, ActionCreate, ActionUpdate, ActionDelete},
	"webhooks":      {ActionView, ActionCreate, ActionUpdate, ActionDelete},
	"users":         {ActionView, ActionCreate, ActionUpdate, ActionDelete},
	"notifications": {ActionView},
	"profile":       {ActionView, ActionUpdate},
	"accounts":      {},
}

// HasPermission reports whether the signed-in account may perform action on resource.
func (m *Manager) HasPermission(resource, action string) bool {
	account := m.Account()
	if account == nil {
		return false
	}
	if account.IsAdmin() {
		return true
	}
	for _, allowed := range memberPermissions[resource] {
		if allowed == action {
			return true
		}
	}
	return false
}

// CanAccessResource reports whether the account may view resource.
func (m *Manager) CanAccessResource(resource string) bool {
	return m.HasPermission(resource, ActionView)
}
