package permissions

// Resource names seeded at boot.
const (
	ResourceFreshAPI   = "freshapi"
	ResourceTaskSystem = "task_system"
)

// Conventional actions. They carry no special logic; guards simply look for
// these literals in the resolved set.
const (
	ActionRead           = "read"
	ActionWrite          = "write"
	ActionAdmin          = "admin"
	ActionSystemAdmin    = "system_admin"
	ActionUserManagement = "user_management"
	ActionInviteUsers    = "invite_users"
	ActionAssign         = "assign"
)

func init() {
	defs := []*ResourceDef{
		{
			Name:        ResourceFreshAPI,
			Description: "FreshAPI core application",
			Actions: []ActionDef{
				{Name: ActionRead, Description: "Read access to basic data"},
				{Name: ActionWrite, Description: "Write access to own data"},
				{Name: ActionAdmin, Description: "Administrative access"},
				{Name: ActionUserManagement, Description: "Manage users and roles"},
				{Name: ActionInviteUsers, Description: "Create user invitations"},
				{Name: ActionSystemAdmin, Description: "Full system administration"},
			},
		},
		{
			Name:        ResourceTaskSystem,
			Description: "Projects and tasks",
			Actions: []ActionDef{
				{Name: ActionRead, Description: "View projects and tasks"},
				{Name: ActionWrite, Description: "Create and edit tasks"},
				{Name: ActionAdmin, Description: "Administer projects"},
				{Name: ActionAssign, Description: "Assign tasks to users"},
			},
		},
	}

	for _, def := range defs {
		if err := Register(def); err != nil {
			panic(err)
		}
	}
}
