package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/database"
	"github.com/freshapi/freshapi/internal/database/testutil"
	"github.com/freshapi/freshapi/internal/guards"
	"github.com/freshapi/freshapi/internal/models"
	"github.com/freshapi/freshapi/internal/permissions"
	apperrors "github.com/freshapi/freshapi/pkg/errors"
)

type accessEnv struct {
	db       *gorm.DB
	svc      *AccessService
	resolver *permissions.Resolver
	users    map[string]*models.User
	roles    map[string]*models.Role
}

func setupAccessServiceTest(t *testing.T) *accessEnv {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	resolver, err := permissions.NewResolver(db)
	require.NoError(t, err)
	guard, err := guards.New(resolver)
	require.NoError(t, err)
	svc, err := NewAccessService(db, guard, resolver, AccessServiceOptions{})
	require.NoError(t, err)

	env := &accessEnv{
		db:       db,
		svc:      svc,
		resolver: resolver,
		users:    map[string]*models.User{},
		roles:    map[string]*models.Role{},
	}
	for _, name := range []string{database.RoleSuperAdmin, database.RoleAdmin, database.RoleUser} {
		var role models.Role
		require.NoError(t, db.Where("name = ?", name).First(&role).Error)
		env.roles[name] = &role
	}

	env.addUser(t, "root", database.RoleSuperAdmin)
	env.addUser(t, "admin", database.RoleAdmin)
	env.addUser(t, "peer", database.RoleAdmin)
	env.addUser(t, "member", database.RoleUser)
	env.addUser(t, "newcomer", "")
	return env
}

func (e *accessEnv) addUser(t *testing.T, key, roleName string) {
	t.Helper()
	user := &models.User{Email: key + "@example.com", Name: key, IsActive: true}
	if roleName != "" {
		user.RoleID = &e.roles[roleName].ID
	}
	require.NoError(t, e.db.Create(user).Error)
	e.users[key] = user
}

func (e *accessEnv) as(key string) context.Context {
	user := e.users[key]
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: user.ID, Email: user.Email})
}

func (e *accessEnv) permissionID(t *testing.T, resource, action string) string {
	t.Helper()
	var perm models.Permission
	require.NoError(t, e.db.
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("resources.name = ? AND permissions.action = ?", resource, action).
		First(&perm).Error)
	return perm.ID
}

func (e *accessEnv) overrideRows(t *testing.T, userID, permissionID string) []models.UserPermission {
	t.Helper()
	var rows []models.UserPermission
	require.NoError(t, e.db.Where("user_id = ? AND permission_id = ?", userID, permissionID).Find(&rows).Error)
	return rows
}

func TestNewAccessServiceValidatesDependencies(t *testing.T) {
	_, err := NewAccessService(nil, nil, nil, AccessServiceOptions{})
	require.Error(t, err)
}

func TestAccessService_CreateRole(t *testing.T) {
	env := setupAccessServiceTest(t)

	role, err := env.svc.CreateRole(env.as("admin"), CreateRoleInput{Name: "auditor", Description: "Reads logs", Level: 20})
	require.NoError(t, err)
	require.NotEmpty(t, role.ID)
	require.True(t, role.IsActive)

	_, err = env.svc.CreateRole(env.as("admin"), CreateRoleInput{Name: "auditor", Level: 20})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = env.svc.CreateRole(env.as("admin"), CreateRoleInput{Name: "Bad Name"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = env.svc.CreateRole(env.as("member"), CreateRoleInput{Name: "sneaky"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.svc.CreateRole(context.Background(), CreateRoleInput{Name: "anon"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	roles, err := env.svc.ListRoles(env.as("admin"))
	require.NoError(t, err)
	require.Len(t, roles, 4)
	require.Equal(t, database.RoleSuperAdmin, roles[0].Name)
}

func TestAccessService_UpdateAndDeactivateRole(t *testing.T) {
	env := setupAccessServiceTest(t)
	ctx := env.as("admin")
	member := env.users["member"]
	userRole := env.roles[database.RoleUser]

	desc := "Regular members"
	level := 15
	updated, err := env.svc.UpdateRole(ctx, userRole.ID, UpdateRoleInput{Description: &desc, Level: &level})
	require.NoError(t, err)
	require.Equal(t, desc, updated.Description)
	require.Equal(t, 15, updated.Level)

	require.NoError(t, env.svc.SetRoleActive(ctx, userRole.ID, false))

	set, err := env.resolver.Resolve(context.Background(), member.ID, permissions.ResourceFreshAPI)
	require.NoError(t, err)
	require.Empty(t, set)

	require.NoError(t, env.svc.SetRoleActive(ctx, userRole.ID, true))
	set, err = env.resolver.Resolve(context.Background(), member.ID, permissions.ResourceFreshAPI)
	require.NoError(t, err)
	require.True(t, set.Has(permissions.ActionRead))

	err = env.svc.SetRoleActive(ctx, "missing-role", false)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccessService_RoleMutationsRespectHierarchy(t *testing.T) {
	env := setupAccessServiceTest(t)
	ctx := env.as("admin")
	adminRole := env.roles[database.RoleAdmin]
	superRole := env.roles[database.RoleSuperAdmin]
	userRole := env.roles[database.RoleUser]
	systemAdmin := env.permissionID(t, permissions.ResourceFreshAPI, permissions.ActionSystemAdmin)

	for _, level := range []int{50, 1000} {
		_, err := env.svc.CreateRole(ctx, CreateRoleInput{Name: "overlord", Level: level})
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	}

	raised := 1000
	_, err := env.svc.UpdateRole(ctx, adminRole.ID, UpdateRoleInput{Level: &raised})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	ok, err := env.resolver.CanManage(context.Background(), env.users["admin"].ID, env.users["root"].ID)
	require.NoError(t, err)
	require.False(t, ok)

	above := 60
	_, err = env.svc.UpdateRole(ctx, userRole.ID, UpdateRoleInput{Level: &above})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	require.ErrorIs(t, env.svc.SetRoleActive(ctx, superRole.ID, false), apperrors.ErrForbidden)
	require.ErrorIs(t, env.svc.AssignRolePermission(ctx, adminRole.ID, systemAdmin), apperrors.ErrForbidden)
	require.ErrorIs(t, env.svc.RemoveRolePermission(ctx, superRole.ID, systemAdmin), apperrors.ErrForbidden)

	set, err := env.resolver.Resolve(context.Background(), env.users["admin"].ID, permissions.ResourceFreshAPI)
	require.NoError(t, err)
	require.False(t, set.Has(permissions.ActionSystemAdmin))

	updated, err := env.svc.UpdateRole(env.as("root"), adminRole.ID, UpdateRoleInput{Level: &above})
	require.NoError(t, err)
	require.Equal(t, 60, updated.Level)
}

func TestAccessService_GuardRunsBeforeExistenceChecks(t *testing.T) {
	env := setupAccessServiceTest(t)

	err := env.svc.AssignRolePermission(env.as("member"), "missing-role", "missing-permission")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	err = env.svc.AssignRolePermission(env.as("admin"), "missing-role", "missing-permission")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	err = env.svc.GrantUserPermission(env.as("member"), "missing-user", "missing-permission")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	err = env.svc.GrantUserPermission(env.as("admin"), "missing-user", "missing-permission")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccessService_CatalogMutations(t *testing.T) {
	env := setupAccessServiceTest(t)
	ctx := env.as("admin")

	res, err := env.svc.CreateResource(ctx, CreateResourceInput{Name: "docs", Description: "Documents"})
	require.NoError(t, err)
	require.True(t, res.IsActive)

	_, err = env.svc.CreateResource(ctx, CreateResourceInput{Name: "docs"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	perm, err := env.svc.CreatePermission(ctx, CreatePermissionInput{Resource: "docs", Action: "read"})
	require.NoError(t, err)
	require.Equal(t, res.ID, perm.ResourceID)

	_, err = env.svc.CreatePermission(ctx, CreatePermissionInput{Resource: "docs", Action: "read"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = env.svc.CreatePermission(ctx, CreatePermissionInput{Resource: "nowhere", Action: "read"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	member := env.users["member"]
	userRole := env.roles[database.RoleUser]

	require.NoError(t, env.svc.AssignRolePermission(ctx, userRole.ID, perm.ID))
	require.NoError(t, env.svc.AssignRolePermission(ctx, userRole.ID, perm.ID))

	var count int64
	require.NoError(t, env.db.Model(&models.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", userRole.ID, perm.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	ok, err := env.resolver.HasPermission(context.Background(), member.ID, "docs", "read")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, env.svc.SetPermissionActive(ctx, perm.ID, false))
	ok, err = env.resolver.HasPermission(context.Background(), member.ID, "docs", "read")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, env.svc.SetPermissionActive(ctx, perm.ID, true))

	require.NoError(t, env.svc.RemoveRolePermission(ctx, userRole.ID, perm.ID))
	err = env.svc.RemoveRolePermission(ctx, userRole.ID, perm.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	resources, err := env.svc.ListResources(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(resources))
	for _, r := range resources {
		names = append(names, r.Name)
	}
	require.Contains(t, names, "docs")
	require.Contains(t, names, permissions.ResourceFreshAPI)
}

func TestAccessService_GrantIsIdempotent(t *testing.T) {
	env := setupAccessServiceTest(t)
	ctx := env.as("admin")
	member := env.users["member"]
	invite := env.permissionID(t, permissions.ResourceFreshAPI, permissions.ActionInviteUsers)

	require.NoError(t, env.svc.GrantUserPermission(ctx, member.ID, invite))
	require.NoError(t, env.svc.GrantUserPermission(ctx, member.ID, invite))

	rows := env.overrideRows(t, member.ID, invite)
	require.Len(t, rows, 1)
	require.True(t, rows[0].IsGranted)

	ok, err := env.resolver.HasPermission(context.Background(), member.ID, permissions.ResourceFreshAPI, permissions.ActionInviteUsers)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAccessService_RevokeFlipsSingleRow(t *testing.T) {
	env := setupAccessServiceTest(t)
	ctx := env.as("admin")
	member := env.users["member"]
	invite := env.permissionID(t, permissions.ResourceFreshAPI, permissions.ActionInviteUsers)

	require.NoError(t, env.svc.GrantUserPermission(ctx, member.ID, invite))
	require.NoError(t, env.svc.RevokeUserPermission(ctx, member.ID, invite))

	err := env.svc.RevokeUserPermission(ctx, member.ID, invite)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	rows := env.overrideRows(t, member.ID, invite)
	require.Len(t, rows, 1)
	require.False(t, rows[0].IsGranted)

	// Grant after revoke reuses the same row.
	require.NoError(t, env.svc.GrantUserPermission(ctx, member.ID, invite))
	rows = env.overrideRows(t, member.ID, invite)
	require.Len(t, rows, 1)
	require.True(t, rows[0].IsGranted)
}

func TestAccessService_RevokeWithoutGrantConflicts(t *testing.T) {
	env := setupAccessServiceTest(t)
	member := env.users["member"]
	write := env.permissionID(t, permissions.ResourceFreshAPI, permissions.ActionWrite)

	err := env.svc.RevokeUserPermission(env.as("admin"), member.ID, write)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	require.Empty(t, env.overrideRows(t, member.ID, write))
}

func TestAccessService_DenyAndClear(t *testing.T) {
	env := setupAccessServiceTest(t)
	ctx := env.as("admin")
	member := env.users["member"]
	write := env.permissionID(t, permissions.ResourceFreshAPI, permissions.ActionWrite)

	require.NoError(t, env.svc.DenyUserPermission(ctx, member.ID, write))
	ok, err := env.resolver.HasPermission(context.Background(), member.ID, permissions.ResourceFreshAPI, permissions.ActionWrite)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, env.svc.ClearUserPermission(ctx, member.ID, write))
	ok, err = env.resolver.HasPermission(context.Background(), member.ID, permissions.ResourceFreshAPI, permissions.ActionWrite)
	require.NoError(t, err)
	require.True(t, ok)

	err = env.svc.ClearUserPermission(ctx, member.ID, write)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccessService_OverridesRespectHierarchy(t *testing.T) {
	env := setupAccessServiceTest(t)
	write := env.permissionID(t, permissions.ResourceFreshAPI, permissions.ActionWrite)

	err := env.svc.DenyUserPermission(env.as("admin"), env.users["peer"].ID, write)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	err = env.svc.DenyUserPermission(env.as("admin"), env.users["root"].ID, write)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, env.svc.DenyUserPermission(env.as("root"), env.users["peer"].ID, write))
}

func TestAccessService_AssignUserRole(t *testing.T) {
	env := setupAccessServiceTest(t)
	newcomer := env.users["newcomer"]

	user, err := env.svc.AssignUserRole(env.as("admin"), newcomer.ID, env.roles[database.RoleUser].ID)
	require.NoError(t, err)
	require.Equal(t, env.roles[database.RoleUser].ID, *user.RoleID)

	_, err = env.svc.AssignUserRole(env.as("admin"), env.users["member"].ID, env.roles[database.RoleAdmin].ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden, "admins cannot promote to their own level")

	_, err = env.svc.AssignUserRole(env.as("member"), newcomer.ID, env.roles[database.RoleUser].ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = env.svc.AssignUserRole(env.as("root"), env.users["member"].ID, env.roles[database.RoleAdmin].ID)
	require.NoError(t, err)

	level, err := env.resolver.RoleLevel(context.Background(), env.users["member"].ID)
	require.NoError(t, err)
	require.Equal(t, database.LevelAdmin, level)
}

func TestAccessService_ListUserPermissions(t *testing.T) {
	env := setupAccessServiceTest(t)
	member := env.users["member"]

	own, err := env.svc.ListUserPermissions(env.as("member"), member.ID)
	require.NoError(t, err)
	require.Equal(t, []string{permissions.ActionRead, permissions.ActionWrite}, own[permissions.ResourceFreshAPI].Sorted())

	_, err = env.svc.ListUserPermissions(env.as("member"), env.users["admin"].ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	viaAdmin, err := env.svc.ListUserPermissions(env.as("admin"), member.ID)
	require.NoError(t, err)
	require.Equal(t, own[permissions.ResourceFreshAPI].Sorted(), viaAdmin[permissions.ResourceFreshAPI].Sorted())

	_, err = env.svc.ListUserPermissions(env.as("admin"), "missing-user")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	users, err := env.svc.ListUsers(env.as("admin"))
	require.NoError(t, err)
	require.Len(t, users, len(env.users))
}

func TestAccessService_MutationClearsRequestCache(t *testing.T) {
	env := setupAccessServiceTest(t)
	member := env.users["member"]
	invite := env.permissionID(t, permissions.ResourceFreshAPI, permissions.ActionInviteUsers)

	ctx := env.as("admin")
	loaders := permissions.NewLoaders(ctx, env.resolver, permissions.LoaderOptions{})
	ctx = permissions.WithLoaders(ctx, loaders)

	ok, err := loaders.CanInviteUsers(ctx, member.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, env.svc.GrantUserPermission(ctx, member.ID, invite))

	ok, err = loaders.CanInviteUsers(ctx, member.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAccessService_ListUsersWithPermissions(t *testing.T) {
	env := setupAccessServiceTest(t)

	_, err := env.svc.ListUsersWithPermissions(env.as("member"), "")
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	ctx := env.as("admin")
	ctx = permissions.WithLoaders(ctx, permissions.NewLoaders(ctx, env.resolver, permissions.LoaderOptions{}))

	for _, c := range []context.Context{env.as("admin"), ctx} {
		rows, err := env.svc.ListUsersWithPermissions(c, permissions.ResourceTaskSystem)
		require.NoError(t, err)
		require.Len(t, rows, len(env.users))

		byEmail := map[string]UserAccess{}
		for _, row := range rows {
			require.Equal(t, permissions.ResourceTaskSystem, row.Resource)
			byEmail[row.Email] = row
		}
		require.True(t, byEmail["admin@example.com"].Actions.Has(permissions.ActionAssign))
		require.Equal(t, []string{permissions.ActionRead, permissions.ActionWrite}, byEmail["member@example.com"].Actions.Sorted())
		require.Empty(t, byEmail["newcomer@example.com"].Actions)
	}
}
