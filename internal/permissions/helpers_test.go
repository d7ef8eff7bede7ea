package permissions

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/freshapi/freshapi/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Resource{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserPermission{},
	))
	require.NoError(t, Sync(context.Background(), db))
	return db
}

// queryCounter counts SELECT statements issued through gorm.
type queryCounter struct {
	n atomic.Int64
}

func countQueries(t *testing.T, db *gorm.DB) *queryCounter {
	t.Helper()
	counter := &queryCounter{}
	err := db.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		counter.n.Add(1)
	})
	require.NoError(t, err)
	err = db.Callback().Row().After("gorm:row").Register("test:count_rows", func(*gorm.DB) {
		counter.n.Add(1)
	})
	require.NoError(t, err)
	return counter
}

func (c *queryCounter) Reset()       { c.n.Store(0) }
func (c *queryCounter) Count() int64 { return c.n.Load() }

type fixture struct {
	t  *testing.T
	db *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, db: openTestDB(t)}
}

func (f *fixture) resource(name string, actions ...string) *models.Resource {
	f.t.Helper()
	res := &models.Resource{Name: name, IsActive: true}
	require.NoError(f.t, f.db.Create(res).Error)
	for _, action := range actions {
		f.permission(res, action)
	}
	return res
}

func (f *fixture) permission(res *models.Resource, action string) *models.Permission {
	f.t.Helper()
	perm := &models.Permission{Action: action, ResourceID: res.ID, IsActive: true}
	require.NoError(f.t, f.db.Create(perm).Error)
	return perm
}

func (f *fixture) lookupPermission(resource, action string) *models.Permission {
	f.t.Helper()
	var perm models.Permission
	require.NoError(f.t, f.db.
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("resources.name = ? AND permissions.action = ?", resource, action).
		First(&perm).Error)
	return &perm
}

func (f *fixture) role(name string, level int, grants map[string][]string) *models.Role {
	f.t.Helper()
	role := &models.Role{Name: name, Level: level, IsActive: true}
	require.NoError(f.t, f.db.Create(role).Error)
	for resource, actions := range grants {
		for _, action := range actions {
			perm := f.lookupPermission(resource, action)
			require.NoError(f.t, f.db.Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error)
		}
	}
	return role
}

func (f *fixture) user(email string, role *models.Role) *models.User {
	f.t.Helper()
	user := &models.User{Email: email, Name: email, IsActive: true}
	if role != nil {
		user.RoleID = &role.ID
	}
	require.NoError(f.t, f.db.Create(user).Error)
	return user
}

func (f *fixture) override(user *models.User, resource, action string, granted bool) *models.UserPermission {
	f.t.Helper()
	perm := f.lookupPermission(resource, action)
	row := &models.UserPermission{UserID: user.ID, PermissionID: perm.ID, IsGranted: granted}
	require.NoError(f.t, f.db.Create(row).Error)
	return row
}

func (f *fixture) resolver() *Resolver {
	f.t.Helper()
	r, err := NewResolver(f.db)
	require.NoError(f.t, err)
	return r
}
