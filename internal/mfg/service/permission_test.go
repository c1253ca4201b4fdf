package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func permissionID(t *testing.T, svc *PermissionService, role, module string) string {
	t.Helper()
	perms, err := svc.ByRole(context.Background(), role)
	require.NoError(t, err)
	for _, p := range perms {
		if p.Module == module {
			return p.ID
		}
	}
	t.Fatalf("no %s/%s permission seeded", role, module)
	return ""
}

func TestCheckAccess_CachedChangeVisibleOnNextRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rdb := testutil.SetupTestRedis(t)
	ctx := context.Background()
	svc := NewPermissionService(repository.NewRepositories(db).RolePermission, rdb, zap.NewNop())
	require.NoError(t, svc.SeedDefaults(ctx))

	allowed, err := svc.CheckAccess(ctx, entity.RoleSales, entity.ModuleInspection, http.MethodPost)
	require.NoError(t, err)
	assert.False(t, allowed)

	// 第二次命中缓存
	allowed, err = svc.CheckAccess(ctx, entity.RoleSales, entity.ModuleInspection, http.MethodGet)
	require.NoError(t, err)
	assert.True(t, allowed)

	id := permissionID(t, svc, entity.RoleSales, entity.ModuleInspection)
	_, err = svc.Update(ctx, id, &PermissionRequest{Role: entity.RoleSales, Module: entity.ModuleInspection, AccessLevel: entity.AccessWrite})
	require.NoError(t, err)

	allowed, err = svc.CheckAccess(ctx, entity.RoleSales, entity.ModuleInspection, http.MethodPost)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckAccess_LateCacheFillIgnoredAfterWrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rdb := testutil.SetupTestRedis(t)
	ctx := context.Background()
	svc := NewPermissionService(repository.NewRepositories(db).RolePermission, rdb, zap.NewNop())
	require.NoError(t, svc.SeedDefaults(ctx))

	id := permissionID(t, svc, entity.RoleSales, entity.ModuleInspection)
	_, err := svc.Update(ctx, id, &PermissionRequest{Role: entity.RoleSales, Module: entity.ModuleInspection, AccessLevel: entity.AccessWrite})
	require.NoError(t, err)

	// 读请求在写入前取到版本号和旧级别，写入后才回填缓存
	staleVersion, err := rdb.Get(ctx, permissionVersionKey).Int64()
	require.NoError(t, err)
	_, err = svc.BulkUpdate(ctx, &BulkUpdateRequest{
		Role: entity.RoleSales,
		Permissions: []struct {
			Module      string `json:"module"`
			AccessLevel string `json:"access_level"`
		}{{Module: entity.ModuleInspection, AccessLevel: entity.AccessRead}},
	})
	require.NoError(t, err)
	require.NoError(t, rdb.Set(ctx, permissionKey(staleVersion, entity.RoleSales, entity.ModuleInspection), entity.AccessWrite, time.Minute).Err())

	allowed, err := svc.CheckAccess(ctx, entity.RoleSales, entity.ModuleInspection, http.MethodPost)
	require.NoError(t, err)
	assert.False(t, allowed)

	level, err := svc.AccessLevel(ctx, entity.RoleSales, entity.ModuleInspection)
	require.NoError(t, err)
	assert.Equal(t, entity.AccessRead, level)
}

func TestCheckAccess_WithoutRedis(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	svc := NewPermissionService(repository.NewRepositories(db).RolePermission, nil, nil)
	require.NoError(t, svc.SeedDefaults(ctx))

	id := permissionID(t, svc, entity.RoleSales, entity.ModuleInspection)
	require.NoError(t, svc.Delete(ctx, id))

	level, err := svc.AccessLevel(ctx, entity.RoleSales, entity.ModuleInspection)
	require.NoError(t, err)
	assert.Empty(t, level)

	allowed, err := svc.CheckAccess(ctx, entity.RoleSales, entity.ModuleInspection, http.MethodGet)
	require.NoError(t, err)
	assert.False(t, allowed)
}
