package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/storage"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfUpload(name, body string) *FileUpload {
	return &FileUpload{
		Name:        name,
		Size:        int64(len(body)),
		ContentType: "application/pdf",
		Reader:      bytes.NewReader([]byte(body)),
	}
}

func TestDrawingNewVersion_DemotesPreviousLatest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := NewDrawingService(db, repository.NewRepositories(db).Drawing, store, 1<<20)

	testutil.SeedCustomer(t, db, "cust-001", "Acme Fabricators")
	testutil.SeedOrder(t, db, "order-001", "cust-001", entity.OrderStatusConfirmed)

	v1, err := svc.Create(ctx, &CreateDrawingRequest{OrderID: "order-001", DrawingNumber: "DRG-100", Title: "Base plate"},
		pdfUpload("base.pdf", "%PDF-1.4"), testActor)
	require.NoError(t, err)
	assert.Equal(t, "A", v1.Revision)

	_, err = svc.Create(ctx, &CreateDrawingRequest{OrderID: "order-001", DrawingNumber: "DRG-100", Title: "Duplicate"}, nil, testActor)
	assert.ErrorIs(t, err, ErrValidation)

	v2, err := svc.NewVersion(ctx, v1.ID, pdfUpload("base-b.pdf", "%PDF-1.5"), "hole pattern fixed", testActor)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, "B", v2.Revision)
	require.NotNil(t, v2.ParentDrawingID)
	assert.Equal(t, v1.ID, *v2.ParentDrawingID)

	// 从旧版本发起仍以当前最新版本为父版本
	v3, err := svc.NewVersion(ctx, v1.ID, pdfUpload("base-c.pdf", "%PDF-1.6"), "", testActor)
	require.NoError(t, err)
	assert.Equal(t, 3, v3.Version)
	assert.Equal(t, "C", v3.Revision)
	require.NotNil(t, v3.ParentDrawingID)
	assert.Equal(t, v2.ID, *v3.ParentDrawingID)

	versions, err := svc.Versions(ctx, v1.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	latest := 0
	for _, d := range versions {
		if d.IsLatest {
			latest++
			assert.Equal(t, v3.ID, d.ID)
			assert.Equal(t, entity.DrawingStatusDraft, d.Status)
			continue
		}
		assert.Equal(t, entity.DrawingStatusSuperseded, d.Status, "version %d", d.Version)
	}
	assert.Equal(t, 1, latest)

	// v2 被 v3 降级时恰好写一条状态变更审计
	assert.Equal(t, int64(1), countRows(t, db, &entity.AuditLog{}, "entity_type = ? AND entity_id = ? AND action = ?",
		AuditEntityDrawing, v2.ID, entity.AuditStatusChange))

	_, err = svc.NewVersion(ctx, v3.ID, &FileUpload{Name: "base.exe", Size: 2, Reader: bytes.NewReader([]byte("MZ"))}, "", testActor)
	assert.ErrorIs(t, err, ErrValidation)
	latestRows, err := svc.ByOrder(ctx, "order-001")
	require.NoError(t, err)
	require.Len(t, latestRows, 1)
	assert.Equal(t, v3.ID, latestRows[0].ID)
}
