package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := "drawings/o1/1/frame.pdf"
	require.NoError(t, store.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// 删除不存在的文件不报错
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../escape.txt", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestCleanKey(t *testing.T) {
	k, err := cleanKey(`dispatch_documents\d1\invoice.pdf`)
	require.NoError(t, err)
	assert.Equal(t, "dispatch_documents/d1/invoice.pdf", k)

	k, err = cleanKey("/drawings//o1/1/a.dwg")
	require.NoError(t, err)
	assert.Equal(t, "drawings/o1/1/a.dwg", k)
}

func TestNew_FallsBackToLocal(t *testing.T) {
	store, err := New(context.Background(), config.MinIOConfig{}, config.UploadConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	_, ok := store.(*LocalStore)
	assert.True(t, ok)
}
