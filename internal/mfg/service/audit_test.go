package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 255))
	assert.Equal(t, "钢板", truncateRunes("钢板加工", 2))

	long := strings.Repeat("a", 254) + "钢板"
	got := truncateRunes(long, 255)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 255, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "钢"))
}

func TestWriteAudit_MultiByteRepr(t *testing.T) {
	db := testutil.SetupTestDB(t)

	repr := strings.Repeat("不锈钢", 100)
	require.NoError(t, writeAudit(db, testActor, auditEntry{
		Action:     entity.AuditCreate,
		EntityType: AuditEntityCustomer,
		EntityID:   "cust-001",
		Repr:       repr,
	}))

	var log entity.AuditLog
	require.NoError(t, db.Where("entity_id = ?", "cust-001").First(&log).Error)
	assert.True(t, utf8.ValidString(log.ObjectRepr))
	assert.Equal(t, 255, utf8.RuneCountInString(log.ObjectRepr))
	assert.Equal(t, []rune(repr)[:255], []rune(log.ObjectRepr))
}
