package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"neohq/internal/model/inventory"
)

// 列表按通告时间倒序，不看入库顺序
func TestAlertListOrdersByTimestamp(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	older := &inventory.Alert{
		Title:     "历史通告",
		URL:       "https://cert.example.com/notice/1",
		Timestamp: base,
	}
	newer := &inventory.Alert{
		Title:       "最新通告",
		Source:      "cert",
		URL:         "https://cert.example.com/notice/2",
		Timestamp:   base.Add(time.Hour),
		Keywords:    inventory.StringSlice{"漏洞"},
		Highlighted: true,
	}
	// 先写新的再写旧的，验证排序不依赖自增ID
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))

	records, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, records, 2)
	assert.Equal(t, "最新通告", records[0].Title)
	assert.True(t, records[0].Highlighted)
	assert.Equal(t, "历史通告", records[1].Title)
}

// URL 唯一约束冲突翻译为 gorm.ErrDuplicatedKey，调用方据此静默跳过
func TestAlertDuplicateURL(t *testing.T) {
	db := newInventoryTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	first := &inventory.Alert{
		Title:     "重复通告",
		URL:       "https://cert.example.com/notice/dup",
		Timestamp: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, first))

	dup := &inventory.Alert{
		Title:     "重复通告",
		URL:       "https://cert.example.com/notice/dup",
		Timestamp: time.Now(),
	}
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}
