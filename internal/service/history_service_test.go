package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"voicestudio/internal/infrastructure/storage"
	"voicestudio/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHistoryFixture(t *testing.T) (*HistoryService, *memSpeeches, *storage.LocalStore) {
	t.Helper()
	files, err := storage.NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	speeches := &memSpeeches{items: []*model.GeneratedSpeech{
		{ID: 1, UserID: 1, VoiceProfileID: int64Ptr(1), VoiceProfile: &model.VoiceProfile{ID: 1, Name: "Aria"},
			InputText: "first", AudioFile: "generated_audio/1.mp3", CreditsUsed: 5, BalanceAfter: 15, CreatedAt: base},
		{ID: 2, UserID: 1, VoiceCloneID: int64Ptr(10), VoiceClone: &model.VoiceClone{ID: 10, Name: "Me"},
			InputText: "second", AudioFile: "generated_audio/2.mp3", CreditsUsed: 5, BalanceAfter: 10, CreatedAt: base.Add(time.Hour)},
		{ID: 3, UserID: 2, VoiceProfileID: int64Ptr(1),
			InputText: "other", AudioFile: "generated_audio/3.mp3", CreditsUsed: 5, BalanceAfter: 0, CreatedAt: base},
	}}
	return NewHistoryService(speeches, files, zap.NewNop()), speeches, files
}

func TestHistoryListNewestFirstOwnOnly(t *testing.T) {
	svc, _, _ := newHistoryFixture(t)

	list, total, err := svc.List(context.Background(), 1, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)

	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, "Me", list[0].VoiceCloneName)
	assert.Nil(t, list[0].VoiceProfile)
	assert.Equal(t, "/media/generated_audio/2.mp3", list[0].AudioFile)

	assert.Equal(t, int64(1), list[1].ID)
	assert.Equal(t, "Aria", list[1].VoiceProfileName)
	assert.Equal(t, int64(15), list[1].BalanceAfter)
}

func TestHistoryGetForeignRecordIsNotFound(t *testing.T) {
	svc, _, _ := newHistoryFixture(t)

	_, err := svc.Get(context.Background(), 1, 3)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := svc.Get(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "other", v.InputText)
}

func TestHistoryDeleteRemovesRecordAndAudio(t *testing.T) {
	svc, speeches, files := newHistoryFixture(t)
	ctx := context.Background()
	require.NoError(t, files.Put(ctx, "generated_audio/1.mp3", bytes.NewReader([]byte("ID3")), "audio/mpeg"))

	// 别人的记录删不掉
	assert.ErrorIs(t, svc.Delete(ctx, 2, 1), ErrNotFound)

	require.NoError(t, svc.Delete(ctx, 1, 1))
	_, err := speeches.GetByOwner(ctx, 1, 1)
	assert.Error(t, err)

	exists, err := files.Exists(ctx, "generated_audio/1.mp3")
	require.NoError(t, err)
	assert.False(t, exists)

	// 音频文件缺失不影响删除
	require.NoError(t, svc.Delete(ctx, 1, 2))
}
