package notice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/college/core/notice"
	inmemdb "github.com/trezcool/college/storage/database/inmem"
	"github.com/trezcool/college/testutil"
)

func TestService(t *testing.T) {
	validate, _ := testutil.NewValidator()
	svc := notice.NewService(inmemdb.NewNoticeRepository(inmemdb.Open()), validate)
	ctx := context.Background()

	_, err := svc.Create(ctx, notice.NewNotice{Title: "   "})
	assert.Error(t, err)

	exam, err := svc.Create(ctx, notice.NewNotice{Title: " Exam schedule ", Description: "  "})
	require.NoError(t, err)
	assert.Equal(t, "Exam schedule", exam.Title)
	assert.False(t, exam.Description.Valid)
	assert.False(t, exam.FileName.Valid)

	notes, err := svc.Create(ctx, notice.NewNotice{
		Title:           "Algebra notes",
		Description:     "Chapter 1",
		FileName:        "1700000000000-algebra.pdf",
		FileType:        "application/pdf",
		IsStudyMaterial: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-algebra.pdf", notes.FileName.String)
	assert.Equal(t, "application/pdf", notes.FileType.String)

	notices, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, notes.ID, notices[0].ID) // newest first
	assert.Equal(t, exam.ID, notices[1].ID)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
