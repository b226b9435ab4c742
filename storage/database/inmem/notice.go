package inmemdb

import (
	"context"
	"slices"

	"github.com/trezcool/college/core/notice"
)

type noticeRepository struct {
	db *DB
}

func NewNoticeRepository(db *DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(_ context.Context, n notice.Notice) (notice.Notice, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.notice = append(repo.db.notice, n)
	return n, nil
}

func (repo *noticeRepository) QueryNotices(_ context.Context) ([]notice.Notice, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notices := slices.Clone(repo.db.notice)
	slices.Reverse(notices)
	if notices == nil {
		notices = make([]notice.Notice, 0)
	}
	return notices, nil
}

func (repo *noticeRepository) CountNotices(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.notice), nil
}
