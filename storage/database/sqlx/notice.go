package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/notice"
)

const noticeColumns = `id, title, description, file_name, file_type, is_study_material, created_at`

type noticeRepository struct {
	db core.DB
}

func NewNoticeRepository(db core.DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	q := `INSERT INTO notices (` + noticeColumns + `)
		VALUES (:id, :title, :description, :file_name, :file_type, :is_study_material, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, n); err != nil {
		return notice.Notice{}, errors.Wrap(err, "inserting notice")
	}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context) ([]notice.Notice, error) {
	notices := make([]notice.Notice, 0)
	q := `SELECT ` + noticeColumns + ` FROM notices ORDER BY created_at DESC, id DESC`
	if err := sqlx.SelectContext(ctx, repo.db, &notices, q); err != nil {
		return nil, errors.Wrap(err, "selecting notices")
	}
	return notices, nil
}

func (repo *noticeRepository) CountNotices(ctx context.Context) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, repo.db, &count, `SELECT COUNT(*) FROM notices`); err != nil {
		return 0, errors.Wrap(err, "counting notices")
	}
	return count, nil
}
