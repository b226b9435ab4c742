package notice

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

type (
	Repository interface {
		CreateNotice(ctx context.Context, n Notice) (Notice, error)
		// QueryNotices returns every notice, newest first.
		QueryNotices(ctx context.Context) ([]Notice, error)
		CountNotices(ctx context.Context) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nn NewNotice) (Notice, error) {
	nn.clean()
	if err := svc.validate.Struct(nn); err != nil {
		return Notice{}, err
	}
	n := Notice{
		ID:              uuid.NewString(),
		Title:           nn.Title,
		Description:     null.NewString(nn.Description, nn.Description != ""),
		FileName:        null.NewString(nn.FileName, nn.FileName != ""),
		FileType:        null.NewString(nn.FileType, nn.FileType != ""),
		IsStudyMaterial: nn.IsStudyMaterial,
		CreatedAt:       time.Now().UTC(),
	}
	return svc.repo.CreateNotice(ctx, n)
}

func (svc *Service) List(ctx context.Context) ([]Notice, error) {
	return svc.repo.QueryNotices(ctx)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountNotices(ctx)
}
