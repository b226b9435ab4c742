package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core/notice"
	filesvc "github.com/trezcool/college/services/files"
)

const noticeFileField = "uploadedFile"

type noticeView struct {
	notice.Notice
	FileURL string `json:"fileUrl,omitempty"`
}

func (s *Server) noticeViews(ctx context.Context) ([]noticeView, error) {
	notices, err := s.opts.NoticeSvc.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing notices")
	}
	views := make([]noticeView, 0, len(notices))
	for _, n := range notices {
		v := noticeView{Notice: n}
		if n.FileName.Valid {
			v.FileURL = s.opts.Files.URL(filesvc.DirNotices, n.FileName.String)
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Server) uploadNoticesPage(ctx echo.Context) error {
	notices, err := s.noticeViews(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"notices": notices, "action": "/admin/upload-notice"})
}

func (s *Server) uploadNotice(ctx echo.Context) error {
	setBack(ctx, "/admin/upload-notices")

	var nn notice.NewNotice
	if isJSON(ctx) {
		if err := ctx.Bind(&nn); err != nil {
			return err
		}
	} else {
		p, err := newFormParser(ctx)
		if err != nil {
			return err
		}
		nn = notice.NewNotice{
			Title:           p.str("title"),
			Description:     p.str("description"),
			IsStudyMaterial: p.boolean("isStudyMaterial"),
		}
	}

	file, ok, err := s.saveUpload(ctx, noticeFileField, filesvc.DirNotices)
	if err != nil {
		return err
	}
	if ok {
		nn.FileName = file.Name
		nn.FileType = file.ContentType
	}

	if _, err = s.opts.NoticeSvc.Create(ctx.Request().Context(), nn); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/upload-notices")
}
