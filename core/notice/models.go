package notice

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/college/core"
)

type Notice struct {
	ID              string      `db:"id" json:"id"`
	Title           string      `db:"title" json:"title"`
	Description     null.String `db:"description" json:"description"`
	FileName        null.String `db:"file_name" json:"fileName"` // stored upload name
	FileType        null.String `db:"file_type" json:"fileType"`
	IsStudyMaterial bool        `db:"is_study_material" json:"isStudyMaterial"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"` // UTC
}

type NewNotice struct {
	Title           string `json:"title" form:"title" validate:"required,notblank,max=255"`
	Description     string `json:"description" form:"description"`
	FileName        string `json:"-" form:"-"`
	FileType        string `json:"-" form:"-" validate:"max=100"`
	IsStudyMaterial bool   `json:"isStudyMaterial" form:"isStudyMaterial"`
}

func (nn *NewNotice) clean() {
	nn.Title = core.CleanString(nn.Title)
	nn.Description = core.CleanString(nn.Description)
}
