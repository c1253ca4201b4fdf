package entity

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// 图纸类型
const (
	DrawingTypeProduction = "production"
	DrawingTypeAssembly   = "assembly"
	DrawingTypeDetail     = "detail"
	DrawingTypeLayout     = "layout"
	DrawingTypeSchematic  = "schematic"
	DrawingType3D         = "3d"
	DrawingTypeOther      = "other"
)

var DrawingTypes = []string{
	DrawingTypeProduction, DrawingTypeAssembly, DrawingTypeDetail, DrawingTypeLayout,
	DrawingTypeSchematic, DrawingType3D, DrawingTypeOther,
}

// 图纸状态
const (
	DrawingStatusDraft         = "draft"
	DrawingStatusPendingReview = "pending_review"
	DrawingStatusApproved      = "approved"
	DrawingStatusRejected      = "rejected"
	DrawingStatusSuperseded    = "superseded"
)

// AllowedDrawingExtensions 允许上传的图纸格式
var AllowedDrawingExtensions = []string{".pdf", ".dwg", ".dxf", ".step", ".stp", ".igs", ".iges"}

func IsAllowedDrawingFile(name string) bool {
	return contains(AllowedDrawingExtensions, strings.ToLower(filepath.Ext(name)))
}

// Drawing 工程图纸，(order_id, drawing_number, version) 唯一
type Drawing struct {
	ID              string  `json:"id" gorm:"primaryKey;size:32"`
	OrderID         string  `json:"order_id" gorm:"size:32;not null;uniqueIndex:idx_drawing_version;index"`
	Order           *Order  `json:"order,omitempty" gorm:"foreignKey:OrderID"`
	DrawingNumber   string  `json:"drawing_number" gorm:"size:100;not null;uniqueIndex:idx_drawing_version"`
	Title           string  `json:"title" gorm:"size:200;not null"`
	Description     string  `json:"description" gorm:"type:text"`
	DrawingType     string  `json:"drawing_type" gorm:"size:20;not null"`
	Version         int     `json:"version" gorm:"not null;uniqueIndex:idx_drawing_version"`
	Revision        string  `json:"revision" gorm:"size:10;not null"`
	IsLatest        bool    `json:"is_latest" gorm:"not null;index"`
	ParentDrawingID *string `json:"parent_drawing_id" gorm:"size:32"`

	// 文件
	FilePath string `json:"file_path" gorm:"size:500"`
	FileName string `json:"file_name" gorm:"size:255"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type" gorm:"size:20"`

	Status     string     `json:"status" gorm:"size:20;not null;index"`
	CreatedBy  *string    `json:"created_by" gorm:"size:32"`
	ApprovedBy *string    `json:"approved_by" gorm:"size:32"`
	ApprovedAt *time.Time `json:"approved_at"`
	Notes      string     `json:"notes" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Drawing) TableName() string {
	return "engineering_drawings"
}

func (d *Drawing) String() string {
	return fmt.Sprintf("%s v%d (Rev %s)", d.DrawingNumber, d.Version, d.Revision)
}

// NextRevision A → B → ... → Z，之后为 "Z.1"
func NextRevision(rev string) string {
	if len(rev) == 1 && rev[0] >= 'A' && rev[0] < 'Z' {
		return string(rev[0] + 1)
	}
	return rev + ".1"
}

// DrawingFilePath 存储路径 drawings/{order_id}/{version}/{filename}
func DrawingFilePath(orderID string, version int, filename string) string {
	return fmt.Sprintf("drawings/%s/%d/%s", orderID, version, filepath.Base(filename))
}

// FileTypeOf 文件扩展名（不含点）
func FileTypeOf(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// DrawingComment 图纸评论
type DrawingComment struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	DrawingID string    `json:"drawing_id" gorm:"size:32;not null;index"`
	UserID    *string   `json:"user_id" gorm:"size:32"`
	UserName  string    `json:"user_name" gorm:"size:300"`
	Comment   string    `json:"comment" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DrawingComment) TableName() string {
	return "engineering_drawing_comments"
}
