package model

import (
	"regexp"
	"time"
)

const (
	DefaultDesignColor = "#ffffff"
	DefaultTextColor   = "#000000"
	DefaultDecalSize   = 0.5
	DefaultTextScale   = 1.0
	MaxTextContent     = 200
	MaxColorLength     = 32
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

// IsHexColor reports whether s is a #rgb or #rrggbb color
func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(s)
}

// Design is one saved product customization. Every save creates a new row;
// the latest by CreatedAt is the user's current design.
type Design struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	UserID    *uint           `gorm:"index" json:"user_id,omitempty"`
	Product   ProductCategory `gorm:"type:varchar(20);not null;default:'tshirt'" json:"product"`
	Color     string          `gorm:"type:varchar(32);not null;default:'#ffffff'" json:"color"`
	CreatedAt time.Time       `gorm:"index;autoCreateTime" json:"created_at"`

	User   *User         `gorm:"foreignKey:UserID" json:"-"`
	Decals []DesignDecal `gorm:"foreignKey:DesignID;constraint:OnDelete:CASCADE" json:"decals,omitempty"`
	Texts  []DesignText  `gorm:"foreignKey:DesignID;constraint:OnDelete:CASCADE" json:"texts,omitempty"`
}

func (Design) TableName() string {
	return "designs"
}

// DesignDecal is an uploaded image stuck onto the garment surface
type DesignDecal struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	DesignID uint   `gorm:"not null;index" json:"design_id"`
	Image    string `gorm:"type:varchar(255)" json:"image"` // path relative to the file store root

	PosX float64 `gorm:"not null" json:"pos_x"`
	PosY float64 `gorm:"not null" json:"pos_y"`
	PosZ float64 `gorm:"not null" json:"pos_z"`

	RotX float64 `gorm:"not null" json:"rot_x"` // radians
	RotY float64 `gorm:"not null" json:"rot_y"`
	RotZ float64 `gorm:"not null" json:"rot_z"`

	SizeX float64 `gorm:"not null" json:"size_x"`
	SizeY float64 `gorm:"not null" json:"size_y"`
	SizeZ float64 `gorm:"not null" json:"size_z"`
}

func (DesignDecal) TableName() string {
	return "design_decals"
}

// DesignText is a text block rendered on a plane over the garment
type DesignText struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	DesignID uint   `gorm:"not null;index" json:"design_id"`
	Content  string `gorm:"type:varchar(200);not null" json:"content"`
	Color    string `gorm:"type:varchar(32);not null;default:'#000000'" json:"color"`

	PosX float64 `gorm:"not null" json:"pos_x"`
	PosY float64 `gorm:"not null" json:"pos_y"`
	PosZ float64 `gorm:"not null" json:"pos_z"`

	RotX float64 `gorm:"not null" json:"rot_x"`
	RotY float64 `gorm:"not null" json:"rot_y"`
	RotZ float64 `gorm:"not null" json:"rot_z"`

	ScaleX float64 `gorm:"not null" json:"scale_x"`
	ScaleY float64 `gorm:"not null" json:"scale_y"`
	ScaleZ float64 `gorm:"not null" json:"scale_z"`
}

func (DesignText) TableName() string {
	return "design_texts"
}
