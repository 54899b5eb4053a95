package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrCartOwnership = errors.New("cart must be owned by exactly one of user or session")

// Cart belongs either to a user or to an anonymous session key, never both.
type Cart struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	SessionKey *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Cart) TableName() string {
	return "carts"
}

// IsAnonymous reports whether the cart is keyed by a session
func (c *Cart) IsAnonymous() bool {
	return c.UserID == nil
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	hasUser := c.UserID != nil
	hasSession := c.SessionKey != nil && *c.SessionKey != ""
	if hasUser == hasSession {
		return ErrCartOwnership
	}
	return nil
}

// CartItem is one design in a cart. (cart_id, design_id) is unique: re-adding
// the same design bumps Quantity.
type CartItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	CartID    uint            `gorm:"not null;uniqueIndex:idx_cart_items_cart_design" json:"cart_id"`
	DesignID  uint            `gorm:"not null;uniqueIndex:idx_cart_items_cart_design;index" json:"design_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Design *Design `gorm:"foreignKey:DesignID;constraint:OnDelete:CASCADE" json:"design,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal is quantity times the snapshotted unit price
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
