// internal/domain/product/entity.go
package product

import (
	"path"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:100" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	ImageFile   string          `gorm:"size:255" json:"-"` // stored filename, empty when no image
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName overrides the table name for Product
func (Product) TableName() string {
	return "products"
}

// View is the JSON shape of a product returned by the API
type View struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url,omitempty"`
}

// ToView renders the product for API responses. publicPath is the URL prefix
// uploaded images are served under.
func (p *Product) ToView(publicPath string) View {
	v := View{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
	}
	if p.ImageFile != "" {
		v.ImageURL = path.Join(publicPath, p.ImageFile)
	}
	return v
}

// InStock reports whether quantity units can be sold
func (p *Product) InStock(quantity int) bool {
	return quantity <= p.Stock
}
