// internal/interfaces/http/handlers/product.go
package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/product"
)

// ProductService is the part of product.Service the catalog endpoints need
type ProductService interface {
	Search(req *product.SearchRequest) ([]product.Product, error)
	List() ([]product.Product, error)
	Get(id uint) (*product.Product, error)
	Create(req *product.CreateRequest) (*product.Product, error)
	Update(id uint, req *product.UpdateRequest) (*product.Product, error)
	Delete(id uint) error
}

// ProductHandler handles product endpoints
type ProductHandler struct {
	products   ProductService
	publicPath string
}

// NewProductHandler creates a new product handler
func NewProductHandler(products ProductService, cfg *config.Config) *ProductHandler {
	return &ProductHandler{
		products:   products,
		publicPath: cfg.External.Storage.PublicPath,
	}
}

// productPayload is the JSON body of create and update requests. Price
// accepts either a JSON number or a decimal string.
type productPayload struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

// GetProducts handles GET /api/products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	req := &product.SearchRequest{
		Name:        c.Query("search_name"),
		Description: c.Query("search_description"),
	}

	req.MinPrice = decimalQuery(c, "min_price")
	req.MaxPrice = decimalQuery(c, "max_price")

	products, err := h.products.Search(req)
	if err != nil {
		respondError(c, err, "Failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": h.views(products)})
}

// GetProduct handles GET /api/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	p, err := h.products.Get(id)
	if err != nil {
		respondError(c, err, "Failed to retrieve product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": p.ToView(h.publicPath)})
}

// AdminGetProducts handles GET /api/admin/products
func (h *ProductHandler) AdminGetProducts(c *gin.Context) {
	products, err := h.products.List()
	if err != nil {
		respondError(c, err, "Failed to retrieve products")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": h.views(products)})
}

// CreateProduct handles POST /api/products. Multipart bodies may carry an image.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	payload, image, err := bindProduct(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	req := &product.CreateRequest{Image: image}
	if payload.Name != nil {
		req.Name = *payload.Name
	}
	if payload.Description != nil {
		req.Description = *payload.Description
	}
	if payload.Price != nil {
		req.Price = *payload.Price
	}
	if payload.Stock != nil {
		req.Stock = *payload.Stock
	}

	p, err := h.products.Create(req)
	if err != nil {
		respondError(c, err, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": p.ToView(h.publicPath),
	})
}

// UpdateProduct handles PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	payload, image, err := bindProduct(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	p, err := h.products.Update(id, &product.UpdateRequest{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Stock:       payload.Stock,
		Image:       image,
	})
	if err != nil {
		respondError(c, err, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": p.ToView(h.publicPath),
	})
}

// DeleteProduct handles DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if err := h.products.Delete(id); err != nil {
		respondError(c, err, "Failed to delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

func (h *ProductHandler) views(products []product.Product) []product.View {
	out := make([]product.View, 0, len(products))
	for i := range products {
		out = append(out, products[i].ToView(h.publicPath))
	}
	return out
}

// bindProduct reads a product payload from either a JSON or a multipart body
func bindProduct(c *gin.Context) (*productPayload, *multipart.FileHeader, error) {
	var payload productPayload

	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBindJSON(&payload); err != nil {
			return nil, nil, err
		}
		return &payload, nil, nil
	}

	if v, ok := c.GetPostForm("name"); ok {
		payload.Name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		payload.Description = &v
	}
	if v, ok := c.GetPostForm("price"); ok {
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, nil, err
		}
		payload.Price = &price
	}
	if v, ok := c.GetPostForm("stock"); ok {
		stock, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, nil, err
		}
		payload.Stock = &stock
	}

	image, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return &payload, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &payload, image, nil
}

// decimalQuery parses an optional decimal query parameter. Unparsable values are ignored.
func decimalQuery(c *gin.Context, key string) *decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return nil
	}
	return &d
}
