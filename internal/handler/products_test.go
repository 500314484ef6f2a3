package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/handler"
	"github.com/7666638403/rajgarande/internal/middleware"
	"github.com/7666638403/rajgarande/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Catalog service stub ──────────────────────────────────────────────────────

type stubCatalogService struct {
	created []dto.CreateProductRequest
	updated []dto.UpdateProductRequest
}

func (s *stubCatalogService) Create(_ context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	s.created = append(s.created, req)
	return &dto.ProductResponse{ID: uuid.NewString(), Name: req.Name, Price: req.Price, Stock: req.Stock}, nil
}

func (s *stubCatalogService) GetByID(_ context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	return &dto.ProductResponse{ID: id.String(), Name: "Soap"}, nil
}

func (s *stubCatalogService) List(_ context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	return &dto.ProductListResponse{Data: []dto.ProductResponse{}, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *stubCatalogService) Update(_ context.Context, _ uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	s.updated = append(s.updated, req)
	return &dto.ProductResponse{ID: uuid.NewString()}, nil
}

var _ service.CatalogService = (*stubCatalogService)(nil)

// productsRouter mirrors the real route table: reads for every role,
// writes behind the admin guard.
func productsRouter(svc service.CatalogService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewProductsHandler(svc)
	r := gin.New()

	anyRole := middleware.RequireRole(middleware.RoleCashier, middleware.RoleStaff, middleware.RoleAdmin)
	v1 := r.Group("/v1", middleware.JWTAuth(testSecret))
	v1.GET("/products", anyRole, h.List)
	v1.GET("/products/:id", anyRole, h.GetByID)
	admin := v1.Group("/products", middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	return r
}

func sampleProduct() dto.CreateProductRequest {
	return dto.CreateProductRequest{
		Name:  "Soap",
		Price: decimal.RequireFromString("10.00"),
		Stock: 50,
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCreateProduct_AdminAllowed(t *testing.T) {
	svc := &stubCatalogService{}
	r := productsRouter(svc)

	w := postJSON(t, r, "/v1/products", sampleProduct(), signToken(t, middleware.RoleAdmin))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, "Soap", svc.created[0].Name)
}

func TestCreateProduct_CashierForbidden(t *testing.T) {
	svc := &stubCatalogService{}
	r := productsRouter(svc)

	w := postJSON(t, r, "/v1/products", sampleProduct(), signToken(t, middleware.RoleCashier))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.created, "forbidden request must not reach the service")
}

func TestCreateProduct_StaffForbidden(t *testing.T) {
	svc := &stubCatalogService{}
	r := productsRouter(svc)

	w := postJSON(t, r, "/v1/products", sampleProduct(), signToken(t, middleware.RoleStaff))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.created)
}

func TestUpdateProduct_CashierForbidden(t *testing.T) {
	svc := &stubCatalogService{}
	r := productsRouter(svc)

	name := "Detergent"
	w := putJSON(t, r, "/v1/products/"+uuid.NewString(), dto.UpdateProductRequest{Name: &name}, signToken(t, middleware.RoleCashier))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.updated)
}

func TestListProducts_CashierAllowed(t *testing.T) {
	svc := &stubCatalogService{}
	r := productsRouter(svc)

	w := doRequest(r, http.MethodGet, "/v1/products", signToken(t, middleware.RoleCashier))
	assert.Equal(t, http.StatusOK, w.Code)
}
