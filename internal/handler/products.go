package handler

import (
	"errors"
	"net/http"

	"github.com/7666638403/rajgarande/internal/apierror"
	"github.com/7666638403/rajgarande/internal/dto"
	"github.com/7666638403/rajgarande/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductsHandler struct{ svc service.CatalogService }

func NewProductsHandler(svc service.CatalogService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// List godoc
// @Summary      List catalog products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        name  query string false "Filter by name substring"
// @Param        page  query int    false "Page (default 1)"
// @Param        limit query int    false "Records per page (default 50)"
// @Success      200   {object} dto.ProductListResponse
// @Router       /v1/products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to list products"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetByID godoc
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product UUID"
// @Success      200 {object} dto.ProductResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/products/{id} [get]
func (h *ProductsHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid ID"))
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Product not found"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary      Add a product to the catalog
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateProductRequest true "New product"
// @Success      201  {object} dto.ProductResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary      Edit a product
// @Description  Changes apply to future bills only; historical bill items keep their snapshot.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "Product UUID"
// @Param        body body dto.UpdateProductRequest true "Fields to change"
// @Success      200  {object} dto.ProductResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/products/{id} [put]
func (h *ProductsHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid ID"))
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("Product not found"))
			return
		}
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}
