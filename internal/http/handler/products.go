package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"catalogapi/internal/asset"
	"catalogapi/internal/model"
	"catalogapi/internal/service"
	"catalogapi/internal/storage"
)

type productListResponse struct {
	Products *service.ProductPage `json:"products"`
}

type productResponse struct {
	Product *model.Product `json:"product"`
}

// ListProducts lists products newest first, two per page.
//
// @Summary  List products
// @Tags     products
// @Produce  json
// @Param    searchQuery query string false "case-insensitive name filter"
// @Param    page        query int    false "1-based page number"
// @Success  200 {object} productListResponse
// @Failure  500 {object} errorPayload
// @Router   /api/products [get]
func ListProducts(svc service.ProductService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Unparseable pages fall back to the first one.
		page, err := strconv.Atoi(c.Query("page", "1"))
		if err != nil {
			page = 1
		}

		res, err := svc.List(c.UserContext(), c.Query("searchQuery"), page)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(productListResponse{Products: res})
	}
}

// CreateProduct creates a product. The optional image is a base64 data URI.
//
// @Summary  Create product
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    product body     model.ProductInput true "product fields"
// @Success  201     {object} productResponse
// @Failure  400     {object} errorPayload
// @Failure  422     {object} errorPayload
// @Router   /api/products [post]
func CreateProduct(svc service.ProductService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in model.ProductInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		p, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(productResponse{Product: p})
	}
}

// GetProduct returns one product. An unknown id yields {"product": null}.
//
// @Summary  Get product
// @Tags     products
// @Produce  json
// @Param    id path string true "product id"
// @Success  200 {object} productResponse
// @Failure  400 {object} errorPayload
// @Router   /api/products/{id} [get]
func GetProduct(svc service.ProductService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		p, err := svc.Get(c.UserContext(), id)
		if err != nil && !errors.Is(err, service.ErrNotFound) {
			return writeServiceError(c, err)
		}
		return c.JSON(productResponse{Product: p})
	}
}

// UpdateProduct overwrites a product. Sending the stored filename as image keeps it.
//
// @Summary  Update product
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    id      path     string             true "product id"
// @Param    product body     model.ProductInput true "product fields"
// @Success  200     {object} productResponse
// @Failure  400     {object} errorPayload
// @Failure  404     {object} errorPayload
// @Failure  422     {object} errorPayload
// @Router   /api/products/{id} [put]
func UpdateProduct(svc service.ProductService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var in model.ProductInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		p, err := svc.Update(c.UserContext(), id, in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(productResponse{Product: p})
	}
}

// DeleteProduct removes a product and its image.
//
// @Summary  Delete product
// @Tags     products
// @Param    id path string true "product id"
// @Success  204
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/products/{id} [delete]
func DeleteProduct(svc service.ProductService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ServeImage streams a stored product image.
//
// @Summary  Product image
// @Tags     products
// @Produce  image/png
// @Param    filename path string true "stored filename"
// @Success  200
// @Failure  404 {object} errorPayload
// @Router   /upload/{filename} [get]
func ServeImage(assets asset.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := assets.Open(c.UserContext(), c.Params("filename"))
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "image not found")
			}
			return writeServiceError(c, err)
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		return c.SendStream(rc, int(info.Size))
	}
}
