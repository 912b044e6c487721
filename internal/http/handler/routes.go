package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"catalogapi/internal/asset"
	"catalogapi/internal/service"
)

// RegisterRoutes attaches the catalog, image and health routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, productSvc service.ProductService, assets asset.Manager) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Get("/products", ListProducts(productSvc))
	api.Post("/products", CreateProduct(productSvc))
	api.Get("/products/:id", GetProduct(productSvc))
	api.Get("/products/:id/edit", GetProduct(productSvc))
	api.Put("/products/:id", UpdateProduct(productSvc))
	api.Delete("/products/:id", DeleteProduct(productSvc))

	app.Get("/upload/:filename", ServeImage(assets))
}
