package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalogapi/internal/asset"
	assetMocks "catalogapi/internal/asset/mocks"
	"catalogapi/internal/model"
	"catalogapi/internal/service"
	serviceMocks "catalogapi/internal/service/mocks"
	"catalogapi/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListProducts(t *testing.T) {
	mockSvc := new(serviceMocks.MockProductService)
	app := fiber.New()
	app.Get("/api/products", ListProducts(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.ProductPage{
			Items:       []model.Product{{ID: uuid.New().String(), Name: "Lamp"}},
			Total:       1,
			PerPage:     2,
			CurrentPage: 2,
			LastPage:    1,
		}
		mockSvc.On("List", mock.Anything, "lamp", 2).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/products?searchQuery=lamp&page=2", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result productListResponse
		json.NewDecoder(resp.Body).Decode(&result)
		require.NotNil(t, result.Products)
		assert.Len(t, result.Products.Items, 1)
		assert.Equal(t, 1, result.Products.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid page defaults to first", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "", 1).Return(&service.ProductPage{Items: []model.Product{}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/products?page=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "", 1).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestCreateProduct(t *testing.T) {
	mockSvc := new(serviceMocks.MockProductService)
	app := fiber.New()
	app.Post("/api/products", CreateProduct(mockSvc))

	t.Run("success", func(t *testing.T) {
		qty := int64(4)
		expected := &model.Product{ID: uuid.New().String(), Name: "Lamp", Image: model.DefaultImage}
		mockSvc.On("Create", mock.Anything, model.ProductInput{Name: "Lamp", Description: "Desk lamp", Quantity: &qty}).
			Return(expected, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/products", `{"name":"Lamp","description":"Desk lamp","quantity":4}`))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result productResponse
		json.NewDecoder(resp.Body).Decode(&result)
		require.NotNil(t, result.Product)
		assert.Equal(t, expected.ID, result.Product.ID)
		assert.Equal(t, model.DefaultImage, result.Product.Image)
		mockSvc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, &service.ValidationError{Fields: []string{"name"}}).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/products", `{"description":"x"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "VALIDATION_FAILED", res.Error.Code)
		assert.Equal(t, []string{"name"}, res.Error.Fields)
		mockSvc.AssertExpectations(t)
	})

	t.Run("bad image", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, errors.Join(errors.New("store image"), asset.ErrDecode)).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/products", `{"name":"a","description":"b","image":"data:image/png;base64,AA"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_IMAGE", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/products", `{"name":`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_BODY", res.Error.Code)
	})
}

func TestGetProduct(t *testing.T) {
	mockSvc := new(serviceMocks.MockProductService)
	app := fiber.New()
	app.Get("/api/products/:id", GetProduct(mockSvc))
	app.Get("/api/products/:id/edit", GetProduct(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(&model.Product{ID: id, Name: "Lamp"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/products/"+id+"/edit", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result productResponse
		json.NewDecoder(resp.Body).Decode(&result)
		require.NotNil(t, result.Product)
		assert.Equal(t, id, result.Product.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("unknown id yields null product", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"product":null}`, string(body))
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/products/invalid-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestUpdateProduct(t *testing.T) {
	mockSvc := new(serviceMocks.MockProductService)
	app := fiber.New()
	app.Put("/api/products/:id", UpdateProduct(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		in := model.ProductInput{Name: "Lamp", Description: "Desk lamp", Image: "1700000000.png"}
		mockSvc.On("Update", mock.Anything, id, in).
			Return(&model.Product{ID: id, Name: "Lamp", Image: "1700000000.png"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/products/"+id, `{"name":"Lamp","description":"Desk lamp","image":"1700000000.png"}`))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var result productResponse
		json.NewDecoder(resp.Body).Decode(&result)
		require.NotNil(t, result.Product)
		assert.Equal(t, "1700000000.png", result.Product.Image)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Update", mock.Anything, id, mock.Anything).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/products/"+id, `{"name":"a","description":"b"}`))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("unsupported image", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Update", mock.Anything, id, mock.Anything).Return(nil, asset.ErrUnsupportedFormat).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/products/"+id, `{"name":"a","description":"b","image":"data:image/tiff;base64,AA"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteProduct(t *testing.T) {
	mockSvc := new(serviceMocks.MockProductService)
	app := fiber.New()
	app.Delete("/api/products/:id", DeleteProduct(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil))

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Delete", mock.Anything, id).Return(errors.New("delete error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/products/"+id, nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestServeImage(t *testing.T) {
	mockAssets := new(assetMocks.MockManager)
	app := fiber.New()
	app.Get("/upload/:filename", ServeImage(mockAssets))

	t.Run("streams the file", func(t *testing.T) {
		mockAssets.On("Open", mock.Anything, "1700000000.png").
			Return(io.NopCloser(strings.NewReader("png-bytes")), storage.ObjectInfo{Size: 9, ContentType: "image/png"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/upload/1700000000.png", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "png-bytes", string(body))
		mockAssets.AssertExpectations(t)
	})

	t.Run("missing file", func(t *testing.T) {
		mockAssets.On("Open", mock.Anything, "gone.png").
			Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/upload/gone.png", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockAssets.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockProductService)
	RegisterRoutes(app, (*sql.DB)(nil), mockSvc, new(assetMocks.MockManager))

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}
