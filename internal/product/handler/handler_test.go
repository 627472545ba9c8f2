package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUseCase struct {
	createInput *dto.CreateProductInput
	createErr   error
	updateInput *dto.UpdateProductInput
	filters     *dto.ProductFilters
	deleteErr   error
}

func (m *mockUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	m.createInput = input
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &model.Product{ID: 1, SKU: input.SKU, CurrentStock: input.InitialStock}, nil
}

func (m *mockUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	if id == 404 {
		return nil, model.ErrProductNotFound
	}
	return &model.Product{ID: id}, nil
}

func (m *mockUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	m.filters = filters
	return []model.Product{{ID: 1}}, 41, nil
}

func (m *mockUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	m.updateInput = input
	return &model.Product{ID: input.ID, Name: input.Name}, nil
}

func (m *mockUseCase) DeleteProduct(ctx context.Context, id int64) error {
	return m.deleteErr
}

func newTestRouter(uc *mockUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", auth.Middleware(auth.MiddlewareConfig{SecretKey: "s", AllowAnonymous: true, SystemUserID: 9}))
	NewProductHandler(uc, logger.NewNop()).RegisterRoutes(api)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProductHandler(t *testing.T) {
	uc := &mockUseCase{}
	body := `{"name":"Fresh Milk (1L)","sku":"MLK-1L-001","categoryId":3,"price":"3.99","costPrice":2.8,"shelfLife":7,"initialStock":75}`

	w := do(newTestRouter(uc), http.MethodPost, "/api/products", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	in := uc.createInput
	assert.Equal(t, "3.99", in.Price.StringFixed(2))
	assert.Equal(t, "2.80", in.CostPrice.StringFixed(2))
	assert.Equal(t, 10, in.MinStockLevel, "defaults when omitted")
	assert.True(t, in.IsFoodProduct, "defaults when omitted")
	assert.Equal(t, 7, *in.ShelfLife)
	assert.Equal(t, 75, in.InitialStock)
	assert.Equal(t, int64(9), in.UserID)
}

func TestCreateProductHandlerErrors(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		useErr   error
		wantCode int
	}{
		{name: "missing sku", body: `{"name":"Milk","categoryId":3}`, wantCode: http.StatusBadRequest},
		{name: "duplicate sku", body: `{"name":"Milk","sku":"M","categoryId":3}`, useErr: model.ErrSKUAlreadyExists, wantCode: http.StatusConflict},
		{name: "unknown category", body: `{"name":"Milk","sku":"M","categoryId":99}`, useErr: model.ErrCategoryNotFound, wantCode: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(newTestRouter(&mockUseCase{createErr: tc.useErr}), http.MethodPost, "/api/products", tc.body)
			assert.Equal(t, tc.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestListProductsHandler(t *testing.T) {
	uc := &mockUseCase{}
	r := newTestRouter(uc)

	w := do(r, http.MethodGet, "/api/products?categoryId=3&q=milk&page=2&pageSize=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "41", w.Header().Get("X-Total-Count"))
	assert.Equal(t, &dto.ProductFilters{CategoryID: 3, SearchQuery: "milk", Page: 2, PageSize: 20}, uc.filters)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/products?page=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/products?categoryId=dairy", "").Code)
}

func TestProductByIDRoutes(t *testing.T) {
	uc := &mockUseCase{}
	r := newTestRouter(uc)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/products/5", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/products/404", "").Code)

	w := do(r, http.MethodPut, "/api/products/5", `{"name":"Milk","sku":"M","categoryId":3,"minStockLevel":0,"isFoodProduct":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(5), uc.updateInput.ID)
	assert.Zero(t, uc.updateInput.MinStockLevel)
	assert.False(t, uc.updateInput.IsFoodProduct)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/products/5", "").Code)

	uc.deleteErr = model.ErrProductInUse
	assert.Equal(t, http.StatusConflict, do(r, http.MethodDelete, "/api/products/5", "").Code)
}
