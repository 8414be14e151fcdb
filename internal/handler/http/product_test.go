package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comfyhome/storefront/internal/domain"
	"github.com/comfyhome/storefront/internal/repository"
	apperrors "github.com/comfyhome/storefront/pkg/errors"
	"github.com/comfyhome/storefront/pkg/pagination"
)

func sampleProduct() *domain.Product {
	return &domain.Product{
		ID:       productID,
		Name:     "Accent Chair",
		Price:    25999,
		Category: "office",
		Company:  "ikea",
		Colors:   []string{"#222"},
		UserID:   adminID,
	}
}

func multipartImage(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

// --- List / Get ---

func TestListProducts_Filters(t *testing.T) {
	s := newTestServer(t)
	s.products.On("List", mock.Anything, mock.MatchedBy(func(f repository.ProductFilter) bool {
		return f.Category != nil && *f.Category == "office" &&
			f.Featured != nil && *f.Featured &&
			f.Page == 2 && f.PerPage == 5
	})).Return([]domain.Product{*sampleProduct()}, 6, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/products/?category=office&featured=true&page=2&per_page=5", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var page pagination.Result[domain.Product]
	decodeData(t, rec, &page)
	assert.Equal(t, 6, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	s.assertExpectations(t)
}

func TestListProducts_InvalidFeatured(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/products/?featured=maybe", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	s.products.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestGetProduct_WithReviews(t *testing.T) {
	s := newTestServer(t)
	s.products.On("GetByID", mock.Anything, productID).Return(sampleProduct(), nil)
	s.reviews.On("FindByProduct", mock.Anything, productID).Return([]domain.Review{
		{ID: reviewID, ProductID: productID, UserID: aliceID, Rating: 4},
	}, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/products/"+productID, nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reviews":[`)
	assert.Contains(t, rec.Body.String(), `"`+reviewID+`"`)
}

func TestGetProduct_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.products.On("GetByID", mock.Anything, missingProductID).Return(nil, apperrors.NotFound("product", missingProductID))

	rec := s.do(t, http.MethodGet, "/api/v1/products/"+missingProductID, nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Admin writes ---

func TestCreateProduct_RequiresAdmin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/products/", map[string]any{
		"name": "Desk", "price": 1000, "description": "oak", "category": "office", "company": "ikea",
	}, s.tokenFor(t, aliceIdentity))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	s.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateProduct_Admin(t *testing.T) {
	s := newTestServer(t)
	s.products.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.UserID == adminID && p.Name == "Desk"
	})).Return(nil)

	rec := s.do(t, http.MethodPost, "/api/v1/products/", map[string]any{
		"name": "Desk", "price": 1000, "description": "oak", "category": "office", "company": "ikea",
	}, s.tokenFor(t, adminIdentity))

	require.Equal(t, http.StatusCreated, rec.Code)
	var p domain.Product
	decodeData(t, rec, &p)
	assert.Equal(t, domain.DefaultProductImage, p.Image)
	assert.Equal(t, domain.DefaultProductInventory, p.Inventory)
	s.assertExpectations(t)
}

func TestCreateProduct_InvalidColor(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/products/", map[string]any{
		"name": "Desk", "price": 1000, "description": "oak", "category": "office", "company": "ikea",
		"colors": []string{"blue"},
	}, s.tokenFor(t, adminIdentity))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErr(t, rec).Code)
}

func TestDeleteProduct_Admin(t *testing.T) {
	s := newTestServer(t)
	s.products.On("GetByID", mock.Anything, productID).Return(sampleProduct(), nil)
	s.products.On("Delete", mock.Anything, productID).Return(nil)
	s.reviews.On("FindByProduct", mock.Anything, productID).Return([]domain.Review{}, nil)
	s.reviews.On("SaveAggregate", mock.Anything, productID, domain.RatingAggregate{}).
		Return(apperrors.NotFound("product", productID))

	rec := s.do(t, http.MethodDelete, "/api/v1/products/"+productID, nil, s.tokenFor(t, adminIdentity))

	assert.Equal(t, http.StatusOK, rec.Code)
	s.assertExpectations(t)
}

// --- Image upload ---

func TestUploadImage_StoresAndServes(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartImage(t, "chair.PNG", "image/png", []byte("png-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/uploadImage", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(t, adminIdentity))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp ImageResponse
	decodeData(t, rec, &resp)
	require.True(t, strings.HasPrefix(resp.Image, "/uploads/"))
	assert.True(t, strings.HasSuffix(resp.Image, ".png"))

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.Image, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartImage(t, "notes.txt", "text/plain", []byte("hello"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/uploadImage", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(t, adminIdentity))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadImage_MissingFile(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "chair"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/uploadImage", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(t, adminIdentity))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file uploaded", decodeErr(t, rec).Message)
}

func TestUploadImage_TooLarge(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartImage(t, "huge.png", "image/png", bytes.Repeat([]byte("x"), 2<<20))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/uploadImage", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(t, adminIdentity))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
