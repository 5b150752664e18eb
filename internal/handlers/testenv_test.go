package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KeithOmondi/kian-optics/internal/config"
	"github.com/KeithOmondi/kian-optics/internal/handlers"
	"github.com/KeithOmondi/kian-optics/internal/imghost"
	"github.com/KeithOmondi/kian-optics/internal/mailer"
	"github.com/KeithOmondi/kian-optics/internal/models"
	httpserver "github.com/KeithOmondi/kian-optics/internal/transport/http"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event interface{}
}

type stubPublisher struct {
	events []publishedEvent
	err    error
}

func (p *stubPublisher) PublishEvent(_ context.Context, topic, key string, event interface{}) error {
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return p.err
}

type stubMailer struct {
	sent []mailer.Message
	err  error
}

func (m *stubMailer) Send(msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type stubUploader struct {
	uploaded  []string
	destroyed []string
	uploadErr error
}

func (u *stubUploader) Upload(_ context.Context, image, folder string) (*imghost.UploadResult, error) {
	if u.uploadErr != nil {
		return nil, u.uploadErr
	}
	u.uploaded = append(u.uploaded, image)
	return &imghost.UploadResult{
		PublicID:  fmt.Sprintf("%s/img-%d", folder, len(u.uploaded)),
		SecureURL: fmt.Sprintf("https://images.test/%s/img-%d", folder, len(u.uploaded)),
	}, nil
}

func (u *stubUploader) Destroy(_ context.Context, publicID string) error {
	u.destroyed = append(u.destroyed, publicID)
	return nil
}

type stubIndexer struct {
	indexed map[uint]models.Product
	deleted []uint
}

func newStubIndexer() *stubIndexer {
	return &stubIndexer{indexed: make(map[uint]models.Product)}
}

func (ix *stubIndexer) IndexProduct(_ context.Context, p *models.Product) error {
	ix.indexed[p.ID] = *p
	return nil
}

func (ix *stubIndexer) DeleteProduct(_ context.Context, id uint) error {
	ix.deleted = append(ix.deleted, id)
	delete(ix.indexed, id)
	return nil
}

func (ix *stubIndexer) Search(_ context.Context, query string, from, size int) (int64, []models.Product, error) {
	var hits []models.Product
	for _, p := range ix.indexed {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			hits = append(hits, p)
		}
	}
	return int64(len(hits)), hits, nil
}

type stubGateway struct {
	resp map[string]interface{}
	err  error
}

func (g *stubGateway) InitiatePayment(_ context.Context, amount float64, phoneNumber, accountNumber string) (map[string]interface{}, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Order    *handlers.OrderHandler
	Product  *handlers.ProductHandler
	Payment  *handlers.PaymentHandler
	Auth     *handlers.AuthHandler
	Mailer   *stubMailer
	Producer *stubPublisher
	Uploader *stubUploader
	Index    *stubIndexer
	Gateway  *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	e := echo.New()
	e.Validator = httpserver.NewValidator()
	e.HTTPErrorHandler = httpserver.ErrorHandler

	env := &testEnv{
		T:        t,
		E:        e,
		DB:       db,
		Mailer:   &stubMailer{},
		Producer: &stubPublisher{},
		Uploader: &stubUploader{},
		Index:    newStubIndexer(),
		Gateway:  &stubGateway{resp: map[string]interface{}{"ResponseCode": "0"}},
	}

	env.Order = &handlers.OrderHandler{DB: db, Mailer: env.Mailer, Producer: env.Producer}
	env.Product = &handlers.ProductHandler{DB: db, Uploader: env.Uploader, Index: env.Index, Producer: env.Producer}
	env.Payment = &handlers.PaymentHandler{Gateway: env.Gateway, Producer: env.Producer}
	env.Auth = &handlers.AuthHandler{DB: db, JWTSecret: []byte("test-secret"), RefreshSecret: []byte("test-refresh")}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) seedShop(name string) *models.Shop {
	shop := models.Shop{Name: name, Email: name + "@shops.test"}
	require.NoError(env.T, env.DB.Create(&shop).Error)
	return &shop
}

func (env *testEnv) seedProduct(shopID uint, name string, stock int) *models.Product {
	product := models.Product{
		ShopID:      shopID,
		Name:        name,
		Description: "test description",
		Price:       100,
		Stock:       stock,
	}
	require.NoError(env.T, env.DB.Create(&product).Error)
	return &product
}

func (env *testEnv) seedOrder(userID, shopID uint, cart []models.CartLine, total float64) *models.Order {
	order := models.Order{
		UserID: userID,
		ShopID: shopID,
		Cart:   cart,
		User:   models.OrderUser{ID: userID, Name: "Test Buyer", Email: "buyer@example.com"},
		ShippingAddress: models.Address{
			Country: "Kenya", City: "Nairobi", Address1: "Moi Avenue", ZipCode: "00100",
		},
		TotalPrice: total,
		Status:     models.StatusProcessing,
	}
	require.NoError(env.T, env.DB.Create(&order).Error)
	return &order
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	require.Equal(t, code, he.Code)
}
