package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varejo/shop-api/internal/cache"
	"github.com/varejo/shop-api/internal/domain/cart"
	"github.com/varejo/shop-api/internal/domain/coupon"
	"github.com/varejo/shop-api/internal/domain/order"
	"github.com/varejo/shop-api/internal/domain/product"
	"github.com/varejo/shop-api/internal/domain/user"
	"github.com/varejo/shop-api/pkg/token"
)

// --- In-memory repositories ---

type memUserRepo struct {
	byID map[string]*user.User
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) SetBlocked(_ context.Context, id string, blocked bool) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Blocked = blocked
	return u, nil
}

type memProductRepo struct {
	byID map[string]*product.Product
}

func (m *memProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *memProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProductRepo) Create(_ context.Context, p *product.Product) error {
	m.byID[p.ID] = p
	return nil
}

type memCouponRepo struct {
	byID map[string]*coupon.Rule
}

func (m *memCouponRepo) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	for _, r := range m.byID {
		if r.Code == code {
			return r, nil
		}
	}
	return nil, coupon.ErrInvalidCoupon
}

func (m *memCouponRepo) Create(_ context.Context, r *coupon.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.byID[r.ID] = r
	return nil
}

func (m *memCouponRepo) List(_ context.Context) ([]coupon.Rule, error) {
	out := make([]coupon.Rule, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memCouponRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return coupon.ErrInvalidCoupon
	}
	delete(m.byID, id)
	return nil
}

type memCartRepo struct {
	byUser map[string]*cart.Cart
}

func (m *memCartRepo) Replace(_ context.Context, c *cart.Cart) error {
	stored := *c
	stored.DiscountedTotal = nil
	m.byUser[c.UserID] = &stored
	return nil
}

func (m *memCartRepo) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.byUser[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *memCartRepo) DeleteByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.byUser[userID]
	if !ok {
		return nil, nil
	}
	delete(m.byUser, userID)
	return c, nil
}

func (m *memCartRepo) SetDiscountedTotal(_ context.Context, userID string, total decimal.Decimal) error {
	c, ok := m.byUser[userID]
	if !ok {
		return cart.ErrNotFound
	}
	c.DiscountedTotal = &total
	return nil
}

type memOrderRepo struct {
	users    *memUserRepo
	products *memProductRepo
	carts    *memCartRepo
	byID     map[string]*order.Order
}

func (m *memOrderRepo) Checkout(_ context.Context, o *order.Order, adjustments []product.StockAdjustment) error {
	for _, adj := range adjustments {
		p, ok := m.products.byID[adj.ProductID]
		if !ok {
			return product.ErrNotFound
		}
		p.Quantity -= adj.Count
		p.Sold += adj.Count
	}
	delete(m.carts.byUser, o.UserID)
	m.byID[o.ID] = o
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *memOrderRepo) GetByUser(_ context.Context, userID string) (*order.AdminView, error) {
	var latest *order.Order
	for _, o := range m.byID {
		if o.UserID != userID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, order.ErrNotFound
	}
	u := m.users.byID[userID]
	return &order.AdminView{
		Order: *latest,
		Customer: order.Customer{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
		},
	}, nil
}

func (m *memOrderRepo) ListAll(_ context.Context) ([]order.AdminView, error) {
	out := make([]order.AdminView, 0, len(m.byID))
	for _, o := range m.byID {
		u := m.users.byID[o.UserID]
		out = append(out, order.AdminView{
			Order:    *o,
			Customer: order.Customer{ID: u.ID, Email: u.Email},
		})
	}
	return out, nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, id string, from, to order.Status) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok || o.Status != from {
		return nil, order.ErrNotFound
	}
	o.Status = to
	o.Payment.Status = to
	return o, nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "plain:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// --- Test environment ---

type env struct {
	handler  http.Handler
	users    *memUserRepo
	products *memProductRepo
	coupons  *memCouponRepo
	carts    *memCartRepo
	orders   *memOrderRepo
	tokens   *token.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()

	users := &memUserRepo{byID: make(map[string]*user.User)}
	products := &memProductRepo{byID: make(map[string]*product.Product)}
	coupons := &memCouponRepo{byID: make(map[string]*coupon.Rule)}
	carts := &memCartRepo{byUser: make(map[string]*cart.Cart)}
	orders := &memOrderRepo{users: users, products: products, carts: carts, byID: make(map[string]*order.Order)}
	tokens := token.NewManager([]byte("test-secret"), time.Hour)
	noop := cache.Noop{}

	h := NewHandler(
		user.NewService(users, plainHasher{}, tokens),
		cart.NewService(carts, products, coupons, noop),
		order.NewService(carts, orders, noop),
		products,
		coupons,
		users,
		tokens,
	)
	return &env{
		handler:  h.Routes(),
		users:    users,
		products: products,
		coupons:  coupons,
		carts:    carts,
		orders:   orders,
		tokens:   tokens,
	}
}

func (e *env) seedUser(t *testing.T, role user.Role) (*user.User, string) {
	t.Helper()

	u := &user.User{
		ID:           uuid.New().String(),
		FirstName:    "Ana",
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "plain:s3cret",
		Role:         role,
	}
	e.users.byID[u.ID] = u

	tok, err := e.tokens.Issue(u.ID, string(u.Role))
	require.NoError(t, err)
	return u, tok
}

func (e *env) seedProduct(t *testing.T, title, price string, quantity int) *product.Product {
	t.Helper()

	p := &product.Product{
		ID:       uuid.New().String(),
		Title:    title,
		Slug:     title,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	}
	e.products.byID[p.ID] = p
	return p
}

func (e *env) seedCoupon(t *testing.T, code string, percent int) *coupon.Rule {
	t.Helper()

	r := &coupon.Rule{
		ID:      uuid.New().String(),
		Code:    code,
		Percent: decimal.NewFromInt(int64(percent)),
	}
	e.coupons.byID[r.ID] = r
	return r
}

func (e *env) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// --- Tests ---

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"primeiroNome": "Ana",
		"email":        "ana@example.com",
		"senha":        "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "ana@example.com",
		"senha": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])
}

func TestRegister_MissingEmail(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"primeiroNome": "Ana",
		"senha":        "s3cret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newEnv(t)
	u, _ := e.seedUser(t, user.RoleUser)

	rec := e.do(t, http.MethodPost, "/api/user/login", "", map[string]string{
		"email": u.Email,
		"senha": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLogin_NotAdmin(t *testing.T) {
	e := newEnv(t)
	u, _ := e.seedUser(t, user.RoleUser)

	rec := e.do(t, http.MethodPost, "/api/user/admin-login", "", map[string]string{
		"email": u.Email,
		"senha": "s3cret",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCartRequiresAuth(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/user/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/user/cart", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBlockedUserRejected(t *testing.T) {
	e := newEnv(t)
	u, tok := e.seedUser(t, user.RoleUser)
	u.Blocked = true

	rec := e.do(t, http.MethodGet, "/api/user/cart", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetAndGetCart(t *testing.T) {
	e := newEnv(t)
	_, tok := e.seedUser(t, user.RoleUser)
	p1 := e.seedProduct(t, "Widget", "10.00", 5)
	p2 := e.seedProduct(t, "Gadget", "5.00", 5)

	rec := e.do(t, http.MethodPost, "/api/user/cart", tok, map[string]any{
		"carrinho": []map[string]any{
			{"_id": p1.ID, "contagem": 2},
			{"_id": p2.ID, "contagem": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "25.00", decode(t, rec)["carrinhoTotal"])

	rec = e.do(t, http.MethodGet, "/api/user/cart", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "25.00", body["carrinhoTotal"])
	assert.Len(t, body["produtos"], 2)
}

func TestSetCart_UnknownProduct(t *testing.T) {
	e := newEnv(t)
	_, tok := e.seedUser(t, user.RoleUser)

	rec := e.do(t, http.MethodPost, "/api/user/cart", tok, map[string]any{
		"carrinho": []map[string]any{{"_id": "ghost", "contagem": 1}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCart_Empty(t *testing.T) {
	e := newEnv(t)
	_, tok := e.seedUser(t, user.RoleUser)

	rec := e.do(t, http.MethodGet, "/api/user/cart", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestEmptyCart(t *testing.T) {
	e := newEnv(t)
	u, tok := e.seedUser(t, user.RoleUser)
	p := e.seedProduct(t, "Widget", "10.00", 5)

	rec := e.do(t, http.MethodPost, "/api/user/cart", tok, map[string]any{
		"carrinho": []map[string]any{{"_id": p.ID, "contagem": 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/user/empty-cart", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, e.carts.byUser[u.ID])
}

func TestApplyCoupon(t *testing.T) {
	e := newEnv(t)
	_, tok := e.seedUser(t, user.RoleUser)
	p := e.seedProduct(t, "Widget", "25.00", 5)
	e.seedCoupon(t, "SAVE10", 10)

	rec := e.do(t, http.MethodPost, "/api/user/cart", tok, map[string]any{
		"carrinho": []map[string]any{{"_id": p.ID, "contagem": 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/user/cart/applycoupon", tok, map[string]string{"cupom": "SAVE10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "22.50", decode(t, rec)["discountedTotal"])
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	e := newEnv(t)
	_, tok := e.seedUser(t, user.RoleUser)

	rec := e.do(t, http.MethodPost, "/api/user/cart/applycoupon", tok, map[string]string{"cupom": "BOGUS"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCashOrder(t *testing.T) {
	e := newEnv(t)
	u, tok := e.seedUser(t, user.RoleUser)
	p := e.seedProduct(t, "Widget", "25.00", 5)
	e.seedCoupon(t, "SAVE10", 10)

	rec := e.do(t, http.MethodPost, "/api/user/cart", tok, map[string]any{
		"carrinho": []map[string]any{{"_id": p.ID, "contagem": 2}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/user/cart/applycoupon", tok, map[string]string{"cupom": "SAVE10"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/user/cart/cash-order", tok, map[string]any{
		"COD":           true,
		"cupomAplicado": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "sucesso", decode(t, rec)["message"])

	// Cart consumed, inventory adjusted.
	assert.Empty(t, e.carts.byUser[u.ID])
	assert.Equal(t, 3, p.Quantity)
	assert.Equal(t, 2, p.Sold)

	rec = e.do(t, http.MethodGet, "/api/user/get-orders", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, string(order.StatusPaymentConfirmed), body["status"])
	payment := body["pagamento"].(map[string]any)
	assert.Equal(t, "45.00", payment["valorBS"])
	assert.Equal(t, "brl", payment["moeda"])
}

func TestCashOrder_WithoutCOD(t *testing.T) {
	e := newEnv(t)
	_, tok := e.seedUser(t, user.RoleUser)

	rec := e.do(t, http.MethodPost, "/api/user/cart/cash-order", tok, map[string]any{"COD": false})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCashOrder_NoCart(t *testing.T) {
	e := newEnv(t)
	_, tok := e.seedUser(t, user.RoleUser)

	rec := e.do(t, http.MethodPost, "/api/user/cart/cash-order", tok, map[string]any{"COD": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRoutesForbiddenForUser(t *testing.T) {
	e := newEnv(t)
	u, tok := e.seedUser(t, user.RoleUser)

	for _, path := range []string{"/api/user/getallorders", "/api/cupom/"} {
		rec := e.do(t, http.MethodGet, path, tok, nil)
		assert.Equalf(t, http.StatusForbidden, rec.Code, "path %s", path)
	}

	rec := e.do(t, http.MethodPut, "/api/user/block-user/"+u.ID, tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoutes_MalformedID(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.seedUser(t, user.RoleAdmin)

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodPut, "/api/user/order/update-order/garbage", map[string]string{"status": "Processing"}},
		{http.MethodGet, "/api/user/getorderbyuser/garbage", nil},
		{http.MethodPut, "/api/user/block-user/garbage", nil},
		{http.MethodDelete, "/api/cupom/garbage", nil},
	}
	for _, tc := range cases {
		rec := e.do(t, tc.method, tc.path, adminTok, tc.body)
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
	}
}

func TestBlockAndUnblockUser(t *testing.T) {
	e := newEnv(t)
	u, userTok := e.seedUser(t, user.RoleUser)
	_, adminTok := e.seedUser(t, user.RoleAdmin)

	rec := e.do(t, http.MethodPut, "/api/user/block-user/"+u.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, u.Blocked)

	rec = e.do(t, http.MethodGet, "/api/user/cart", userTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/user/unblock-user/"+u.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, u.Blocked)

	rec = e.do(t, http.MethodGet, "/api/user/cart", userTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBlockUser_UnknownID(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.seedUser(t, user.RoleAdmin)

	rec := e.do(t, http.MethodPut, "/api/user/block-user/"+uuid.New().String(), adminTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	e := newEnv(t)
	_, userTok := e.seedUser(t, user.RoleUser)
	_, adminTok := e.seedUser(t, user.RoleAdmin)
	p := e.seedProduct(t, "Widget", "10.00", 5)

	rec := e.do(t, http.MethodPost, "/api/user/cart", userTok, map[string]any{
		"carrinho": []map[string]any{{"_id": p.ID, "contagem": 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/user/cart/cash-order", userTok, map[string]any{"COD": true})
	require.Equal(t, http.StatusCreated, rec.Code)

	var orderID string
	for id := range e.orders.byID {
		orderID = id
	}

	rec = e.do(t, http.MethodPut, "/api/user/order/update-order/"+orderID, adminTok,
		map[string]string{"status": "Processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Processing", decode(t, rec)["status"])

	// Processing -> Delivered skips Shipped.
	rec = e.do(t, http.MethodPut, "/api/user/order/update-order/"+orderID, adminTok,
		map[string]string{"status": "Delivered"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/user/order/update-order/"+orderID, adminTok,
		map[string]string{"status": "Bogus"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCouponAdmin(t *testing.T) {
	e := newEnv(t)
	_, adminTok := e.seedUser(t, user.RoleAdmin)

	rec := e.do(t, http.MethodPost, "/api/cupom/", adminTok, map[string]any{
		"cupom":    "save10",
		"desconto": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "SAVE10", body["cupom"], "codes are stored upper-cased")

	rec = e.do(t, http.MethodPost, "/api/cupom/", adminTok, map[string]any{
		"cupom":    "TOOMUCH",
		"desconto": 120,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/cupom/"+body["_id"].(string), adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, e.coupons.byID)
}

func TestProducts(t *testing.T) {
	e := newEnv(t)
	p := e.seedProduct(t, "Widget", "10.00", 5)

	rec := e.do(t, http.MethodGet, "/api/produtos/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/produtos/"+p.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.00", decode(t, rec)["preco"])

	rec = e.do(t, http.MethodGet, "/api/produtos/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
