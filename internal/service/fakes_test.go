package service_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linemk/totembo-store/internal/domain/models"
	"github.com/linemk/totembo-store/internal/payment"
	"github.com/linemk/totembo-store/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// shopState - общее состояние фиктивных репозиториев. Сами репозитории транзакций не видят;
// откат изменений даёт только база из newStagedDB.
type shopState struct {
	mu        sync.Mutex
	nextID    int64
	products  map[int64]*models.Product
	gallery   map[int64][]*models.GalleryImage
	orders    map[int64]*models.Order
	items     map[int64]*models.LineItem
	customers map[int64]*models.Customer
	addresses map[int64]*models.ShippingAddress // ключ - orderID
	lockErr   error
}

func newShopState() *shopState {
	return &shopState{
		nextID:    100,
		products:  make(map[int64]*models.Product),
		gallery:   make(map[int64][]*models.GalleryImage),
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64]*models.LineItem),
		customers: make(map[int64]*models.Customer),
		addresses: make(map[int64]*models.ShippingAddress),
	}
}

func (s *shopState) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *shopState) addProduct(id int64, title, price string, quantity int) *models.Product {
	p := &models.Product{
		ID:        id,
		Title:     title,
		Slug:      title,
		Price:     decimal.RequireFromString(price),
		Quantity:  quantity,
		CreatedAt: time.Now(),
	}
	s.products[id] = p
	return p
}

func (s *shopState) stock(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Quantity
}

func (s *shopState) activeOrder(customerID int64) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.CustomerID == customerID && o.IsActive() {
			c := *o
			return &c
		}
	}
	return nil
}

func (s *shopState) orderItems(orderID int64) []*models.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderItemsLocked(orderID)
}

func (s *shopState) orderItemsLocked(orderID int64) []*models.LineItem {
	res := make([]*models.LineItem, 0)
	for _, it := range s.items {
		if it.OrderID == orderID {
			c := *it
			res = append(res, &c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// snapshot копирует изменяемое транзакциями состояние.
func (s *shopState) snapshot() *shopState {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &shopState{
		products:  make(map[int64]*models.Product, len(s.products)),
		orders:    make(map[int64]*models.Order, len(s.orders)),
		items:     make(map[int64]*models.LineItem, len(s.items)),
		customers: make(map[int64]*models.Customer, len(s.customers)),
		addresses: make(map[int64]*models.ShippingAddress, len(s.addresses)),
	}
	for id, p := range s.products {
		c := *p
		snap.products[id] = &c
	}
	for id, o := range s.orders {
		c := *o
		snap.orders[id] = &c
	}
	for id, it := range s.items {
		c := *it
		snap.items[id] = &c
	}
	for id, cu := range s.customers {
		c := *cu
		snap.customers[id] = &c
	}
	for id, a := range s.addresses {
		c := *a
		snap.addresses[id] = &c
	}
	return snap
}

func (s *shopState) restore(snap *shopState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = snap.products
	s.orders = snap.orders
	s.items = snap.items
	s.customers = snap.customers
	s.addresses = snap.addresses
}

// newStagedDB возвращает *sql.DB, чьи транзакции откатывают изменения shopState:
// Begin снимает копию состояния, Rollback её восстанавливает. Запросы не поддерживаются.
func newStagedDB(s *shopState) *sql.DB {
	return sql.OpenDB(stagedConnector{s: s})
}

type stagedConnector struct{ s *shopState }

func (c stagedConnector) Connect(context.Context) (driver.Conn, error) {
	return &stagedConn{s: c.s}, nil
}

func (c stagedConnector) Driver() driver.Driver { return stagedDriver{} }

type stagedDriver struct{}

func (stagedDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("staged driver is opened through its connector")
}

type stagedConn struct{ s *shopState }

func (c *stagedConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("staged driver does not run queries")
}

func (c *stagedConn) Close() error { return nil }

func (c *stagedConn) Begin() (driver.Tx, error) {
	return &stagedTx{s: c.s, snap: c.s.snapshot()}, nil
}

type stagedTx struct {
	s    *shopState
	snap *shopState
}

func (t *stagedTx) Commit() error { return nil }

func (t *stagedTx) Rollback() error {
	t.s.restore(t.snap)
	return nil
}

// fakeProductRepo

type fakeProductRepo struct{ s *shopState }

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeProductRepo) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.products {
		if p.Slug == slug {
			c := *p
			return &c, nil
		}
	}
	return nil, storage.ErrProductNotFound
}

func (f *fakeProductRepo) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	if f.s.lockErr != nil {
		return nil, f.s.lockErr
	}
	return f.GetProductByID(ctx, id)
}

func (f *fakeProductRepo) UpdateProductStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	if quantity < 0 {
		return errors.New("check constraint violated")
	}
	p.Quantity = quantity
	return nil
}

func (f *fakeProductRepo) ListProductsByCategoryIDs(ctx context.Context, categoryIDs []int64, sortBy string) ([]*models.Product, error) {
	switch sortBy {
	case "", "title", "-title", "price", "-price", "created_at", "-created_at":
	default:
		return nil, storage.ErrInvalidSort
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	res := make([]*models.Product, 0)
	for _, p := range f.s.products {
		for _, id := range categoryIDs {
			if p.CategoryID == id {
				c := *p
				res = append(res, &c)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	if sortBy == "-price" {
		sort.SliceStable(res, func(i, j int) bool { return res[i].Price.GreaterThan(res[j].Price) })
	}
	return res, nil
}

func (f *fakeProductRepo) RandomProducts(ctx context.Context, excludeID int64, limit int) ([]*models.Product, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	res := make([]*models.Product, 0)
	for _, p := range f.s.products {
		if p.ID != excludeID && len(res) < limit {
			c := *p
			res = append(res, &c)
		}
	}
	return res, nil
}

func (f *fakeProductRepo) GetGalleryByProductID(ctx context.Context, productID int64) ([]*models.GalleryImage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	images := f.s.gallery[productID]
	if images == nil {
		images = make([]*models.GalleryImage, 0)
	}
	return images, nil
}

// fakeOrderRepo

type fakeOrderRepo struct{ s *shopState }

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func (f *fakeOrderRepo) GetActiveOrderForUpdateTx(ctx context.Context, tx *sql.Tx, customerID int64) (*models.Order, error) {
	if o := f.s.activeOrder(customerID); o != nil {
		return o, nil
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) CreateActiveOrderTx(ctx context.Context, tx *sql.Tx, customerID int64) error {
	if f.s.activeOrder(customerID) != nil {
		return nil
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	id := f.s.id()
	f.s.orders[id] = &models.Order{ID: id, CustomerID: customerID, Status: models.OrderStatusOpen, CreatedAt: time.Now()}
	return nil
}

func (f *fakeOrderRepo) update(orderID int64, fn func(o *models.Order)) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	o, ok := f.s.orders[orderID]
	if !ok {
		return storage.ErrOrderNotFound
	}
	fn(o)
	return nil
}

func (f *fakeOrderRepo) MarkPendingPaymentTx(ctx context.Context, tx *sql.Tx, orderID int64, total decimal.Decimal, startedAt time.Time) error {
	return f.update(orderID, func(o *models.Order) {
		o.Status = models.OrderStatusPendingPayment
		o.CheckoutTotal = &total
		o.CheckoutStartedAt = &startedAt
	})
}

func (f *fakeOrderRepo) SetPaymentSessionTx(ctx context.Context, tx *sql.Tx, orderID int64, sessionID, paymentURL string) error {
	return f.update(orderID, func(o *models.Order) {
		o.PaymentSessionID = &sessionID
		o.PaymentURL = &paymentURL
	})
}

func (f *fakeOrderRepo) ReopenOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	return f.update(orderID, func(o *models.Order) {
		o.Status = models.OrderStatusOpen
		o.PaymentSessionID = nil
		o.PaymentURL = nil
		o.CheckoutStartedAt = nil
		o.CheckoutTotal = nil
	})
}

func (f *fakeOrderRepo) CompleteOrderTx(ctx context.Context, tx *sql.Tx, orderID int64, completedAt time.Time) error {
	return f.update(orderID, func(o *models.Order) {
		o.Status = models.OrderStatusCompleted
		o.CompletedAt = &completedAt
	})
}

// fakeLineItemRepo

type fakeLineItemRepo struct{ s *shopState }

var _ storage.LineItemStorage = (*fakeLineItemRepo)(nil)

func (f *fakeLineItemRepo) IncrementLineItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, it := range f.s.items {
		if it.OrderID == orderID && it.ProductID == productID {
			it.Quantity++
			return it.Quantity, nil
		}
	}
	id := f.s.id()
	f.s.items[id] = &models.LineItem{ID: id, OrderID: orderID, ProductID: productID, Quantity: 1}
	return 1, nil
}

func (f *fakeLineItemRepo) GetLineItemForUpdateTx(ctx context.Context, tx *sql.Tx, orderID, productID int64) (*models.LineItem, error) {
	for _, it := range f.s.orderItems(orderID) {
		if it.ProductID == productID {
			return it, nil
		}
	}
	return nil, storage.ErrLineItemNotFound
}

func (f *fakeLineItemRepo) UpdateLineItemTx(ctx context.Context, tx *sql.Tx, item *models.LineItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	it, ok := f.s.items[item.ID]
	if !ok {
		return storage.ErrLineItemNotFound
	}
	it.Quantity = item.Quantity
	it.Reserved = item.Reserved
	return nil
}

func (f *fakeLineItemRepo) DeleteLineItemTx(ctx context.Context, tx *sql.Tx, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.items, id)
	return nil
}

func (f *fakeLineItemRepo) ListLineItemsForUpdateTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.LineItem, error) {
	return f.s.orderItems(orderID), nil
}

func (f *fakeLineItemRepo) DeleteLineItemsByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, it := range f.s.items {
		if it.OrderID == orderID {
			delete(f.s.items, id)
		}
	}
	return nil
}

func (f *fakeLineItemRepo) ListCartLinesTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.CartLine, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	lines := make([]*models.CartLine, 0)
	for _, it := range f.s.orderItemsLocked(orderID) {
		lines = append(lines, &models.CartLine{LineItem: *it, Product: *f.s.products[it.ProductID]})
	}
	return lines, nil
}

// fakeCustomerRepo

type fakeCustomerRepo struct{ s *shopState }

var _ storage.CustomerStorage = (*fakeCustomerRepo)(nil)

func (f *fakeCustomerRepo) CreateCustomerTx(ctx context.Context, tx *sql.Tx, userID int64) (*models.Customer, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c := &models.Customer{ID: f.s.id(), UserID: userID}
	f.s.customers[c.ID] = c
	return c, nil
}

func (f *fakeCustomerRepo) GetCustomerByUserID(ctx context.Context, userID int64) (*models.Customer, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.customers {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrCustomerNotFound
}

func (f *fakeCustomerRepo) UpdateCustomerTx(ctx context.Context, tx *sql.Tx, customer *models.Customer) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	c, ok := f.s.customers[customer.ID]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	c.FirstName = customer.FirstName
	c.LastName = customer.LastName
	c.Phone = customer.Phone
	return nil
}

// fakeShippingRepo

type fakeShippingRepo struct{ s *shopState }

var _ storage.ShippingStorage = (*fakeShippingRepo)(nil)

func (f *fakeShippingRepo) UpsertShippingAddressTx(ctx context.Context, tx *sql.Tx, addr *models.ShippingAddress) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if existing, ok := f.s.addresses[addr.OrderID]; ok {
		addr.ID = existing.ID
	} else {
		addr.ID = f.s.id()
	}
	c := *addr
	f.s.addresses[addr.OrderID] = &c
	return nil
}

func (f *fakeShippingRepo) GetShippingAddressByOrderID(ctx context.Context, orderID int64) (*models.ShippingAddress, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.addresses[orderID]
	if !ok {
		return nil, storage.ErrShippingAddressNotFound
	}
	return a, nil
}

// fakeGateway

// fakeGateway выдаёт сессии cs_test_42, cs_test_43, ...; все сессии считаются оплаченными,
// кроме перечисленных в unpaid
type fakeGateway struct {
	requests []payment.SessionRequest
	checked  []string
	unpaid   map[string]bool
	err      error
	paidErr  error
}

var _ payment.Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) CreatePaymentSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	id := fmt.Sprintf("cs_test_%d", 41+len(g.requests))
	return &payment.Session{ID: id, RedirectURL: "https://checkout.example/" + id}, nil
}

func (g *fakeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	g.checked = append(g.checked, sessionID)
	if g.paidErr != nil {
		return false, g.paidErr
	}
	return !g.unpaid[sessionID], nil
}

// fakeObserver

type transition struct {
	from, to models.OrderStatus
}

type fakeObserver struct {
	transitions []transition
}

func (o *fakeObserver) ObserveTransition(from, to models.OrderStatus) {
	o.transitions = append(o.transitions, transition{from: from, to: to})
}

// fakeCategoryRepo

type fakeCategoryRepo struct {
	categories []*models.Category
}

var _ storage.CategoryStorage = (*fakeCategoryRepo)(nil)

func (f *fakeCategoryRepo) ListRootCategories(ctx context.Context) ([]*models.Category, error) {
	res := make([]*models.Category, 0)
	for _, c := range f.categories {
		if c.ParentID == nil {
			cp := *c
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (f *fakeCategoryRepo) ListSubcategories(ctx context.Context, parentIDs []int64) ([]*models.Category, error) {
	res := make([]*models.Category, 0)
	for _, c := range f.categories {
		for _, id := range parentIDs {
			if c.ParentID != nil && *c.ParentID == id {
				cp := *c
				res = append(res, &cp)
			}
		}
	}
	return res, nil
}

func (f *fakeCategoryRepo) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	for _, c := range f.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrCategoryNotFound
}

// fakeReviewRepo

type fakeReviewRepo struct {
	reviews []*models.Review
}

var _ storage.ReviewStorage = (*fakeReviewRepo)(nil)

func (f *fakeReviewRepo) CreateReview(ctx context.Context, review *models.Review) error {
	review.ID = int64(len(f.reviews) + 1)
	review.CreatedAt = time.Now()
	f.reviews = append(f.reviews, review)
	return nil
}

func (f *fakeReviewRepo) GetReviewsByProductID(ctx context.Context, productID int64) ([]*models.Review, error) {
	res := make([]*models.Review, 0)
	for i := len(f.reviews) - 1; i >= 0; i-- {
		if f.reviews[i].ProductID == productID {
			res = append(res, f.reviews[i])
		}
	}
	return res, nil
}

// fakeFavouriteRepo

type favKey struct{ userID, productID int64 }

type fakeFavouriteRepo struct {
	s    *shopState
	favs map[favKey]bool
}

var _ storage.FavouriteStorage = (*fakeFavouriteRepo)(nil)

func (f *fakeFavouriteRepo) AddFavourite(ctx context.Context, userID, productID int64) (bool, error) {
	k := favKey{userID, productID}
	if f.favs[k] {
		return false, nil
	}
	f.favs[k] = true
	return true, nil
}

func (f *fakeFavouriteRepo) RemoveFavourite(ctx context.Context, userID, productID int64) (bool, error) {
	k := favKey{userID, productID}
	if !f.favs[k] {
		return false, nil
	}
	delete(f.favs, k)
	return true, nil
}

func (f *fakeFavouriteRepo) GetFavouriteProducts(ctx context.Context, userID int64) ([]*models.Product, error) {
	res := make([]*models.Product, 0)
	for k := range f.favs {
		if k.userID == userID {
			c := *f.s.products[k.productID]
			res = append(res, &c)
		}
	}
	return res, nil
}

// fakeSubscriberRepo

type fakeSubscriberRepo struct {
	mails map[string]int64
}

var _ storage.SubscriberStorage = (*fakeSubscriberRepo)(nil)

func (f *fakeSubscriberRepo) CreateSubscriber(ctx context.Context, sub *models.Subscriber) error {
	if _, ok := f.mails[sub.Mail]; ok {
		return storage.ErrAlreadySubscribed
	}
	sub.ID = int64(len(f.mails) + 1)
	f.mails[sub.Mail] = sub.UserID
	return nil
}

// fakeUserRepo

type fakeUserRepo struct {
	users map[string]*models.User // ключ - email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUserTx(ctx context.Context, tx *sql.Tx, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrUserExists
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}
