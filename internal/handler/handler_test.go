package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/home-store/internal/auth"
	"github.com/prn-tf/home-store/internal/cache/memory"
	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/events"
	"github.com/prn-tf/home-store/internal/lock"
	"github.com/prn-tf/home-store/internal/metrics"
	"github.com/prn-tf/home-store/internal/repository"
	"github.com/prn-tf/home-store/internal/repository/sqlite"
	"github.com/prn-tf/home-store/internal/service"
	"github.com/prn-tf/home-store/internal/storage"
)

const testPassword = "correct-horse-42"

// testEnv is the full page stack on an in-memory SQLite database.
type testEnv struct {
	db       *sqlite.DB
	repos    *repository.Repositories
	users    *service.UserService
	metrics  *metrics.Metrics
	locker   *lock.MemoryLocker
	authCfg  auth.Config
	server   *httptest.Server
	mediaDir string
}

type envOption func(*AccountConfig)

func withLimiter(rl *RateLimiter) envOption {
	return func(c *AccountConfig) { c.Limiter = rl }
}

func withOrdersPerPage(n int) envOption {
	return func(c *AccountConfig) { c.OrdersPerPage = n }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repos := &repository.Repositories{
		User:    sqlite.NewUserRepository(db),
		Session: sqlite.NewSessionRepository(db),
		Cart:    sqlite.NewCartRepository(db),
		Order:   sqlite.NewOrderRepository(db),
		Product: sqlite.NewProductRepository(db),
	}

	mediaDir := t.TempDir()
	media, err := storage.NewFilesystemBackend(mediaDir, "/media/", logger)
	require.NoError(t, err)

	cache := memory.NewCache(time.Minute)
	t.Cleanup(cache.Stop)
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Stop)

	m := metrics.NewMetrics(prometheus.NewRegistry())
	publisher := events.NewLogPublisher(logger)

	userCfg := service.DefaultUserServiceConfig()
	userCfg.BcryptCost = bcrypt.MinCost
	users := service.NewUserService(repos.User, media, publisher, userCfg, logger)
	sessions := service.NewSessionService(repos.Session, time.Hour, logger)
	carts := service.NewCartService(repos.Cart, repos.Product, locker, m, publisher, logger)
	orders := service.NewOrderService(repos.Order, cache, time.Minute, m, logger)

	renderer, err := NewRenderer(users.AvatarURL, logger)
	require.NoError(t, err)

	authCfg := auth.DefaultConfig()
	accountCfg := AccountConfig{
		UserService:    users,
		SessionService: sessions,
		CartService:    carts,
		OrderService:   orders,
		Publisher:      publisher,
		Metrics:        m,
		Renderer:       renderer,
		Auth:           authCfg,
		Logger:         logger,
	}
	for _, opt := range opts {
		opt(&accountCfg)
	}

	router := NewRouter(RouterConfig{
		AccountHandler: NewAccountHandler(accountCfg),
		StoreHandler:   NewStoreHandler(sessions, carts, renderer, authCfg, logger),
		AuthMiddleware: auth.Middleware(sessions, users, authCfg, logger),
		Health:         db,
		MediaDir:       mediaDir,
		Metrics:        m,
		Logger:         logger,
	})

	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	return &testEnv{
		db:       db,
		repos:    repos,
		users:    users,
		metrics:  m,
		locker:   locker,
		authCfg:  authCfg,
		server:   server,
		mediaDir: mediaDir,
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *domain.User {
	t.Helper()
	out, err := e.users.Create(context.Background(), service.CreateUserInput{
		Username:        username,
		Email:           username + "@example.com",
		FirstName:       strings.ToUpper(username[:1]) + username[1:],
		LastName:        "Tester",
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	return out.User
}

func (e *testEnv) createProduct(t *testing.T, slug, price string) *domain.Product {
	t.Helper()
	product := &domain.Product{
		Name:     strings.ToUpper(slug[:1]) + slug[1:],
		Slug:     slug,
		Price:    decimal.RequireFromString(price),
		Discount: decimal.Zero,
		Quantity: 10,
	}
	require.NoError(t, e.repos.Product.Create(context.Background(), product))
	return product
}

func (e *testEnv) userCart(t *testing.T, userID int64) domain.Carts {
	t.Helper()
	carts, err := e.repos.Cart.ListByOwner(context.Background(), repository.CartOwner{UserID: &userID})
	require.NoError(t, err)
	return carts
}

func (e *testEnv) sessionCart(t *testing.T, key string) domain.Carts {
	t.Helper()
	carts, err := e.repos.Cart.ListByOwner(context.Background(), repository.CartOwner{SessionKey: key})
	require.NoError(t, err)
	return carts
}

func (e *testEnv) insertOrder(t *testing.T, userID, productID int64, price string, quantity int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := e.db.ExecContext(ctx,
		`INSERT INTO orders (user_id, created_at, status) VALUES (?, ?, 'Processing')`, userID, now)
	require.NoError(t, err)
	orderID, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = e.db.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, name, price, quantity, created_at) VALUES (?, ?, 'item', ?, ?, ?)`,
		orderID, productID, price, quantity, now)
	require.NoError(t, err)
}

// =============================================================================
// Browser
// =============================================================================

// browser is an HTTP client with a cookie jar that does not follow
// redirects, so tests can inspect each hop.
type browser struct {
	t      *testing.T
	env    *testEnv
	client *http.Client
}

type response struct {
	Status   int
	Location string
	Body     string
	Cookies  []*http.Cookie
}

func (e *testEnv) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		env: e,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) *response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)

	return &response{
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
		Body:     string(body),
		Cookies:  resp.Cookies(),
	}
}

func (b *browser) get(path string) *response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.env.server.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) *response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.env.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// sessionKey returns the sessionid cookie currently held by the browser.
func (b *browser) sessionKey() string {
	u, _ := url.Parse(b.env.server.URL)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == b.env.authCfg.CookieName {
			return c.Value
		}
	}
	return ""
}

func (b *browser) login(username string) {
	b.t.Helper()
	resp := b.post(loginURL, url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(b.t, http.StatusFound, resp.Status, resp.Body)
}
