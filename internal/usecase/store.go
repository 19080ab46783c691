package usecase

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/internal/repo/mirror"
	"github.com/aymshop/storefront/pkg/util"
	"go.uber.org/zap"
)

const defaultItemsPerPage = 20

type StoreOptions struct {
	ItemsPerPage int
	CheckoutMode string
	Mirror       mirror.Store
	// SessionScope namespaces cart, original cart and products keys.
	SessionScope string
	// DeviceScope namespaces the wishlist so it outlives a session.
	DeviceScope string
}

// Store holds the catalog, cart, wishlist and checkout state of one session.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	opts StoreOptions
	log  *zap.SugaredLogger

	products        []models.Product
	categories      []string
	results         []int // indices into products
	currentPage     int
	currentCategory string
	currentQuery    string
	cart            []models.CartItem
	wishlist        []string
	customerInfo    models.CustomerInfo
	billSerial      string
}

func NewStore(opts StoreOptions) *Store {
	if opts.ItemsPerPage <= 0 {
		opts.ItemsPerPage = defaultItemsPerPage
	}
	if opts.CheckoutMode == "" {
		opts.CheckoutMode = config.CheckoutTwoPhase
	}
	if opts.Mirror == nil {
		opts.Mirror = mirror.NewMemoryStore()
	}
	s := &Store{
		opts:            opts,
		log:             logger.MustNamed("store"),
		currentPage:     1,
		currentCategory: models.CategoryAll,
	}
	s.recompute()
	return s
}

// ReplaceProducts swaps the whole catalog and rebuilds categories and the current view.
func (s *Store) ReplaceProducts(ctx context.Context, products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = models.CloneProducts(products)
	s.recompute()
	s.persist(ctx, mirror.KeyProducts, s.sessionKey(mirror.KeyProducts), s.products)
}

// LoadWishlist restores the mirrored wishlist for the device scope.
func (s *Store) LoadWishlist(ctx context.Context) {
	var ids []string
	ok, err := mirror.LoadJSON(ctx, s.opts.Mirror, s.deviceKey(mirror.KeyWishlist), &ids)
	if err != nil {
		s.log.Warnw("load wishlist failed", "error", err)
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlist = s.wishlist[:0]
	for _, id := range ids {
		if !slices.Contains(s.wishlist, id) {
			s.wishlist = append(s.wishlist, id)
		}
	}
}

func (s *Store) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneProducts(s.products)
}

func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

func (s *Store) GetProductByID(id string) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, false
	}
	return s.products[i].Clone(), true
}

// SearchProducts filters the full catalog by category and a case-insensitive substring
// and moves back to the first page.
func (s *Store) SearchProducts(query, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if models.IsAllCategory(category) {
		category = models.CategoryAll
	}
	s.currentQuery = query
	s.currentCategory = category
	s.currentPage = 1
	s.filter()
}

func (s *Store) CurrentCategory() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCategory
}

func (s *Store) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
}

// SetPage moves the page window. Pages below 1 are clamped to 1; pages past the end
// are allowed and produce an empty window.
func (s *Store) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPage = max(page, 1)
}

func (s *Store) GetPaginatedProducts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := (s.currentPage - 1) * s.opts.ItemsPerPage
	end := s.currentPage * s.opts.ItemsPerPage
	if start >= len(s.results) {
		return []models.Product{}
	}
	end = min(end, len(s.results))

	out := make([]models.Product, 0, end-start)
	for _, i := range s.results[start:end] {
		out = append(out, s.products[i].Clone())
	}
	return out
}

func (s *Store) GetTotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (len(s.results) + s.opts.ItemsPerPage - 1) / s.opts.ItemsPerPage
}

// ResultCount is the number of products matching the current filter.
func (s *Store) ResultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// GetWishlistProducts returns wishlisted products in catalog order.
func (s *Store) GetWishlistProducts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Product{}
	for _, p := range s.products {
		if slices.Contains(s.wishlist, p.ID) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Store) IsInWishlist(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.wishlist, id)
}

func (s *Store) GetWishlistCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wishlist)
}

func (s *Store) Cart() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneCart(s.cart)
}

func (s *Store) GetCartItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.cart {
		n += item.Quantity
	}
	return n
}

func (s *Store) GetCartTotal() models.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartTotal(s.cart)
}

func (s *Store) ParsePrice(v any) models.Amount {
	return models.ParsePrice(v)
}

func (s *Store) FormatPrice(v any) string {
	return models.FormatPrice(v)
}

// AddToCart adds quantity units of a known product. Stock is not checked here.
func (s *Store) AddToCart(ctx context.Context, productID string, quantity int) bool {
	if quantity <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pi := s.productIndex(productID)
	if pi < 0 {
		return false
	}
	if ci := s.cartIndex(productID); ci >= 0 {
		s.cart[ci].Quantity += quantity
	} else {
		s.cart = append(s.cart, models.NewCartItem(s.products[pi], quantity))
	}
	s.saveCart(ctx)
	return true
}

// UpdateCartQuantity sets the quantity of a cart entry; zero or less removes it.
// Both the product and the cart entry must exist.
func (s *Store) UpdateCartQuantity(ctx context.Context, productID string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.productIndex(productID) < 0 {
		return false
	}
	ci := s.cartIndex(productID)
	if ci < 0 {
		return false
	}
	if quantity <= 0 {
		s.cart = slices.Delete(s.cart, ci, ci+1)
	} else {
		s.cart[ci].Quantity = quantity
	}
	s.saveCart(ctx)
	return true
}

func (s *Store) RemoveFromCart(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ci := s.cartIndex(productID)
	if ci < 0 {
		return false
	}
	s.cart = slices.Delete(s.cart, ci, ci+1)
	s.saveCart(ctx)
	return true
}

func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = []models.CartItem{}
	s.saveCart(ctx)
}

// ToggleWishlist flips membership of a known product and reports whether it changed.
func (s *Store) ToggleWishlist(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.productIndex(productID) < 0 {
		return false
	}
	if i := slices.Index(s.wishlist, productID); i >= 0 {
		s.wishlist = slices.Delete(s.wishlist, i, i+1)
	} else {
		s.wishlist = append(s.wishlist, productID)
	}
	s.saveWishlist(ctx)
	return true
}

func (s *Store) RemoveFromWishlist(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.wishlist, productID)
	if i < 0 {
		return false
	}
	s.wishlist = slices.Delete(s.wishlist, i, i+1)
	s.saveWishlist(ctx)
	return true
}

// Checkout is the only operation that checks stock. Items whose product is missing
// from the catalog count as out of stock. In two-phase mode nothing is decremented
// unless every item passes; in legacy mode passing items are decremented regardless.
func (s *Store) Checkout(ctx context.Context) models.CheckoutResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res models.CheckoutResult
	if s.opts.CheckoutMode == config.CheckoutLegacy {
		res = s.checkoutLegacy(ctx)
	} else {
		res = s.checkoutTwoPhase(ctx)
	}
	outcome := "committed"
	if !res.Success {
		outcome = "out_of_stock"
	}
	checkoutOutcomes.WithLabelValues(s.opts.CheckoutMode, outcome).Inc()
	return res
}

func (s *Store) checkoutTwoPhase(ctx context.Context) models.CheckoutResult {
	var outOfStock []string
	for _, item := range s.cart {
		pi := s.productIndex(item.ID)
		if pi < 0 || s.products[pi].Stock < item.Quantity {
			outOfStock = append(outOfStock, item.Name)
		}
	}
	if len(outOfStock) > 0 {
		return models.CheckoutResult{OutOfStockItems: outOfStock}
	}

	for _, item := range s.cart {
		s.products[s.productIndex(item.ID)].Stock -= item.Quantity
	}
	s.afterCommit(ctx)
	return models.CheckoutResult{Success: true}
}

func (s *Store) checkoutLegacy(ctx context.Context) models.CheckoutResult {
	var outOfStock []string
	decremented := false
	for _, item := range s.cart {
		pi := s.productIndex(item.ID)
		if pi >= 0 && s.products[pi].Stock >= item.Quantity {
			s.products[pi].Stock -= item.Quantity
			decremented = true
			continue
		}
		outOfStock = append(outOfStock, item.Name)
	}
	if len(outOfStock) > 0 {
		if decremented {
			s.log.Warnw("checkout failed after partial stock decrement",
				"session", s.opts.SessionScope, "out_of_stock", outOfStock)
			s.persist(ctx, mirror.KeyProducts, s.sessionKey(mirror.KeyProducts), s.products)
		}
		return models.CheckoutResult{OutOfStockItems: outOfStock}
	}
	s.afterCommit(ctx)
	return models.CheckoutResult{Success: true}
}

func (s *Store) afterCommit(ctx context.Context) {
	s.persist(ctx, mirror.KeyProducts, s.sessionKey(mirror.KeyProducts), s.products)
	s.persist(ctx, mirror.KeyOriginalCart, s.sessionKey(mirror.KeyOriginalCart), s.cart)
}

func (s *Store) CustomerInfo() models.CustomerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customerInfo
}

func (s *Store) SetCustomerInfo(info models.CustomerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerInfo = info
}

func (s *Store) BillSerial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.billSerial
}

func (s *Store) SetBillSerial(serial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.billSerial = serial
}

func (s *Store) recompute() {
	seen := map[string]bool{}
	s.categories = []string{models.CategoryAllFa}
	for _, p := range s.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			s.categories = append(s.categories, p.Category)
		}
	}
	s.filter()
}

// filter rebuilds results from the full catalog, never from a previous result.
func (s *Store) filter() {
	query := strings.ToLower(strings.TrimSpace(s.currentQuery))
	s.results = s.results[:0]
	for i, p := range s.products {
		if !models.IsAllCategory(s.currentCategory) && p.Category != s.currentCategory {
			continue
		}
		if query != "" && !matches(p, query) {
			continue
		}
		s.results = append(s.results, i)
	}
}

func matches(p models.Product, query string) bool {
	for _, field := range []string{p.Name, p.Code, p.Description, p.FullDescription} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func (s *Store) productIndex(id string) int {
	return util.IndexFunc(s.products, func(p models.Product) bool { return p.ID == id })
}

func (s *Store) cartIndex(id string) int {
	return util.IndexFunc(s.cart, func(c models.CartItem) bool { return c.ID == id })
}

func (s *Store) saveCart(ctx context.Context) {
	s.persist(ctx, mirror.KeyCart, s.sessionKey(mirror.KeyCart), s.cart)
}

func (s *Store) saveWishlist(ctx context.Context) {
	s.persist(ctx, mirror.KeyWishlist, s.deviceKey(mirror.KeyWishlist), s.wishlist)
}

// persist mirrors v under key. Failures are logged and the in-memory state stays authoritative.
func (s *Store) persist(ctx context.Context, name, key string, v any) {
	if err := mirror.SaveJSON(ctx, s.opts.Mirror, key, v); err != nil {
		mirrorWriteFailures.WithLabelValues(name).Inc()
		s.log.Warnw("mirror write failed", "key", key, "error", err)
	}
}

func (s *Store) sessionKey(name string) string {
	return mirror.Key(s.opts.SessionScope, name)
}

func (s *Store) deviceKey(name string) string {
	return mirror.Key(s.opts.DeviceScope, name)
}

func cartTotal(cart []models.CartItem) models.Amount {
	var total models.Amount
	for _, item := range cart {
		total += item.LineTotal()
	}
	return total
}
