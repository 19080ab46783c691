package server

import (
	"fmt"
	"net/http"

	"github.com/aymshop/storefront/internal/models"
	pkgmdw "github.com/aymshop/storefront/internal/server/middleware"
	"github.com/aymshop/storefront/internal/usecase"
	"github.com/labstack/echo/v4"
)

// SessionController exposes one shopper's Store over HTTP.
type SessionController interface {
	CreateSession(c echo.Context, req createSessionRequest) (*sessionView, error)
	SearchProducts(c echo.Context, req searchRequest) (*productPage, error)
	GetProduct(c echo.Context, req productRequest) (*models.Product, error)
	GetCategories(c echo.Context, req sessionRequest) (*categoriesView, error)

	GetCart(c echo.Context, req sessionRequest) (*cartView, error)
	ClearCart(c echo.Context, req sessionRequest) (*cartView, error)
	AddCartItem(c echo.Context, req addCartItemRequest) (*cartView, error)
	UpdateCartItem(c echo.Context, req updateCartItemRequest) (*cartView, error)
	RemoveCartItem(c echo.Context, req productRequest) (*cartView, error)

	GetWishlist(c echo.Context, req sessionRequest) (*wishlistView, error)
	ToggleWishlist(c echo.Context, req productRequest) (*wishlistView, error)
	RemoveWishlistItem(c echo.Context, req productRequest) (*wishlistView, error)

	Checkout(c echo.Context, req checkoutRequest) (*usecase.CheckoutReceipt, error)
	ShareOrder(c echo.Context, req sessionRequest) (*shareView, error)
	ReloadCatalog(c echo.Context, req sessionRequest) (*sessionView, error)
}

type createSessionRequest struct {
	DeviceID string `json:"device_id" header:"X-Device-ID" validate:"max=128"`
}

type sessionRequest struct {
	SessionID string `param:"session_id" validate:"required"`
}

type productRequest struct {
	SessionID string `param:"session_id" validate:"required"`
	ProductID string `param:"product_id" validate:"required"`
}

type searchRequest struct {
	SessionID string `param:"session_id" validate:"required"`
	Query     string `query:"q"`
	Category  string `query:"category"`
	Page      int    `query:"page" validate:"gte=0"`
}

type addCartItemRequest struct {
	SessionID string `param:"session_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	SessionID string `param:"session_id" validate:"required"`
	ProductID string `param:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	SessionID string `param:"session_id" validate:"required"`
	Name      string `json:"name" validate:"notblank"`
	Phone     string `json:"phone" validate:"notblank"`
	Address   string `json:"address" validate:"notblank"`
}

type sessionView struct {
	ID            string   `json:"id"`
	DeviceID      string   `json:"device_id"`
	ProductCount  int      `json:"product_count"`
	Categories    []string `json:"categories"`
	TotalPages    int      `json:"total_pages"`
	CartCount     int      `json:"cart_count"`
	WishlistCount int      `json:"wishlist_count"`
}

type productPage struct {
	Products   []models.Product `json:"products"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
	Category   string           `json:"category"`
}

type categoriesView struct {
	Categories []string `json:"categories"`
	Current    string   `json:"current"`
}

type cartView struct {
	Items     []models.CartItem `json:"items"`
	Count     int               `json:"count"`
	Total     models.Amount     `json:"total"`
	TotalText string            `json:"total_text"`
}

type wishlistView struct {
	Products []models.Product `json:"products"`
	Count    int              `json:"count"`
}

type shareView struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

type sessionController struct {
	sessions usecase.SessionRegistry
}

func NewSessionController(sessions usecase.SessionRegistry) SessionController {
	return &sessionController{sessions: sessions}
}

func (h *sessionController) CreateSession(c echo.Context, req createSessionRequest) (*sessionView, error) {
	sess, err := h.sessions.Create(c.Request().Context(), req.DeviceID)
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

func (h *sessionController) SearchProducts(c echo.Context, req searchRequest) (*productPage, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	store := sess.Store
	store.SearchProducts(req.Query, req.Category)
	if req.Page > 0 {
		store.SetPage(req.Page)
	}
	return &productPage{
		Products:   store.GetPaginatedProducts(),
		Page:       store.CurrentPage(),
		TotalPages: store.GetTotalPages(),
		Total:      store.ResultCount(),
		Category:   store.CurrentCategory(),
	}, nil
}

func (h *sessionController) GetProduct(c echo.Context, req productRequest) (*models.Product, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	p, ok := sess.Store.GetProductByID(req.ProductID)
	if !ok {
		return nil, productNotFound(req.ProductID)
	}
	return &p, nil
}

func (h *sessionController) GetCategories(c echo.Context, req sessionRequest) (*categoriesView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	return &categoriesView{
		Categories: sess.Store.Categories(),
		Current:    sess.Store.CurrentCategory(),
	}, nil
}

func (h *sessionController) GetCart(c echo.Context, req sessionRequest) (*cartView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	return newCartView(sess.Store), nil
}

func (h *sessionController) ClearCart(c echo.Context, req sessionRequest) (*cartView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Store.ClearCart(c.Request().Context())
	return newCartView(sess.Store), nil
}

func (h *sessionController) AddCartItem(c echo.Context, req addCartItemRequest) (*cartView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidInput)
	}
	if !sess.Store.AddToCart(c.Request().Context(), req.ProductID, quantity) {
		return nil, productNotFound(req.ProductID)
	}
	return newCartView(sess.Store), nil
}

func (h *sessionController) UpdateCartItem(c echo.Context, req updateCartItemRequest) (*cartView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Store.UpdateCartQuantity(c.Request().Context(), req.ProductID, req.Quantity) {
		return nil, cartItemNotFound(req.ProductID)
	}
	return newCartView(sess.Store), nil
}

func (h *sessionController) RemoveCartItem(c echo.Context, req productRequest) (*cartView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Store.RemoveFromCart(c.Request().Context(), req.ProductID) {
		return nil, cartItemNotFound(req.ProductID)
	}
	return newCartView(sess.Store), nil
}

func (h *sessionController) GetWishlist(c echo.Context, req sessionRequest) (*wishlistView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	return newWishlistView(sess.Store), nil
}

func (h *sessionController) ToggleWishlist(c echo.Context, req productRequest) (*wishlistView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Store.ToggleWishlist(c.Request().Context(), req.ProductID) {
		return nil, productNotFound(req.ProductID)
	}
	return newWishlistView(sess.Store), nil
}

func (h *sessionController) RemoveWishlistItem(c echo.Context, req productRequest) (*wishlistView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Store.RemoveFromWishlist(c.Request().Context(), req.ProductID) {
		return nil, fmt.Errorf("wishlist entry %s: %w", req.ProductID, models.ErrNotFound)
	}
	return newWishlistView(sess.Store), nil
}

// Checkout runs a whole attempt: begin, submit customer info, reconcile stock.
// A stock failure answers 409 with the receipt so the bill can still be shown.
func (h *sessionController) Checkout(c echo.Context, req checkoutRequest) (*usecase.CheckoutReceipt, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Checkout.Begin(); err != nil {
		return nil, err
	}
	receipt, err := sess.Checkout.SubmitCustomerInfo(c.Request().Context(), models.CustomerInfo{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return nil, err
	}
	if !receipt.Result.Success {
		return nil, &pkgmdw.ResponseError{
			Status:  http.StatusConflict,
			Err:     models.ErrStockInsufficient,
			Code:    "FailedPrecondition",
			Message: "insufficient stock",
			Data:    receipt,
		}
	}
	return receipt, nil
}

func (h *sessionController) ShareOrder(c echo.Context, req sessionRequest) (*shareView, error) {
	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}
	msg, link, err := sess.Checkout.Share(c.Request().Context())
	if err != nil {
		return nil, err
	}
	return &shareView{URL: link, Message: msg}, nil
}

func (h *sessionController) ReloadCatalog(c echo.Context, req sessionRequest) (*sessionView, error) {
	sess, err := h.sessions.Reload(c.Request().Context(), req.SessionID)
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

func newSessionView(sess *usecase.Session) *sessionView {
	return &sessionView{
		ID:            sess.ID,
		DeviceID:      sess.DeviceID,
		ProductCount:  len(sess.Store.Products()),
		Categories:    sess.Store.Categories(),
		TotalPages:    sess.Store.GetTotalPages(),
		CartCount:     sess.Store.GetCartItemCount(),
		WishlistCount: sess.Store.GetWishlistCount(),
	}
}

func newCartView(store *usecase.Store) *cartView {
	total := store.GetCartTotal()
	return &cartView{
		Items:     store.Cart(),
		Count:     store.GetCartItemCount(),
		Total:     total,
		TotalText: models.FormatPrice(total),
	}
}

func newWishlistView(store *usecase.Store) *wishlistView {
	return &wishlistView{
		Products: store.GetWishlistProducts(),
		Count:    store.GetWishlistCount(),
	}
}

func productNotFound(id string) error {
	return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
}

func cartItemNotFound(id string) error {
	return fmt.Errorf("cart item %s: %w", id, models.ErrNotFound)
}
