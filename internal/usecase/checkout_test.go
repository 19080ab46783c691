package usecase

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkoutNow = time.Date(2025, time.March, 7, 14, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrder(_ context.Context, event models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func newTestFlow(store *Store, pub OrderPublisher) *CheckoutFlow {
	return NewCheckoutFlow(store, CheckoutOptions{
		Order: config.OrderConfig{
			ShopName:        "فروشگاه آنلاین AYM",
			WhatsAppNumber:  "93789281770",
			WhatsAppBaseURL: "https://wa.me/",
		},
		SessionID: "s1",
		Publisher: pub,
		Serial:    func(time.Time) string { return "AYM-03-0042-07" },
		Now:       func() time.Time { return checkoutNow },
	})
}

var customer = models.CustomerInfo{Name: " Ahmad ", Phone: "0700", Address: "Kabul"}

func TestSerialFunc(t *testing.T) {
	serial := NewSerialFunc("AYM")(checkoutNow)
	assert.Regexp(t, regexp.MustCompile(`^AYM-03-\d{4}-07$`), serial)
}

func TestCheckoutFlow_Committed(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 5))
	require.True(t, store.AddToCart(ctx, "a", 3))
	pub := &recordingPublisher{}
	flow := newTestFlow(store, pub)

	assert.Equal(t, CheckoutIdle, flow.State())
	require.NoError(t, flow.Begin())
	assert.Equal(t, CheckoutInfoCollection, flow.State())

	receipt, err := flow.SubmitCustomerInfo(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, CheckoutCommitted, receipt.State)
	assert.True(t, receipt.Result.Success)
	assert.Equal(t, "AYM-03-0042-07", receipt.Bill.Serial)
	assert.Equal(t, "Ahmad", receipt.Bill.Customer.Name)
	assert.Equal(t, models.Amount(3000), receipt.Bill.Total)

	assert.Equal(t, "AYM-03-0042-07", store.BillSerial())
	assert.Equal(t, "Ahmad", store.CustomerInfo().Name)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.OrderConfirmedPattern, pub.events[0].Pattern)
	assert.Equal(t, "s1", pub.events[0].SessionID)

	bill, ok := flow.Bill()
	require.True(t, ok)
	assert.Equal(t, receipt.Bill, bill)
}

func TestCheckoutFlow_Failed(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 1), product("b", "Beta", 0))
	store.AddToCart(ctx, "a", 1)
	store.AddToCart(ctx, "b", 2)
	pub := &recordingPublisher{}
	flow := newTestFlow(store, pub)

	require.NoError(t, flow.Begin())
	receipt, err := flow.SubmitCustomerInfo(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, CheckoutFailed, receipt.State)
	assert.Equal(t, []string{"Beta"}, receipt.Result.OutOfStockItems)
	assert.NotEmpty(t, receipt.Bill.Serial)
	assert.Empty(t, pub.events)

	// a new attempt can start after a failure
	require.NoError(t, flow.Begin())
	assert.Equal(t, CheckoutInfoCollection, flow.State())
}

func TestCheckoutFlow_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 1))
		err := newTestFlow(store, nil).Begin()
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("submit before begin", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 1))
		_, err := newTestFlow(store, nil).SubmitCustomerInfo(ctx, customer)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("blank customer fields", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 1))
		store.AddToCart(ctx, "a", 1)
		flow := newTestFlow(store, nil)
		require.NoError(t, flow.Begin())

		_, err := flow.SubmitCustomerInfo(ctx, models.CustomerInfo{Name: "x", Phone: "  ", Address: "y"})
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		assert.Equal(t, CheckoutInfoCollection, flow.State())
		assert.Empty(t, store.BillSerial())
	})
}

func TestCheckoutFlow_PublishErrorIsLogged(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 1))
	store.AddToCart(ctx, "a", 1)
	flow := newTestFlow(store, &recordingPublisher{err: errors.New("broker down")})

	require.NoError(t, flow.Begin())
	receipt, err := flow.SubmitCustomerInfo(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, CheckoutCommitted, receipt.State)
}

func TestCheckoutFlow_ShareLink(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a bill", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 1))
		store.AddToCart(ctx, "a", 1)
		_, err := newTestFlow(store, nil).ShareLink(ctx)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("uses the committed snapshot", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 5), product("b", "Beta", 5))
		store.AddToCart(ctx, "a", 2)
		store.AddToCart(ctx, "b", 1)
		flow := newTestFlow(store, nil)
		require.NoError(t, flow.Begin())
		_, err := flow.SubmitCustomerInfo(ctx, customer)
		require.NoError(t, err)
		store.ClearCart(ctx)

		msg, err := flow.OrderMessage(ctx)
		require.NoError(t, err)
		assert.Contains(t, msg, "*شماره بل:* AYM-03-0042-07")
		assert.Contains(t, msg, "*مشتری:* Ahmad")
		assert.Contains(t, msg, "1. Alpha - 2 عدد - 2,000 افغانی\n")
		assert.Contains(t, msg, "2. Beta - 1 عدد - 1,000 افغانی\n")
		assert.Contains(t, msg, "*مبلغ کل:* 3,000 افغانی")
		assert.Contains(t, msg, "*تاریخ:* 2025-03-07")
		assert.Contains(t, msg, "*زمان:* 14:30:00")
		assert.True(t, strings.HasSuffix(msg, "_لطفاً پس از بررسی موجودی، سفارش را تایید کنید._"))

		link, err := flow.ShareLink(ctx)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(link, "https://wa.me/93789281770?text="))
		assert.NotContains(t, link, "+")

		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, msg, u.Query().Get("text"))
	})

	t.Run("follows the latest attempt after a failure", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 5), product("b", "Beta", 0))
		store.AddToCart(ctx, "a", 1)

		serials := []string{"AYM-03-0001-07", "AYM-03-0002-07"}
		flow := newTestFlow(store, nil)
		flow.opts.Serial = func(time.Time) string {
			serial := serials[0]
			serials = serials[1:]
			return serial
		}

		require.NoError(t, flow.Begin())
		receipt, err := flow.SubmitCustomerInfo(ctx, customer)
		require.NoError(t, err)
		require.Equal(t, CheckoutCommitted, receipt.State)

		store.ClearCart(ctx)
		store.AddToCart(ctx, "b", 2)
		require.NoError(t, flow.Begin())
		receipt, err = flow.SubmitCustomerInfo(ctx, customer)
		require.NoError(t, err)
		require.Equal(t, CheckoutFailed, receipt.State)

		msg, link, err := flow.Share(ctx)
		require.NoError(t, err)
		assert.Contains(t, msg, "*شماره بل:* AYM-03-0002-07")
		assert.Contains(t, msg, "1. Beta - 2 عدد - 2,000 افغانی\n")
		assert.NotContains(t, msg, "Alpha")
		assert.Contains(t, msg, "*مبلغ کل:* 2,000 افغانی")

		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, msg, u.Query().Get("text"))
	})

	t.Run("keeps the last bill while a new attempt collects info", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 5))
		store.AddToCart(ctx, "a", 1)
		flow := newTestFlow(store, nil)
		require.NoError(t, flow.Begin())
		_, err := flow.SubmitCustomerInfo(ctx, customer)
		require.NoError(t, err)

		store.AddToCart(ctx, "a", 3)
		require.NoError(t, flow.Begin())
		msg, err := flow.OrderMessage(ctx)
		require.NoError(t, err)
		assert.Contains(t, msg, "1. Alpha - 1 عدد")
	})

	t.Run("falls back to the live cart with default customer text", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 5))
		store.AddToCart(ctx, "a", 1)
		store.SetBillSerial("AYM-01-0001-01")

		msg, err := newTestFlow(store, nil).OrderMessage(ctx)
		require.NoError(t, err)
		assert.Contains(t, msg, "*مشتری:* مشتری")
		assert.Contains(t, msg, "*شماره تماس:* بدون شماره")
		assert.Contains(t, msg, "*آدرس:* بدون آدرس")
		assert.Contains(t, msg, "1. Alpha - 1 عدد")
	})

	t.Run("nothing to share", func(t *testing.T) {
		store, _ := newTestStore(t, config.CheckoutTwoPhase, product("a", "Alpha", 5))
		store.SetBillSerial("AYM-01-0001-01")
		_, err := newTestFlow(store, nil).ShareLink(ctx)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}
