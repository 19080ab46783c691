package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/pkg/tmplx"
	"github.com/aymshop/storefront/pkg/util"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type CheckoutState string

const (
	CheckoutIdle            CheckoutState = "idle"
	CheckoutInfoCollection  CheckoutState = "info_collection"
	CheckoutStockValidation CheckoutState = "stock_validation"
	CheckoutCommitted       CheckoutState = "committed"
	CheckoutFailed          CheckoutState = "failed"
)

const orderMessageText = `📱 *سفارش جدید از {{.ShopName}}*

🔖 *شماره بل:* {{.Serial}}

👤 *مشتری:* {{default "مشتری" .Customer.Name}}
📞 *شماره تماس:* {{default "بدون شماره" .Customer.Phone}}
📍 *آدرس:* {{default "بدون آدرس" .Customer.Address}}

🛒 *اقلام سفارش:*
{{range .Lines}}{{.Index}}. {{.Name}} - {{.Quantity}} عدد - {{money .Total}}
{{end}}

💰 *مبلغ کل:* {{money .Total}}

📅 *تاریخ:* {{.Date}}
⏰ *زمان:* {{.Time}}

_لطفاً پس از بررسی موجودی، سفارش را تایید کنید._`

var orderMessage = tmplx.MustParse("order_message", orderMessageText,
	tmplx.WithTemplateFunc("money", models.FormatPrice))

// SerialFunc produces a bill serial for the given instant.
type SerialFunc func(now time.Time) string

// NewSerialFunc returns serials shaped PREFIX-MM-NNNN-DD with a random four digit middle.
func NewSerialFunc(prefix string) SerialFunc {
	return func(now time.Time) string {
		return fmt.Sprintf("%s-%02d-%04d-%02d", prefix, int(now.Month()), rand.IntN(10000), now.Day())
	}
}

type CheckoutOptions struct {
	Order     config.OrderConfig
	SessionID string
	Publisher OrderPublisher
	Serial    SerialFunc
	Now       func() time.Time
}

// CheckoutReceipt is the outcome of one checkout attempt. Bill is issued even when
// stock validation fails so the customer can still share it with support.
type CheckoutReceipt struct {
	State  CheckoutState         `json:"state"`
	Result models.CheckoutResult `json:"result"`
	Bill   models.Bill           `json:"bill"`
}

// CheckoutFlow drives one session through
// idle, info collection, stock validation and then committed or failed.
type CheckoutFlow struct {
	mu sync.Mutex

	store    *Store
	opts     CheckoutOptions
	validate *validator.Validate
	log      *zap.SugaredLogger

	state CheckoutState
	bill  *models.Bill
}

func NewCheckoutFlow(store *Store, opts CheckoutOptions) *CheckoutFlow {
	if opts.Serial == nil {
		prefix := opts.Order.SerialPrefix
		if prefix == "" {
			prefix = "AYM"
		}
		opts.Serial = NewSerialFunc(prefix)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CheckoutFlow{
		store:    store,
		opts:     opts,
		validate: validator.New(),
		log:      logger.MustNamed("checkout"),
		state:    CheckoutIdle,
	}
}

func (f *CheckoutFlow) State() CheckoutState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Begin starts a new attempt. The bill of the previous attempt stays shareable until
// the new attempt issues its own.
func (f *CheckoutFlow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == CheckoutStockValidation {
		return fmt.Errorf("%w: checkout already in progress", models.ErrInvalidInput)
	}
	if f.store.GetCartItemCount() == 0 {
		return fmt.Errorf("%w: cart is empty", models.ErrInvalidInput)
	}
	f.state = CheckoutInfoCollection
	return nil
}

// SubmitCustomerInfo validates the customer, issues a bill serial and reconciles stock.
func (f *CheckoutFlow) SubmitCustomerInfo(ctx context.Context, info models.CustomerInfo) (*CheckoutReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != CheckoutInfoCollection {
		return nil, fmt.Errorf("%w: checkout not started", models.ErrInvalidInput)
	}
	info = info.Trimmed()
	if err := f.validate.Struct(info); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
	}

	f.state = CheckoutStockValidation
	now := f.opts.Now()
	serial := f.opts.Serial(now)
	f.store.SetCustomerInfo(info)
	f.store.SetBillSerial(serial)

	cart := f.store.Cart()
	bill := models.NewBill(serial, info, cart, now)
	f.bill = &bill

	result := f.store.Checkout(ctx)
	if !result.Success {
		f.state = CheckoutFailed
		f.log.Infow("checkout rejected", "session", f.opts.SessionID, "serial", serial,
			"out_of_stock", result.OutOfStockItems)
		return &CheckoutReceipt{State: f.state, Result: result, Bill: bill}, nil
	}

	f.state = CheckoutCommitted
	f.log.Infow("checkout committed", "session", f.opts.SessionID, "serial", serial, "total", int64(bill.Total))
	f.publish(ctx, bill, now)
	return &CheckoutReceipt{State: f.state, Result: result, Bill: bill}, nil
}

// Bill returns the bill of the latest attempt, if any.
func (f *CheckoutFlow) Bill() (models.Bill, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bill == nil {
		return models.Bill{}, false
	}
	return *f.bill, true
}

func (f *CheckoutFlow) publish(ctx context.Context, bill models.Bill, now time.Time) {
	if f.opts.Publisher == nil {
		return
	}
	event := models.OrderEvent{
		Pattern:   models.OrderConfirmedPattern,
		SessionID: f.opts.SessionID,
		Bill:      bill,
		CreatedAt: now,
	}
	if err := f.opts.Publisher.PublishOrder(ctx, event); err != nil {
		f.log.Errorw("publish order failed", "serial", bill.Serial, "error", err)
	}
}

// OrderMessage renders the text shared with the shop from the bill of the latest
// attempt, committed or not. Without a bill it falls back to the live cart under the
// store's serial.
func (f *CheckoutFlow) OrderMessage(ctx context.Context) (string, error) {
	bill, err := f.shareBill()
	if err != nil {
		return "", err
	}
	msg, err := orderMessage.RenderString(map[string]any{
		"ShopName": f.opts.Order.ShopName,
		"Serial":   bill.Serial,
		"Customer": bill.Customer,
		"Lines":    bill.Lines,
		"Total":    bill.Total,
		"Date":     bill.IssuedAt.Format(time.DateOnly),
		"Time":     bill.IssuedAt.Format(time.TimeOnly),
	})
	if err != nil {
		return "", fmt.Errorf("render order message: %w", err)
	}
	return msg, nil
}

// ShareLink returns the WhatsApp click-to-chat URL carrying the order message.
func (f *CheckoutFlow) ShareLink(ctx context.Context) (string, error) {
	_, link, err := f.Share(ctx)
	return link, err
}

// Share renders the order message once and returns it with its click-to-chat URL.
func (f *CheckoutFlow) Share(ctx context.Context) (msg, link string, err error) {
	msg, err = f.OrderMessage(ctx)
	if err != nil {
		return "", "", err
	}
	base := strings.TrimRight(f.opts.Order.WhatsAppBaseURL, "/")
	return msg, base + "/" + f.opts.Order.WhatsAppNumber + "?text=" + util.EncodeURIComponent(msg), nil
}

func (f *CheckoutFlow) shareBill() (models.Bill, error) {
	if bill, ok := f.Bill(); ok {
		return bill, nil
	}
	serial := f.store.BillSerial()
	if serial == "" {
		return models.Bill{}, fmt.Errorf("%w: no bill issued yet", models.ErrInvalidInput)
	}
	cart := f.store.Cart()
	if len(cart) == 0 {
		return models.Bill{}, fmt.Errorf("%w: order has no items", models.ErrInvalidInput)
	}
	return models.NewBill(serial, f.store.CustomerInfo(), cart, f.opts.Now()), nil
}
