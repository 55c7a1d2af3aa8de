package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// PaymentStatus tracks whether the order has been paid.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

// ReturnStatus is the customer-return sub-state. The empty value means no
// return has been requested.
type ReturnStatus string

const (
	ReturnNone     ReturnStatus = ""
	ReturnPending  ReturnStatus = "Pending"
	ReturnApproved ReturnStatus = "Approved"
	ReturnRejected ReturnStatus = "Rejected"
)

// validNext encodes the order status machine. Delivered and Cancelled are
// terminal.
var validNext = map[Status]map[Status]bool{
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether the status change is allowed.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// ParseStatus validates a status string from the wire, case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", errors.Errorf("unknown order status %q", s)
}

// Sentinel errors for order operations.
var (
	ErrNotFound        = errors.New("order not found")
	ErrEmptyItems      = errors.New("order items required")
	ErrNotDelivered    = errors.New("order has not been delivered")
	ErrReturnRequested = errors.New("a return has already been requested for this order")
	ErrNoReturn        = errors.New("no pending return request on this order")
)

// InvalidTransitionError reports a disallowed status change.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// StockConflict describes one order line that failed its stock precondition.
type StockConflict struct {
	ProductID string
	Requested int
	Available int
}

// StockConflictError is returned when any line of an order cannot reserve
// stock. The whole order is rejected; no stock is decremented.
type StockConflictError struct {
	Conflicts []StockConflict
}

func (e *StockConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", c.ProductID, c.Requested, c.Available)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// ReconciliationError is the distinguished fatal condition for a store that
// decremented stock but failed to write the order record. It demands manual
// follow-up and must never be swallowed or retried silently.
type ReconciliationError struct {
	OrderID string
	Err     error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("stock committed but order %s was not recorded: %v", e.OrderID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// Item is a frozen snapshot of a purchased cart line. Name, image, and price
// are copied at commit time and stay immune to later catalog edits.
type Item struct {
	CartItemID   string          `json:"cartItemId,omitempty"`
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	SelectedSize string          `json:"selectedSize,omitempty"`
}

// ShippingInfo is the delivery address captured with the order.
type ShippingInfo struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Order is a committed purchase.
type Order struct {
	ID               string
	UserID           string
	Items            []Item
	ShippingInfo     ShippingInfo
	PaymentMethod    string
	PaymentStatus    PaymentStatus
	Subtotal         decimal.Decimal
	CampaignDiscount decimal.Decimal
	CouponCode       string
	CouponDiscount   decimal.Decimal
	TaxAmount        decimal.Decimal
	ShippingCost     decimal.Decimal
	Total            decimal.Decimal
	Status           Status
	ReturnStatus     ReturnStatus
	ReturnReason     string
	CreatedAt        time.Time
}

// ReservationLine is one (product, quantity) pair to reserve at commit.
type ReservationLine struct {
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for orders.
//
// CreateWithReservation must be all-or-nothing: every line's stock is
// conditionally decremented (stock >= quantity) and the order row written in
// one transaction. When any line fails its precondition the implementation
// returns *StockConflictError and commits nothing. An implementation that
// cannot provide multi-row atomicity must return *ReconciliationError when
// the order write fails after stock was already decremented.
type Repository interface {
	CreateWithReservation(ctx context.Context, o *Order, lines []ReservationLine) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	// Update persists status, payment status, and return fields.
	Update(ctx context.Context, o *Order) error
}
