package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/northmill/storefront/internal/collab"
	"github.com/northmill/storefront/internal/domain/cart"
	"github.com/northmill/storefront/internal/domain/catalog"
)

// ValidationError reports a malformed PlaceOrder payload. It is raised before
// any mutation is attempted.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing or invalid field: " + e.Field
}

// PlaceOrderRequest holds the checkout payload. Monetary figures are computed
// by the checkout flow and passed through; the committer rounds them to whole
// currency units but does not recompute them.
type PlaceOrderRequest struct {
	UserID           string
	Items            []Item
	ShippingInfo     ShippingInfo
	PaymentMethod    string
	Subtotal         decimal.Decimal
	CampaignDiscount decimal.Decimal
	CouponCode       string
	CouponDiscount   decimal.Decimal
	TaxAmount        decimal.Decimal
	ShippingCost     decimal.Decimal
	Total            decimal.Decimal
}

// Service commits orders with atomic stock reservation and drives the
// fulfillment and return state machines.
type Service struct {
	orders   Repository
	products catalog.Repository
	carts    cart.Repository
	audit    collab.AuditLog
	notifier collab.Notifier
	email    collab.EmailSender
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	orders Repository,
	products catalog.Repository,
	carts cart.Repository,
	audit collab.AuditLog,
	notifier collab.Notifier,
	email collab.EmailSender,
) *Service {
	return &Service{
		orders:   orders,
		products: products,
		carts:    carts,
		audit:    audit,
		notifier: notifier,
		email:    email,
		now:      time.Now,
	}
}

// PlaceOrder validates the payload, reserves stock for every line and writes
// the order in one atomic commit, then clears the buyer's cart and fires the
// fire-and-forget collaborators. On any stock shortage it returns
// *StockConflictError and nothing is mutated.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	// Refresh the name/image snapshot from the catalog at commit time and
	// verify every product exists.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]Item, len(req.Items))
	lines := make([]ReservationLine, len(req.Items))
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, catalog.ErrNotFound
		}
		item.Name = p.Name
		item.Image = p.Image
		items[i] = item
		lines[i] = ReservationLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o := &Order{
		ID:               uuid.New().String(),
		UserID:           req.UserID,
		Items:            items,
		ShippingInfo:     req.ShippingInfo,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    PaymentPending,
		Subtotal:         req.Subtotal.Round(0),
		CampaignDiscount: req.CampaignDiscount.Round(0),
		CouponCode:       req.CouponCode,
		CouponDiscount:   req.CouponDiscount.Round(0),
		TaxAmount:        req.TaxAmount.Round(0),
		ShippingCost:     req.ShippingCost.Round(0),
		Total:            req.Total.Round(0),
		Status:           StatusProcessing,
		ReturnStatus:     ReturnNone,
		CreatedAt:        s.now(),
	}

	if err := s.orders.CreateWithReservation(ctx, o, lines); err != nil {
		var recErr *ReconciliationError
		if errors.As(err, &recErr) {
			// Stock is gone but the order record is missing. Flag loudly for
			// manual reconciliation; never downgrade to an ordinary failure.
			zctx.From(ctx).Error("RECONCILIATION REQUIRED: stock decremented without order record",
				zap.String("order_id", recErr.OrderID),
				zap.String("user_id", req.UserID),
				zap.Error(recErr.Err),
			)
		}
		return nil, err
	}

	if _, err := s.carts.Clear(ctx, req.UserID); err != nil {
		// The order is committed; a stuck cart is an inconvenience, not a failure.
		zctx.From(ctx).Warn("clear cart after order", zap.String("order_id", o.ID), zap.Error(err))
	}

	s.fireAndForget(ctx, "order placed", func(ctx context.Context) error {
		return s.notifier.NotifyRole(ctx, "admin", collab.Note{
			Title:   "New order",
			Message: "Order " + o.ID + " placed",
			Link:    "/admin/orders/" + o.ID,
		})
	})
	s.fireAndForget(ctx, "order confirmation email", func(ctx context.Context) error {
		return s.email.SendOrderConfirmation(ctx, req.UserID, o.ID)
	})
	s.recordAudit(ctx, req.UserID, "order.place", o.ID, "")

	return o, nil
}

// UpdateStatus moves an order through the fulfillment machine. Marking an
// order Delivered also forces its payment status to Paid.
func (s *Service) UpdateStatus(ctx context.Context, principal, orderID string, to Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	o.Status = to
	if to == StatusDelivered {
		o.PaymentStatus = PaymentPaid
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	s.recordAudit(ctx, principal, "order.status", o.ID, string(to))
	return o, nil
}

// RequestReturn opens a return request on a delivered order. Only one return
// request is allowed per order, whatever its outcome.
func (s *Service) RequestReturn(ctx context.Context, userID, orderID, reason string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status != StatusDelivered {
		return nil, ErrNotDelivered
	}
	if o.ReturnStatus != ReturnNone {
		return nil, ErrReturnRequested
	}

	o.ReturnStatus = ReturnPending
	o.ReturnReason = reason

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	s.fireAndForget(ctx, "return requested", func(ctx context.Context) error {
		return s.notifier.NotifyRole(ctx, "admin", collab.Note{
			Title:   "Return requested",
			Message: "Return requested for order " + o.ID,
			Link:    "/admin/orders/" + o.ID,
		})
	})
	s.recordAudit(ctx, userID, "order.return.request", o.ID, reason)

	return o, nil
}

// UpdateReturnStatus resolves a pending return request.
func (s *Service) UpdateReturnStatus(ctx context.Context, principal, orderID string, approved bool) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.ReturnStatus != ReturnPending {
		return nil, ErrNoReturn
	}

	if approved {
		o.ReturnStatus = ReturnApproved
	} else {
		o.ReturnStatus = ReturnRejected
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	s.recordAudit(ctx, principal, "order.return.resolve", o.ID, string(o.ReturnStatus))
	return o, nil
}

// GetByID returns one order.
func (s *Service) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListByUser returns the user's order history.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// fireAndForget runs a collaborator call whose failure is logged but never
// surfaced to the caller.
func (s *Service) fireAndForget(ctx context.Context, what string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		zctx.From(ctx).Warn("collaborator call failed", zap.String("what", what), zap.Error(err))
	}
}

func (s *Service) recordAudit(ctx context.Context, principal, action, entityID, details string) {
	if err := s.audit.Record(ctx, principal, action, "order", entityID, details); err != nil {
		zctx.From(ctx).Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func validatePlaceOrder(req PlaceOrderRequest) error {
	if req.UserID == "" {
		return &ValidationError{Field: "userId"}
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return &ValidationError{Field: "items.productId"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: "items.quantity"}
		}
	}
	if req.PaymentMethod == "" {
		return &ValidationError{Field: "paymentMethod"}
	}
	si := req.ShippingInfo
	if si.FullName == "" {
		return &ValidationError{Field: "shippingInfo.fullName"}
	}
	if si.Address == "" {
		return &ValidationError{Field: "shippingInfo.address"}
	}
	if si.City == "" {
		return &ValidationError{Field: "shippingInfo.city"}
	}
	if si.Country == "" {
		return &ValidationError{Field: "shippingInfo.country"}
	}
	return nil
}
