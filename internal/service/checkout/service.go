package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"glow-storefront/internal/domain"
	"glow-storefront/internal/logging"
	"glow-storefront/internal/money"
	cartsvc "glow-storefront/internal/service/cart"
)

// ErrEmptySelection is returned when nothing in the cart is selected.
var ErrEmptySelection = errors.New("no items selected for checkout")

type cartStore interface {
	TakeSelected() []domain.CartEntry
}

// Service places orders locally: the selected entries leave the cart and an
// order summary is returned. Nothing is sent to an external system.
type Service struct {
	cart   cartStore
	logger logrus.FieldLogger
	now    func() time.Time
	newID  func() string
}

func New(cart cartStore, logger logrus.FieldLogger) *Service {
	return &Service{
		cart:   cart,
		logger: logging.OrDiscard(logger).WithField("component", "checkout"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (s *Service) PlaceOrder(_ context.Context) (*domain.Order, error) {
	items := s.cart.TakeSelected()
	if len(items) == 0 {
		return nil, ErrEmptySelection
	}
	order := &domain.Order{
		ID:        s.newID(),
		Items:     items,
		ItemCount: cartsvc.CountItems(items),
		Total:     cartsvc.SumLines(items),
		PlacedAt:  s.now().UTC(),
	}
	s.logger.WithFields(logrus.Fields{
		"orderId":   order.ID,
		"lines":     len(order.Items),
		"itemCount": order.ItemCount,
		"total":     money.Format(order.Total),
	}).Info("order placed")
	return order, nil
}
