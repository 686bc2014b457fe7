package events

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

var _ service.OrderEventPublisher = Fanout(nil)

// Fanout delivers every event to all publishers. A failing publisher does
// not stop the others; their errors are joined.
type Fanout []service.OrderEventPublisher

func (f Fanout) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishOrderCreated(ctx, order); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishOrderStatusChanged(ctx, order, previous); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
