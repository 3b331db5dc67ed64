package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/refurbly/storefront/internal/domain/catalog"
	"github.com/refurbly/storefront/internal/domain/event"
	domain "github.com/refurbly/storefront/internal/domain/order"
	"github.com/refurbly/storefront/internal/domain/pricing"
	"github.com/refurbly/storefront/internal/pkg/logging"
)

var ErrRepository = errors.New("order: repository failure")

const defaultPageSize = 20

type Service struct {
	repo        domain.Repository
	catalog     domcatalog.Repository
	pricing     pricing.Config
	idGenerator IDGenerator
	publisher   event.Publisher
}

func NewService(repo domain.Repository, catalogRepo domcatalog.Repository, pricingCfg pricing.Config,
	idGen IDGenerator, publisher event.Publisher,
) *Service {
	return &Service{
		repo:        repo,
		catalog:     catalogRepo,
		pricing:     pricingCfg,
		idGenerator: idGen,
		publisher:   publisher,
	}
}

type CreateOrderItem struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	Items           []CreateOrderItem
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
}

// CreateOrder converts a cart into a persisted order: it validates every item against
// the catalog before touching anything, snapshots catalog prices into the order,
// prices it, persists it in status pending, then reserves stock per item. The order
// insert is the first durable write; a crash between it and the reservations leaves a
// pending order with unreserved stock, which is accepted in this design.
func (s *Service) CreateOrder(ctx context.Context, userID, userEmail string, in CreateOrderInput) (*domain.Order, error) {
	logger := logging.FromContext(ctx).With("component", "order_service")
	logger.Infow("create_order_start", "user_id", userID, "item_count", len(in.Items))

	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrAccessDenied)
	}
	if len(in.Items) == 0 {
		return nil, domain.ErrNoItems
	}

	// Validate all items before decrementing any, so a later item's failure cannot
	// leave a partial decrement behind.
	items := make([]domain.Item, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		product, err := s.catalog.FindByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, domcatalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domcatalog.ErrUnavailable, it.ProductID)
			}
			return nil, fmt.Errorf("%w: %w", ErrRepository, err)
		}
		if !product.Available() {
			return nil, fmt.Errorf("%w: %s", domcatalog.ErrUnavailable, product.Name)
		}
		if it.Quantity > product.StockCount {
			return nil, fmt.Errorf("%w: %s", domcatalog.ErrInsufficientStock, product.Name)
		}
		items = append(items, domain.Item{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  it.Quantity,
			Image:     product.Image,
		})
	}

	var itemsPrice float64
	for _, it := range items {
		itemsPrice += it.UnitPrice * float64(it.Quantity)
	}
	itemsPrice = pricing.Round2(itemsPrice)
	quote := pricing.Calculate(itemsPrice, s.pricing)

	entity, err := domain.New(s.idGenerator.NewID(), userID, items, in.ShippingAddress, in.PaymentMethod,
		quote.ItemsPrice, quote.ShippingPrice, quote.TaxPrice, quote.TotalPrice)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, entity); err != nil {
		logger.Errorw("order_insert_failed", "order_id", entity.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	if err := s.reserveItems(ctx, entity, items); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		// Notification is best-effort; a publish failure is logged and swallowed.
		if err := s.publisher.Publish(ctx, domain.NewOrderCreatedEvent(entity, userEmail)); err != nil {
			logger.Warnw("order_created_publish_failed", "order_id", entity.ID, "error", err)
		}
	}

	logger.Infow("create_order_success", "order_id", entity.ID, "total_price", entity.TotalPrice)
	return entity, nil
}

// reserveItems decrements stock for each order item. The pre-validation above already
// screened stock levels, but the conditional update is the authority: a racing order
// can still lose here. On a lost race the earlier reservations of this order are
// released and the persisted order is marked cancelled, so at most the available
// units are ever reserved.
func (s *Service) reserveItems(ctx context.Context, entity *domain.Order, items []domain.Item) error {
	logger := logging.FromContext(ctx).With("component", "order_service")

	for i, it := range items {
		err := s.catalog.ReserveStock(ctx, it.ProductID, it.Quantity)
		if err == nil {
			continue
		}

		for _, done := range items[:i] {
			if relErr := s.catalog.ReleaseStock(ctx, done.ProductID, done.Quantity); relErr != nil {
				logger.Errorw("stock_release_failed", "order_id", entity.ID, "product_id", done.ProductID, "error", relErr)
			}
		}
		if _, cancelErr := s.repo.UpdateStatus(ctx, entity.ID, domain.StatusCancelled, "", time.Now().UTC()); cancelErr != nil {
			logger.Errorw("order_cancel_failed", "order_id", entity.ID, "error", cancelErr)
		}

		if errors.Is(err, domcatalog.ErrInsufficientStock) || errors.Is(err, domcatalog.ErrNotFound) {
			logger.Infow("stock_reserve_rejected", "order_id", entity.ID, "product_id", it.ProductID)
			return fmt.Errorf("%w: %s", domcatalog.ErrInsufficientStock, it.Name)
		}
		logger.Errorw("stock_reserve_failed", "order_id", entity.ID, "product_id", it.ProductID, "error", err)
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return nil
}

// Get returns the order when the requester owns it or is an admin.
func (s *Service) Get(ctx context.Context, orderID, requesterID string, admin bool) (*domain.Order, error) {
	if orderID == "" {
		return nil, domain.ErrNotFound
	}
	entity, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !admin && entity.UserID != requesterID {
		return nil, domain.ErrAccessDenied
	}
	return entity, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.Order, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.repo.FindByUser(ctx, userID, page, pageSize)
}

func (s *Service) ListAll(ctx context.Context, status domain.Status, page, pageSize int) ([]*domain.Order, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.ErrInvalidStatus
	}
	page, pageSize = normalizePage(page, pageSize)
	return s.repo.FindAll(ctx, status, page, pageSize)
}

// UpdateStatus is the admin transition. Any status may move to any other; only enum
// membership is validated.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status domain.Status, trackingNumber string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	entity, err := s.repo.UpdateStatus(ctx, orderID, status, trackingNumber, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).With("component", "order_service").
		Infow("order_status_updated", "order_id", orderID, "status", status)
	return entity, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
