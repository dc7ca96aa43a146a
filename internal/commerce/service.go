package commerce

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"notification-bridge/internal/bridgeerr"
	"notification-bridge/internal/debug"
	"notification-bridge/internal/metrics"
	"notification-bridge/internal/upstream"
	"notification-bridge/pkg/models"
)

var (
	// ErrMissingOrderID is returned for purchases without an order id; nothing is sent
	ErrMissingOrderID = errors.New("purchase has no order id")
	// ErrEmptyEventType is returned for custom events without a type
	ErrEmptyEventType = errors.New("custom event type is empty")
	// ErrNoIdentifiers is returned when identify carries no identifier
	ErrNoIdentifiers = errors.New("no user identifiers supplied")
)

// DefaultCreativeID is reported when a trigger names no creative
const DefaultCreativeID = "default"

// Service forwards commerce and identity calls to the upstream tracker
type Service struct {
	tracker         upstream.Tracker
	store           *debug.Store
	upstreamTimeout time.Duration
	logger          *logrus.Logger
}

// NewService creates a new commerce service
func NewService(tracker upstream.Tracker, store *debug.Store, upstreamTimeout time.Duration, logger *logrus.Logger) *Service {
	if upstreamTimeout <= 0 {
		upstreamTimeout = 10 * time.Second
	}
	return &Service{
		tracker:         tracker,
		store:           store,
		upstreamTimeout: upstreamTimeout,
		logger:          logger,
	}
}

// RecordProductView reports a product view
func (s *Service) RecordProductView(ctx context.Context, event ProductView) error {
	items := ValidItems(event.Items)
	attrs := map[string]interface{}{
		"items":    itemAttributes(items),
		"deeplink": event.Deeplink,
	}

	err := s.send(ctx, upstream.MethodRecordEvent, func(ctx context.Context) error {
		return s.tracker.RecordEvent(ctx, upstream.TrackedEvent{Type: TypeProductView, Attributes: attrs})
	})

	data := itemFields(items, attrs)
	data["deeplink"] = debug.String(event.Deeplink)
	s.record("Product View Event", TypeProductView, data, err)
	return err
}

// RecordAddToCart reports an add-to-cart
func (s *Service) RecordAddToCart(ctx context.Context, event AddToCart) error {
	items := ValidItems(event.Items)
	attrs := map[string]interface{}{
		"items":    itemAttributes(items),
		"deeplink": event.Deeplink,
	}

	err := s.send(ctx, upstream.MethodRecordEvent, func(ctx context.Context) error {
		return s.tracker.RecordEvent(ctx, upstream.TrackedEvent{Type: TypeAddToCart, Attributes: attrs})
	})

	data := itemFields(items, attrs)
	data["deeplink"] = debug.String(event.Deeplink)
	s.record("Add To Cart Event", TypeAddToCart, data, err)
	return err
}

// RecordPurchase reports a purchase. A purchase without an order id is
// dropped before anything is sent or recorded.
func (s *Service) RecordPurchase(ctx context.Context, event Purchase) error {
	if event.OrderID == "" {
		s.logger.Warn("Ignoring purchase without order id")
		return ErrMissingOrderID
	}

	items := ValidItems(event.Items)
	order := map[string]interface{}{"id": event.OrderID}
	attrs := map[string]interface{}{
		"items": itemAttributes(items),
		"order": order,
	}
	if event.CartID != "" || event.CartCoupon != "" {
		attrs["cart"] = map[string]interface{}{"cartId": event.CartID, "cartCoupon": event.CartCoupon}
	}

	err := s.send(ctx, upstream.MethodRecordEvent, func(ctx context.Context) error {
		return s.tracker.RecordEvent(ctx, upstream.TrackedEvent{Type: TypePurchase, Attributes: attrs})
	})

	data := itemFields(items, attrs)
	data["order_id"] = debug.String(event.OrderID)
	if event.CartID != "" {
		data["cart_id"] = debug.String(event.CartID)
	}
	if event.CartCoupon != "" {
		data["cart_coupon"] = debug.String(event.CartCoupon)
	}
	s.record("Purchase Event", TypePurchase, data, err)
	return err
}

// RecordCustom reports an application-defined event
func (s *Service) RecordCustom(ctx context.Context, event Custom) error {
	if event.Type == "" {
		return ErrEmptyEventType
	}

	properties := make(map[string]interface{}, len(event.Properties))
	for key, value := range event.Properties {
		properties[key] = value
	}
	attrs := map[string]interface{}{
		"type":       event.Type,
		"properties": properties,
	}

	err := s.send(ctx, upstream.MethodRecordEvent, func(ctx context.Context) error {
		return s.tracker.RecordEvent(ctx, upstream.TrackedEvent{Type: TypeCustom, Attributes: attrs})
	})

	s.record("Custom Event", TypeCustom, debug.Fields{
		"event_type":       debug.String(event.Type),
		"properties_count": debug.String(strconv.Itoa(len(event.Properties))),
		"payload":          debug.FromAny(attrs),
	}, err)
	return err
}

// Identify attaches user identifiers to the upstream session. Empty
// identifiers are left out.
func (s *Service) Identify(ctx context.Context, req models.IdentifyRequest) error {
	if req.IsEmpty() {
		return ErrNoIdentifiers
	}

	identifiers := make(map[string]interface{})
	for key, value := range map[string]string{
		"phone":        req.Phone,
		"email":        req.Email,
		"klaviyoId":    req.KlaviyoID,
		"shopifyId":    req.ShopifyID,
		"clientUserId": req.ClientUserID,
	} {
		if value != "" {
			identifiers[key] = value
		}
	}
	if len(req.CustomIdentifiers) > 0 {
		custom := make(map[string]interface{}, len(req.CustomIdentifiers))
		for key, value := range req.CustomIdentifiers {
			custom[key] = value
		}
		identifiers["customIdentifiers"] = custom
	}

	err := s.send(ctx, upstream.MethodIdentify, func(ctx context.Context) error {
		return s.tracker.Identify(ctx, identifiers)
	})

	keys := make([]debug.Value, 0, len(identifiers))
	for _, key := range debug.FieldsFrom(identifiers).Keys() {
		keys = append(keys, debug.String(key))
	}
	s.store.Record("User Identified", debug.Fields{
		"identifiers": debug.List(keys...),
	})
	return err
}

// ClearUser resets the upstream user
func (s *Service) ClearUser(ctx context.Context) error {
	err := s.send(ctx, upstream.MethodClearUser, func(ctx context.Context) error {
		return s.tracker.ClearUser(ctx)
	})
	s.store.Record("User Cleared", debug.Fields{"action": debug.String("clearUser")})
	return err
}

// TriggerCreative asks the upstream to show a creative. An empty id
// triggers the default creative.
func (s *Service) TriggerCreative(ctx context.Context, creativeID string) error {
	if creativeID == "" {
		creativeID = DefaultCreativeID
	}

	err := s.send(ctx, upstream.MethodTriggerCreative, func(ctx context.Context) error {
		return s.tracker.TriggerCreative(ctx, creativeID)
	})

	s.store.Record("Creative Triggered", debug.Fields{
		"type":       debug.String("trigger"),
		"creativeId": debug.String(creativeID),
	})
	return err
}

// send runs an upstream call detached from the caller's cancellation,
// bounded by the upstream timeout, with panics turned into errors
func (s *Service) send(ctx context.Context, method string, call func(context.Context) error) (err error) {
	upstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.upstreamTimeout)
	defer cancel()

	if err = upstream.Bounded(upstreamCtx, method, call); err != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues(method).Inc()
		s.logger.WithError(err).WithField("method", method).Warn("Upstream tracker call failed")
		return fmt.Errorf("%s: %v: %w", method, err, bridgeerr.ErrUpstreamDispatch)
	}
	return nil
}

func (s *Service) record(eventType, metricType string, data debug.Fields, err error) {
	metrics.CommerceEventsTotal.WithLabelValues(metricType).Inc()
	if err != nil {
		data["error"] = debug.String(err.Error())
	}
	s.store.Record(eventType, data)
}

func itemFields(items []Item, attrs map[string]interface{}) debug.Fields {
	data := debug.Fields{
		"items_count": debug.String(strconv.Itoa(len(items))),
		"payload":     debug.FromAny(attrs),
	}
	if len(items) > 0 {
		data["first_item"] = debug.FromAny(items[0].details())
	}
	return data
}
