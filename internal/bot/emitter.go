package bot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// How many trailing turns are attached to an order as context.
const orderExcerptTurns = 20

// Emitter converts a completed cart + profile into a persisted order,
// once per session. The OrderConverted flag is only set after the store
// accepted the order, so a failed create is retried on the next
// qualifying turn.
type Emitter struct {
	repo Repo
	log  *zap.Logger
	now  func() time.Time
}

func NewEmitter(repo Repo, log *zap.Logger) *Emitter {
	return &Emitter{repo: repo, log: log, now: time.Now}
}

// ReadyToConvert reports whether the session satisfies every order
// precondition: non-empty cart, name, phone (profile or peer-derived),
// address, city, and not yet converted.
func ReadyToConvert(sess *Session) bool {
	if sess.OrderConverted || len(sess.Cart) == 0 {
		return false
	}
	info := sess.Customer
	phone := info.Phone
	if phone == "" {
		phone = sess.Peer
	}
	return info.Name != "" && phone != "" && info.Address != "" && info.City != ""
}

// MaybeEmit evaluates the session after a turn and emits the order if it
// is complete. Unit prices are resolved from the catalog at emission
// time, not at mention time.
func (e *Emitter) MaybeEmit(ctx context.Context, sess *Session, cat *Catalog) (*Order, bool) {
	if !ReadyToConvert(sess) {
		return nil, false
	}

	lines := make([]OrderLine, 0, len(sess.Cart))
	var total float64
	for _, item := range sess.Cart {
		line := OrderLine{Name: "Produit", Quantity: item.Quantity}
		if p := cat.Product(item.ProductID); p != nil {
			line.Name = p.Name
			line.Price = p.Price
		}
		total += line.Price * float64(line.Quantity)
		lines = append(lines, line)
	}

	phone := sess.Customer.Phone
	if phone == "" {
		phone = sess.Peer
	}
	address := sess.Customer.Address
	if sess.Customer.City != "" {
		address += ", " + sess.Customer.City
	}

	now := e.now()
	ord := &Order{
		ID:              "ord-" + uuid.NewString(),
		Tenant:          sess.Tenant,
		CustomerName:    sess.Customer.Name,
		CustomerPhone:   phone,
		CustomerAddress: address,
		Products:        lines,
		TotalAmount:     total,
		Status:          OrderStatusNew,
		SessionID:       sess.Peer,
		Conversation:    sess.RecentTurns(orderExcerptTurns),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := e.repo.CreateOrder(ctx, ord); err != nil {
		// Flag stays false, the next qualifying turn retries.
		e.log.Error("order create failed, will retry on next turn",
			zap.String("tenant", sess.Tenant),
			zap.String("peer", sess.Peer),
			zap.Error(err),
		)
		return nil, false
	}

	sess.OrderConverted = true
	sess.OrderID = ord.ID
	sess.UpdatedAt = now

	e.log.Info("order emitted",
		zap.String("tenant", sess.Tenant),
		zap.String("peer", sess.Peer),
		zap.String("order", ord.ID),
		zap.Float64("total", total),
	)
	return ord, true
}
