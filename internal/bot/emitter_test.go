package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completeSession(now time.Time) *Session {
	sess := &Session{
		Tenant: "lattafa",
		Peer:   "212612345678",
		Customer: CustomerInfo{
			Name:    "Fatima Zahra",
			Phone:   "0612345678",
			Address: "Rue 14 Residence Al Amal",
			City:    "Casablanca",
		},
	}
	sess.AddToCart("p1ize", 2, now)
	return sess
}

func TestReadyToConvert(t *testing.T) {
	now := time.Now()

	require.True(t, ReadyToConvert(completeSession(now)))

	empty := completeSession(now)
	empty.Cart = nil
	require.False(t, ReadyToConvert(empty))

	noCity := completeSession(now)
	noCity.Customer.City = ""
	require.False(t, ReadyToConvert(noCity))

	converted := completeSession(now)
	converted.OrderConverted = true
	require.False(t, ReadyToConvert(converted))

	// A missing profile phone falls back to the peer identifier.
	peerPhone := completeSession(now)
	peerPhone.Customer.Phone = ""
	require.True(t, ReadyToConvert(peerPhone))
}

func TestEmitterBuildsOrder(t *testing.T) {
	repo := &mockRepo{}
	e := NewEmitter(repo, zap.NewNop())
	sess := completeSession(time.Now())

	ord, emitted := e.MaybeEmit(context.Background(), sess, testCatalog())
	require.True(t, emitted)
	require.NotNil(t, ord)

	require.Equal(t, "Fatima Zahra", ord.CustomerName)
	require.Equal(t, "0612345678", ord.CustomerPhone)
	require.Equal(t, "Rue 14 Residence Al Amal, Casablanca", ord.CustomerAddress)
	require.Len(t, ord.Products, 1)
	require.Equal(t, OrderLine{Name: "Rose Oud", Quantity: 2, Price: 120}, ord.Products[0])
	require.Equal(t, float64(240), ord.TotalAmount)
	require.Equal(t, OrderStatusNew, ord.Status)
	require.Equal(t, "212612345678", ord.SessionID)

	require.True(t, sess.OrderConverted)
	require.Equal(t, ord.ID, sess.OrderID)
	require.Equal(t, 1, repo.orderCount())
}

func TestEmitterPricesAtEmissionTime(t *testing.T) {
	repo := &mockRepo{}
	e := NewEmitter(repo, zap.NewNop())
	sess := completeSession(time.Now())

	// Price changed between the mention and the emission.
	cat := testCatalog()
	cat.Products[0].Price = 150

	ord, emitted := e.MaybeEmit(context.Background(), sess, cat)
	require.True(t, emitted)
	require.Equal(t, float64(300), ord.TotalAmount)
}

func TestEmitterPeerPhoneFallback(t *testing.T) {
	repo := &mockRepo{}
	e := NewEmitter(repo, zap.NewNop())
	sess := completeSession(time.Now())
	sess.Customer.Phone = ""

	ord, emitted := e.MaybeEmit(context.Background(), sess, testCatalog())
	require.True(t, emitted)
	require.Equal(t, "212612345678", ord.CustomerPhone)
}

func TestEmitterFailureLeavesFlagUnsetAndRetries(t *testing.T) {
	repo := &mockRepo{createErr: errors.New("store unavailable")}
	e := NewEmitter(repo, zap.NewNop())
	sess := completeSession(time.Now())

	_, emitted := e.MaybeEmit(context.Background(), sess, testCatalog())
	require.False(t, emitted)
	require.False(t, sess.OrderConverted)

	// Next qualifying turn retries and succeeds.
	repo.createErr = nil
	ord, emitted := e.MaybeEmit(context.Background(), sess, testCatalog())
	require.True(t, emitted)
	require.True(t, sess.OrderConverted)
	require.Equal(t, ord.ID, sess.OrderID)
	require.Equal(t, 1, repo.orderCount())
}

func TestEmitterNeverRunsTwice(t *testing.T) {
	repo := &mockRepo{}
	e := NewEmitter(repo, zap.NewNop())
	sess := completeSession(time.Now())

	_, emitted := e.MaybeEmit(context.Background(), sess, testCatalog())
	require.True(t, emitted)

	_, emitted = e.MaybeEmit(context.Background(), sess, testCatalog())
	require.False(t, emitted)
	require.Equal(t, 1, repo.orderCount())
}

func TestEmitterExcerptIsBounded(t *testing.T) {
	repo := &mockRepo{}
	e := NewEmitter(repo, zap.NewNop())
	now := time.Now()
	sess := completeSession(now)
	for i := 0; i < 50; i++ {
		sess.AppendTurn(SenderCustomer, fmt.Sprintf("turn %d", i), now)
	}

	ord, emitted := e.MaybeEmit(context.Background(), sess, testCatalog())
	require.True(t, emitted)
	require.Len(t, ord.Conversation, orderExcerptTurns)
	require.Equal(t, "turn 49", ord.Conversation[len(ord.Conversation)-1].Text)
}

func TestEmitterUnknownProductKeepsPlaceholder(t *testing.T) {
	repo := &mockRepo{}
	e := NewEmitter(repo, zap.NewNop())
	sess := completeSession(time.Now())
	sess.AddToCart("ghost", 1, time.Now())

	ord, emitted := e.MaybeEmit(context.Background(), sess, testCatalog())
	require.True(t, emitted)
	require.Len(t, ord.Products, 2)
	require.Equal(t, OrderLine{Name: "Produit", Quantity: 1, Price: 0}, ord.Products[1])
	require.Equal(t, float64(240), ord.TotalAmount)
}
