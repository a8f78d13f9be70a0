package bot

import (
	"context"
	"time"
)

type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderBot      Sender = "bot"
	SenderAdmin    Sender = "admin"
)

// Turn — one recorded message in a conversation, any direction.
type Turn struct {
	From      Sender    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type CartItem struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type CustomerInfo struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	Delivery string `json:"delivery,omitempty"`
}

// Session — canonical in-memory state of one conversation,
// keyed by (tenant, canonical peer).
type Session struct {
	Tenant                 string       `json:"tenant"`
	Peer                   string       `json:"peer"`
	Turns                  []Turn       `json:"messages"`
	Cart                   []CartItem   `json:"cart"`
	Customer               CustomerInfo `json:"customer_info"`
	BlockedUntil           time.Time    `json:"bot_blocked_until,omitempty"`
	OrderConverted         bool         `json:"order_converted"`
	OrderID                string       `json:"order_id,omitempty"`
	LastSuggestedProductID string       `json:"last_suggested_product_id,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

// AppendTurn records a message in the conversation history.
func (s *Session) AppendTurn(from Sender, text string, now time.Time) {
	s.Turns = append(s.Turns, Turn{From: from, Text: text, Timestamp: now})
	s.UpdatedAt = now
}

// AddToCart merges a product mention into the cart. Lines for the same
// product id are summed, never duplicated.
func (s *Session) AddToCart(productID string, quantity int, now time.Time) {
	if productID == "" || quantity <= 0 {
		return
	}
	for i := range s.Cart {
		if s.Cart[i].ProductID == productID {
			s.Cart[i].Quantity += quantity
			s.UpdatedAt = now
			return
		}
	}
	s.Cart = append(s.Cart, CartItem{ProductID: productID, Quantity: quantity, AddedAt: now})
	s.UpdatedAt = now
}

// RecentTurns returns the last n turns, for order excerpts.
func (s *Session) RecentTurns(n int) []Turn {
	if len(s.Turns) <= n {
		out := make([]Turn, len(s.Turns))
		copy(out, s.Turns)
		return out
	}
	out := make([]Turn, n)
	copy(out, s.Turns[len(s.Turns)-n:])
	return out
}

// Envelope — inbound message as delivered by the transport.
type Envelope struct {
	ID       string
	FromSelf bool
	Peer     string
	Text     string
	SentAt   time.Time
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Volume      string   `json:"volume,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
	Stock       bool     `json:"stock"`
	StockAlert  string   `json:"stock_alert,omitempty"`
	Similar     []string `json:"similar,omitempty"`
}

type Promotion struct {
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

type Shipping struct {
	FreeFrom float64 `json:"free_from"`
	Fee      float64 `json:"fee"`
}

// Catalog — everything a tenant configures: products, promotions,
// shipping rules and the darija glossary used in completion context.
type Catalog struct {
	Tenant         string            `json:"client_id"`
	ClientName     string            `json:"client_name"`
	WhatsApp       string            `json:"whatsapp"`
	Status         string            `json:"status"`
	Products       []Product         `json:"products"`
	Promotions     []Promotion       `json:"promotions,omitempty"`
	Shipping       Shipping          `json:"shipping"`
	DarijaKeywords map[string]string `json:"darija_keywords,omitempty"`
}

// Product looks a product up by id; nil when unknown.
func (c *Catalog) Product(id string) *Product {
	for i := range c.Products {
		if c.Products[i].ID == id {
			return &c.Products[i]
		}
	}
	return nil
}

const (
	OrderStatusNew       = "new"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is a known lifecycle status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusNew, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type OrderLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order — immutable once created, except for Status which moves through
// its lifecycle via the admin API, never via re-derivation.
type Order struct {
	ID              string      `json:"id"`
	Tenant          string      `json:"client_id"`
	CustomerName    string      `json:"customer_name"`
	CustomerPhone   string      `json:"customer_phone"`
	CustomerAddress string      `json:"customer_address"`
	Products        []OrderLine `json:"products"`
	TotalAmount     float64     `json:"total_amount"`
	Status          string      `json:"status"`
	SessionID       string      `json:"session_id"`
	Conversation    []Turn      `json:"conversation_history"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type OrderStats struct {
	Total        int     `json:"total"`
	New          int     `json:"new"`
	Confirmed    int     `json:"confirmed"`
	Shipped      int     `json:"shipped"`
	Delivered    int     `json:"delivered"`
	Cancelled    int     `json:"cancelled"`
	TotalRevenue float64 `json:"total_revenue"`
}

// ConversationLog — durable per-tenant session record with aggregates.
type ConversationLog struct {
	Sessions           []Session `json:"conversations"`
	TotalConversations int       `json:"total_conversations"`
	LastUpdate         time.Time `json:"last_update"`
}

// Transport — outbound side of the messaging channel. Send returns the
// transport-assigned message id so it can be registered as a recent send.
type Transport interface {
	Send(ctx context.Context, peer string, text string) (string, error)
}

// Repo — durable persistence for catalogs, sessions and orders.
type Repo interface {
	Catalog(ctx context.Context, tenant string) (*Catalog, error)
	SaveCatalog(ctx context.Context, tenant string, cat *Catalog) error

	SaveSession(ctx context.Context, sess *Session) error
	Conversations(ctx context.Context, tenant string) (*ConversationLog, error)

	CreateOrder(ctx context.Context, ord *Order) error
	Orders(ctx context.Context, tenant string, status string) ([]Order, error)
	Order(ctx context.Context, tenant string, id string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, tenant string, id string, status string) (*Order, error)
	DeleteOrder(ctx context.Context, tenant string, id string) error
	OrderStats(ctx context.Context, tenant string) (*OrderStats, error)
}

// Service — the conversation pipeline plus the administrative operations
// that act on the handover state machine.
type Service interface {
	HandleEnvelope(ctx context.Context, tenant string, env Envelope) error
	Takeover(ctx context.Context, tenant string, peer string, d time.Duration) (time.Time, error)
	Release(ctx context.Context, tenant string, peer string) error
	AdminSend(ctx context.Context, tenant string, peer string, text string) error
}
