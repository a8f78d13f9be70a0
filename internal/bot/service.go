package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brainchat/wabridge/internal/ai"
)

// Persona instructions live with the completion service configuration;
// this side only pins the ground rules the pipeline depends on.
const systemPrompt = `Tu es l'assistante de vente WhatsApp du client. ` +
	`Réponds en français ou en darija selon le message. ` +
	`Utilise uniquement le contexte interne fourni, ne l'évoque jamais.`

type service struct {
	store    *Store
	repo     Repo
	ai       ai.AI
	outbound Transport
	gate     *IntakeGate
	handover *Handover
	emitter  *Emitter
	log      *zap.Logger

	handoverDuration time.Duration
	now              func() time.Time
}

type ServiceConfig struct {
	HandoverDuration time.Duration
}

func NewService(store *Store, repo Repo, aiClient ai.AI, outbound Transport, gate *IntakeGate, handover *Handover, emitter *Emitter, log *zap.Logger, cfg ServiceConfig) Service {
	d := cfg.HandoverDuration
	if d <= 0 {
		d = DefaultHandoverDuration
	}
	return &service{
		store:            store,
		repo:             repo,
		ai:               aiClient,
		outbound:         outbound,
		gate:             gate,
		handover:         handover,
		emitter:          emitter,
		log:              log,
		handoverDuration: d,
		now:              time.Now,
	}
}

// HandleEnvelope runs one inbound message through the pipeline:
// intake gate, handover decision, extraction, completion, send, order
// evaluation. The whole turn holds the per-conversation lock so
// concurrent deliveries for one peer are strictly ordered.
func (s *service) HandleEnvelope(ctx context.Context, tenant string, env Envelope) error {
	adm := s.gate.Admit(env)
	if !adm.Accept {
		return nil
	}

	cat, err := s.repo.Catalog(ctx, tenant)
	if err != nil {
		return fmt.Errorf("load catalog for %s: %w", tenant, err)
	}

	peer := CanonicalPeer(env.Peer)
	log := s.log.With(zap.String("tenant", tenant), zap.String("peer", peer))

	return s.store.WithSession(tenant, peer, func(sess *Session) error {
		now := s.now()

		if adm.FromOperator {
			// Operator replied from the tenant's own account: the
			// human owns the conversation now.
			until := s.handover.Block(sess, s.handoverDuration)
			sess.AppendTurn(SenderAdmin, env.Text, now)
			s.store.Persist(ctx, sess)
			log.Info("operator message, bot blocked", zap.Time("until", until))
			return nil
		}

		sess.AppendTurn(SenderCustomer, env.Text, now)

		res := Extract(env.Text, cat, sess.Customer, sess.LastSuggestedProductID)
		sess.ApplyExtraction(res, now)
		if res.CartUpdated() {
			log.Info("cart updated", zap.Int("lines", len(sess.Cart)))
		}

		if s.handover.Blocked(sess) {
			// Recorded, not answered: a human owns this conversation.
			s.store.Persist(ctx, sess)
			return nil
		}

		reply := s.generateReply(ctx, cat, sess, env.Text, log)

		if id, err := s.outbound.Send(ctx, peer, reply); err != nil {
			// The transport may still deliver via its own retry; the
			// turn is recorded either way.
			log.Warn("send failed", zap.Error(err))
		} else {
			s.gate.RegisterSent(id)
		}

		sess.AppendTurn(SenderBot, reply, s.now())
		if pid := SuggestFromReply(reply, cat); pid != "" {
			sess.LastSuggestedProductID = pid
		}
		s.store.Persist(ctx, sess)

		if _, emitted := s.emitter.MaybeEmit(ctx, sess, cat); emitted {
			s.store.Persist(ctx, sess)
		}
		return nil
	})
}

// generateReply asks the completion service for the turn's response and
// substitutes the fixed fallback on any upstream failure. Customers
// always get some reply.
func (s *service) generateReply(ctx context.Context, cat *Catalog, sess *Session, userText string, log *zap.Logger) string {
	input := BuildCompletionContext(cat, sess, userText)
	reply, err := s.ai.GetReply(ctx, systemPrompt, input)
	if err != nil || reply == "" {
		log.Warn("completion failed, using fallback", zap.Error(err))
		return FallbackReply(cat)
	}
	return reply
}

// Takeover blocks the bot for this conversation for d (default 30 min).
func (s *service) Takeover(ctx context.Context, tenant, peer string, d time.Duration) (time.Time, error) {
	var until time.Time
	err := s.store.WithSession(tenant, peer, func(sess *Session) error {
		until = s.handover.Block(sess, d)
		s.store.Persist(ctx, sess)
		return nil
	})
	return until, err
}

// Release re-activates the bot immediately.
func (s *service) Release(ctx context.Context, tenant, peer string) error {
	return s.store.WithSession(tenant, peer, func(sess *Session) error {
		s.handover.Release(sess)
		s.store.Persist(ctx, sess)
		return nil
	})
}

// AdminSend delivers an operator-typed message through the transport,
// records it as an admin turn and blocks the bot, exactly as if the
// operator had replied from the tenant's own phone.
func (s *service) AdminSend(ctx context.Context, tenant, peer, text string) error {
	canonical := CanonicalPeer(peer)
	id, err := s.outbound.Send(ctx, canonical, text)
	if err != nil {
		return fmt.Errorf("send to %s: %w", canonical, err)
	}
	s.gate.RegisterSent(id)

	return s.store.WithSession(tenant, canonical, func(sess *Session) error {
		s.handover.Block(sess, s.handoverDuration)
		sess.AppendTurn(SenderAdmin, text, s.now())
		s.store.Persist(ctx, sess)
		return nil
	})
}
