package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildCompletionContext(t *testing.T) {
	cat := testCatalog()
	cat.Promotions = []Promotion{
		{Text: "3 achetés = 1 offert", Active: true},
		{Text: "ancienne promo", Active: false},
	}
	cat.Shipping = Shipping{FreeFrom: 300, Fee: 30}
	cat.DarijaKeywords = map[string]string{"bghit": "je veux"}

	sess := &Session{Tenant: "lattafa", Peer: "212612345678"}
	sess.AddToCart("p1ize", 2, time.Now())
	sess.Customer.Name = "Fatima Zahra"

	out := BuildCompletionContext(cat, sess, "je veux yara aussi")

	require.Contains(t, out, "Rose Oud x2 = 240 MAD")
	require.Contains(t, out, "Total panier: 240 MAD")
	require.Contains(t, out, "Encore 60 MAD pour livraison gratuite")
	require.Contains(t, out, "3 achetés = 1 offert")
	require.NotContains(t, out, "ancienne promo")
	require.Contains(t, out, "OK Nom: Fatima Zahra")
	require.Contains(t, out, "MANQUANT: Ville")
	require.Contains(t, out, "INFOS INCOMPLÈTES")
	require.Contains(t, out, `"bghit" = je veux`)
	require.Contains(t, out, "MESSAGE CLIENT:\nje veux yara aussi")
}

func TestBuildCompletionContextCompleteInfo(t *testing.T) {
	sess := completeSession(time.Now())
	out := BuildCompletionContext(testCatalog(), sess, "ok")

	require.Contains(t, out, "TOUTES LES INFOS SONT COMPLÈTES")
}

func TestFallbackReply(t *testing.T) {
	require.Contains(t, FallbackReply(testCatalog()), "0600000000")
	require.Contains(t, FallbackReply(&Catalog{}), "notre equipe")
}

func TestCartTotalIgnoresUnknownProducts(t *testing.T) {
	sess := &Session{}
	sess.AddToCart("p1ize", 1, time.Now())
	sess.AddToCart("ghost", 4, time.Now())

	require.Equal(t, float64(120), CartTotal(sess, testCatalog()))
}

func TestBuildCompletionContextFreeShippingReached(t *testing.T) {
	cat := testCatalog()
	cat.Shipping = Shipping{FreeFrom: 200, Fee: 30}

	sess := &Session{}
	sess.AddToCart("p1ize", 2, time.Now())

	out := BuildCompletionContext(cat, sess, "salam")
	require.Contains(t, out, "Livraison GRATUITE incluse!")
}
