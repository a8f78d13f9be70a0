package bot

import (
	"fmt"
	"sort"
	"strings"
)

// Completion context construction. The completion service keeps its own
// persona prompt; this side injects everything tenant- and
// conversation-specific: catalog, promotions, current cart, collected
// customer info and the darija glossary.

// FallbackReply is sent when the completion service fails; it points the
// customer at the tenant's human contact.
func FallbackReply(cat *Catalog) string {
	contact := cat.WhatsApp
	if contact == "" {
		contact = "notre equipe"
	}
	return fmt.Sprintf("Désolé, une erreur s'est produite. Contactez-nous au %s.", contact)
}

// CartTotal prices the cart against the current catalog.
func CartTotal(sess *Session, cat *Catalog) float64 {
	var total float64
	for _, item := range sess.Cart {
		if p := cat.Product(item.ProductID); p != nil {
			total += p.Price * float64(item.Quantity)
		}
	}
	return total
}

// BuildCompletionContext assembles the enriched message handed to the
// completion service alongside the raw customer text.
func BuildCompletionContext(cat *Catalog, sess *Session, userText string) string {
	var b strings.Builder

	b.WriteString("[CONTEXT INTERNE - À utiliser pour ta réponse mais ne jamais mentionner au client]\n\n")

	b.WriteString("CATALOGUE " + strings.ToUpper(cat.ClientName) + ":\n")
	for _, p := range cat.Products {
		mark := "[RUPTURE]"
		if p.Stock {
			mark = "[STOCK]"
		}
		fmt.Fprintf(&b, "%s %s - %.0f MAD (%s)\n", mark, p.Name, p.Price, p.Volume)
		if p.Gender != "" || len(p.Tags) > 0 {
			fmt.Fprintf(&b, "   Genre: %s | Tags: %s\n", p.Gender, strings.Join(p.Tags, ", "))
		}
		if p.Description != "" {
			b.WriteString("   " + p.Description + "\n")
		}
		if !p.Stock && p.StockAlert != "" {
			b.WriteString("   " + p.StockAlert + "\n")
			if alts := similarNames(cat, p.Similar); len(alts) > 0 {
				b.WriteString("   Alternatives: " + strings.Join(alts, ", ") + "\n")
			}
		}
		b.WriteString("\n")
	}

	var promos []string
	for _, pr := range cat.Promotions {
		if pr.Active {
			promos = append(promos, "- "+pr.Text)
		}
	}
	if len(promos) > 0 {
		b.WriteString("\nPROMOTIONS ACTIVES:\n" + strings.Join(promos, "\n") + "\n\n")
	}

	if len(sess.Cart) > 0 {
		writeCartContext(&b, cat, sess)
	}
	writeCustomerContext(&b, sess)

	if len(cat.DarijaKeywords) > 0 {
		b.WriteString("SI CLIENT PARLE DARIJA:\n")
		keys := make([]string, 0, len(cat.DarijaKeywords))
		for k := range cat.DarijaKeywords {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %q = %s\n", k, cat.DarijaKeywords[k])
		}
		b.WriteString("\n")
	}

	b.WriteString("[FIN CONTEXT - Réponds maintenant au message client]\n\n")
	b.WriteString("MESSAGE CLIENT:\n" + userText)

	return b.String()
}

func writeCartContext(b *strings.Builder, cat *Catalog, sess *Session) {
	total := CartTotal(sess, cat)
	b.WriteString("PANIER ACTUEL DU CLIENT:\n")
	var totalItems int
	for _, item := range sess.Cart {
		totalItems += item.Quantity
		if p := cat.Product(item.ProductID); p != nil {
			fmt.Fprintf(b, "- %s x%d = %.0f MAD\n", p.Name, item.Quantity, p.Price*float64(item.Quantity))
		}
	}
	fmt.Fprintf(b, "Total panier: %.0f MAD\n", total)

	if cat.Shipping.FreeFrom > 0 {
		if total >= cat.Shipping.FreeFrom {
			b.WriteString("Livraison GRATUITE incluse!\n")
		} else {
			fmt.Fprintf(b, "Encore %.0f MAD pour livraison gratuite (sinon +%.0f MAD)\n",
				cat.Shipping.FreeFrom-total, cat.Shipping.Fee)
		}
	}
	if totalItems >= 3 {
		b.WriteString("Promo 3+1 applicable!\n")
	}
	b.WriteString("\n")
}

func writeCustomerContext(b *strings.Builder, sess *Session) {
	info := sess.Customer
	if info.Name == "" && info.Phone == "" && info.City == "" && info.Address == "" {
		return
	}

	b.WriteString("INFOS CLIENT DÉJÀ COLLECTÉES:\n")
	field := func(label, val string) {
		if val != "" {
			fmt.Fprintf(b, "OK %s: %s\n", label, val)
		} else {
			fmt.Fprintf(b, "MANQUANT: %s\n", label)
		}
	}
	field("Nom", info.Name)
	field("Téléphone", info.Phone)
	field("Ville", info.City)
	field("Adresse", info.Address)
	b.WriteString("\n")

	if info.Name != "" && info.Phone != "" && info.City != "" && info.Address != "" {
		b.WriteString("TOUTES LES INFOS SONT COMPLÈTES - TU PEUX VALIDER LA COMMANDE!\n\n")
	} else {
		b.WriteString("INFOS INCOMPLÈTES - NE PAS VALIDER, DEMANDER CE QUI MANQUE!\n\n")
	}
}

func similarNames(cat *Catalog, ids []string) []string {
	var out []string
	for _, id := range ids {
		if p := cat.Product(id); p != nil {
			out = append(out, p.Name)
		}
	}
	return out
}
