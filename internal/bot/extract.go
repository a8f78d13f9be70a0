package bot

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Text extraction engine: pure functions mapping a raw message plus the
// tenant catalog to detected profile fields and cart changes. Unmatched
// text is never an error, it just detects nothing.

var (
	phoneRe     = regexp.MustCompile(`(\+?212|0)[0-9]{8,9}`)
	nameIntroRe = regexp.MustCompile(`(?i)(je m'appe(?:lle|le)|mon nom est|nom complet|ism[ai]?|ism dyali|ana ism)\s*[:\-]?\s*([a-zA-ZÀ-ÖØ-öø-ÿ' ]{3,})`)
	bareNameRe  = regexp.MustCompile(`^[a-zA-ZÀ-ÖØ-öø-ÿ' ]{3,40}$`)
	bareIntRe   = regexp.MustCompile(`^[0-9]{1,3}$`)
	anyNumberRe = regexp.MustCompile(`[0-9]{1,3}`)
	segmentRe   = regexp.MustCompile(`[\n,;]`)
	nonPhoneRe  = regexp.MustCompile(`[^0-9+]`)
)

type CartAdd struct {
	ProductID string
	Quantity  int
}

// ExtractionResult — what one pass over a customer message detected.
// Transient, applied to the session by ApplyExtraction.
type ExtractionResult struct {
	Phone    string
	Name     string
	Address  string
	City     string
	Delivery string

	CartAdds []CartAdd

	// Final suggestion value to store when SuggestionChanged; empty
	// means a pending suggestion was consumed by a follow-up reply.
	Suggestion        string
	SuggestionChanged bool
}

func (r ExtractionResult) InfoCaptured() bool {
	return r.Phone != "" || r.Name != "" || r.Address != "" || r.City != "" || r.Delivery != ""
}

func (r ExtractionResult) CartUpdated() bool {
	return len(r.CartAdds) > 0
}

// Extract runs field and product detection over a customer message.
// current and suggested are the session snapshot: already-set fields are
// skipped, suggested resolves bare-number and affirmative follow-ups.
func Extract(text string, cat *Catalog, current CustomerInfo, suggested string) ExtractionResult {
	var res ExtractionResult
	suggestion := suggested

	for _, segment := range splitSegments(text) {
		if current.Phone == "" && res.Phone == "" {
			res.Phone = detectPhone(segment)
		}
		if current.Name == "" && res.Name == "" {
			res.Name = detectName(segment)
		}
		if current.Address == "" && res.Address == "" {
			res.Address = detectAddress(segment)
		}
		if current.City == "" && res.City == "" {
			res.City = detectCity(segment)
		}
		if res.Delivery == "" {
			res.Delivery = detectDelivery(segment)
		}

		for _, m := range detectProducts(segment, cat) {
			res.CartAdds = append(res.CartAdds, m)
			suggestion = m.ProductID
			res.Suggestion = suggestion
			res.SuggestionChanged = true
		}
	}

	trimmed := strings.TrimSpace(text)
	switch {
	case bareIntRe.MatchString(trimmed) && suggestion != "":
		qty, _ := strconv.Atoi(trimmed)
		if qty > 0 {
			res.CartAdds = append(res.CartAdds, CartAdd{ProductID: suggestion, Quantity: qty})
		}
		res.Suggestion = ""
		res.SuggestionChanged = true
	case isAffirmative(trimmed) && suggestion != "":
		res.CartAdds = append(res.CartAdds, CartAdd{ProductID: suggestion, Quantity: 1})
		res.Suggestion = ""
		res.SuggestionChanged = true
	}

	return res
}

// SuggestFromReply re-runs product detection on the bot's own reply. A
// reply naming exactly one product arms the suggestion for a one-word
// confirmation next turn; anything else leaves it alone.
func SuggestFromReply(reply string, cat *Catalog) string {
	mentions := detectProducts(reply, cat)
	if len(mentions) == 1 {
		return mentions[0].ProductID
	}
	return ""
}

// ApplyExtraction merges a result into the session. Profile fields are
// set at most once; delivery preference may be overwritten by a later
// unambiguous keyword.
func (s *Session) ApplyExtraction(res ExtractionResult, now time.Time) {
	if res.Phone != "" && s.Customer.Phone == "" {
		s.Customer.Phone = res.Phone
	}
	if res.Name != "" && s.Customer.Name == "" {
		s.Customer.Name = res.Name
	}
	if res.Address != "" && s.Customer.Address == "" {
		s.Customer.Address = res.Address
	}
	if res.City != "" && s.Customer.City == "" {
		s.Customer.City = res.City
	}
	if res.Delivery != "" {
		s.Customer.Delivery = res.Delivery
	}
	for _, add := range res.CartAdds {
		s.AddToCart(add.ProductID, add.Quantity, now)
	}
	if res.SuggestionChanged {
		s.LastSuggestedProductID = res.Suggestion
	}
	if res.InfoCaptured() || res.CartUpdated() {
		s.UpdatedAt = now
	}
}

func splitSegments(text string) []string {
	parts := segmentRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// detectPhone finds a Moroccan mobile number and normalizes the
// international prefix to the local leading-zero form.
func detectPhone(segment string) string {
	digits := nonPhoneRe.ReplaceAllString(segment, "")
	match := phoneRe.FindString(digits)
	if match == "" {
		return ""
	}
	match = strings.TrimPrefix(match, "+")
	if rest, ok := strings.CutPrefix(match, "212"); ok {
		return "0" + rest
	}
	return match
}

// detectName accepts an explicit introduction phrase or a bare segment
// of two or more alphabetic words.
func detectName(segment string) string {
	if m := nameIntroRe.FindStringSubmatch(segment); m != nil {
		return capitalizeWords(strings.Join(strings.Fields(m[2]), " "))
	}
	clean := strings.TrimSpace(segment)
	if bareNameRe.MatchString(clean) && len(strings.Fields(clean)) >= 2 {
		return capitalizeWords(clean)
	}
	return ""
}

func detectAddress(segment string) string {
	norm := normalize(segment)
	for _, kw := range addressKeywords {
		if strings.Contains(norm, kw) {
			if len(segment) < 6 {
				return ""
			}
			return strings.TrimSpace(segment)
		}
	}
	return ""
}

func detectCity(segment string) string {
	norm := normalize(segment)
	for _, city := range cityGazetteer {
		if strings.Contains(norm, city) {
			return capitalizeWords(city)
		}
	}
	return ""
}

func detectDelivery(segment string) string {
	norm := normalize(segment)
	for _, w := range deliveryExpressWords {
		if strings.Contains(norm, w) {
			return "express"
		}
	}
	for _, w := range deliveryStandardWords {
		if strings.Contains(norm, w) {
			return "standard"
		}
	}
	return ""
}

// detectProducts matches catalog product names in a segment. Quantity
// defaults to 1, overridden by a number adjacent to the product name
// (optionally preceded by x or *), else by any bare number in the
// segment.
func detectProducts(segment string, cat *Catalog) []CartAdd {
	if cat == nil {
		return nil
	}
	norm := normalize(segment)
	var out []CartAdd
	for i := range cat.Products {
		name := normalize(cat.Products[i].Name)
		if name == "" || !strings.Contains(norm, name) {
			continue
		}
		qty := 1
		adjacent := regexp.MustCompile(regexp.QuoteMeta(name) + `\s*(?:x|\*)?\s*([0-9]{1,3})`)
		if m := adjacent.FindStringSubmatch(norm); m != nil {
			qty, _ = strconv.Atoi(m[1])
		} else if m := anyNumberRe.FindString(norm); m != "" {
			qty, _ = strconv.Atoi(m)
		}
		if qty < 1 {
			qty = 1
		}
		out = append(out, CartAdd{ProductID: cat.Products[i].ID, Quantity: qty})
	}
	return out
}

// isAffirmative reports whether the whole message is a confirmation.
// Substring matching only applies to short messages ("oui merci"), so a
// long sentence that happens to contain a token does not confirm.
func isAffirmative(text string) bool {
	norm := normalize(text)
	if norm == "" {
		return false
	}
	for _, w := range affirmativeWords {
		if norm == w {
			return true
		}
	}
	if len(strings.Fields(norm)) > 3 {
		return false
	}
	for _, w := range affirmativeWords {
		if strings.Contains(norm, w) {
			return true
		}
	}
	return false
}
