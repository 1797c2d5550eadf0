package crawler

import (
	"strings"

	"sjsage522/marketsearch/helpers"
	"sjsage522/marketsearch/internal/price"

	"github.com/PuerkitoBio/goquery"
)

// How many ancestors price and image lookups may climb from an anchor
const (
	priceLevels = 2
	imageLevels = 1
)

// strategies returns the cascade for this source: known card markup first,
// then item anchors with nearby price and image, then image/anchor association.
func (e *MarketplaceExtractor) strategies() []Strategy {
	return []Strategy{
		{Name: "cards", Find: e.findCards},
		{Name: "anchors", Find: e.findAnchors},
		{Name: "association", Find: e.findAssociated},
	}
}

// findCards extracts candidates from the first card selector that yields any
func (e *MarketplaceExtractor) findCards(doc *goquery.Document) []Candidate {
	sel := e.config.Selectors
	for _, cardSelector := range sel.Cards {
		cards := doc.Find(cardSelector)
		if cards.Length() == 0 {
			continue
		}

		var candidates []Candidate
		cards.Each(func(_ int, card *goquery.Selection) {
			c := Candidate{
				Title:     firstText(card, sel.Title),
				PriceText: firstPrice(card, sel.Price),
				Link:      e.firstLink(card, sel.Link),
				Image:     firstImage(card, sel.Image, sel.ImageHosts),
			}
			if c.Link == "" {
				return
			}
			if c.PriceText == "" {
				c.PriceText = price.Find(card.Text())
			}
			candidates = append(candidates, c)
		})
		if len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

// findAnchors scans item anchors and looks for price and image around each
func (e *MarketplaceExtractor) findAnchors(doc *goquery.Document) []Candidate {
	sel := e.config.Selectors
	if sel.ItemLink == "" {
		return nil
	}

	seen := make(map[string]bool)
	var candidates []Candidate
	doc.Find(sel.ItemLink).Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || seen[href] || !e.validator.IsValidItemLink(href) {
			return
		}
		seen[href] = true

		candidates = append(candidates, Candidate{
			Title:     anchorTitle(a),
			PriceText: nearestPrice(a),
			Link:      href,
			Image:     nearestImage(a, sel.ImageHosts),
		})
	})
	return candidates
}

type imageRef struct {
	src    string
	cardID string
	used   bool
}

// findAssociated collects qualifying images and item anchors separately and
// pairs them by enclosing card id, then by item id in the image URL, then by
// taking the first image nobody claimed yet.
func (e *MarketplaceExtractor) findAssociated(doc *goquery.Document) []Candidate {
	sel := e.config.Selectors
	if sel.ItemLink == "" {
		return nil
	}
	cardSelector := strings.Join(sel.Cards, ", ")

	var images []*imageRef
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSrc(img)
		if !acceptImage(src, sel.ImageHosts) {
			return
		}
		images = append(images, &imageRef{src: src, cardID: enclosingID(img, cardSelector)})
	})

	claim := func(match func(*imageRef) bool) string {
		for _, ref := range images {
			if !ref.used && match(ref) {
				ref.used = true
				return ref.src
			}
		}
		return ""
	}

	seen := make(map[string]bool)
	var candidates []Candidate
	doc.Find(sel.ItemLink).Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		title := anchorTitle(a)
		if href == "" || title == "" || seen[href] || !e.validator.IsValidItemLink(href) {
			return
		}
		seen[href] = true

		image := ""
		if cardID := enclosingID(a, cardSelector); cardID != "" {
			image = claim(func(ref *imageRef) bool { return ref.cardID == cardID })
		}
		if image == "" {
			if id := e.itemID(href); id != "" {
				image = claim(func(ref *imageRef) bool { return strings.Contains(ref.src, id) })
			}
		}
		if image == "" {
			image = claim(func(*imageRef) bool { return true })
		}

		candidates = append(candidates, Candidate{
			Title:     title,
			PriceText: nearestPrice(a),
			Link:      href,
			Image:     image,
		})
	})
	return candidates
}

// firstLink returns the first href that looks like an item page, or else the first href at all
func (e *MarketplaceExtractor) firstLink(s *goquery.Selection, selectors []string) string {
	fallback := ""
	for _, selector := range selectors {
		found := ""
		s.Find(selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href := strings.TrimSpace(a.AttrOr("href", ""))
			if href == "" {
				return true
			}
			if fallback == "" {
				fallback = href
			}
			if e.validator.IsValidItemLink(href) {
				found = href
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return fallback
}

// itemID extracts the item id from a link using the source pattern
func (e *MarketplaceExtractor) itemID(link string) string {
	if e.config.IDPattern == nil {
		return ""
	}
	match := e.config.IDPattern.FindStringSubmatch(link)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// firstText applies selectors in order and returns the first non-empty text
func firstText(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := ""
		s.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text = cleanText(el.AttrOr("title", ""))
			if text == "" {
				text = cleanText(el.Text())
			}
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// firstPrice returns the first element text that holds a readable price
func firstPrice(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		result := ""
		s.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := cleanText(el.Text())
			if _, ok := price.Parse(text); ok {
				result = text
			} else {
				result = price.Find(text)
			}
			return result == ""
		})
		if result != "" {
			return result
		}
	}
	return ""
}

func firstImage(s *goquery.Selection, selectors []string, hosts []string) string {
	for _, selector := range selectors {
		src := ""
		s.Find(selector).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			if candidate := imageSrc(img); acceptImage(candidate, hosts) {
				src = candidate
				return false
			}
			return true
		})
		if src != "" {
			return src
		}
	}
	return ""
}

// anchorTitle prefers a heading inside the anchor, then its title attributes,
// then its own text without the price, then the slug of the URL
func anchorTitle(a *goquery.Selection) string {
	if heading := cleanText(a.Find("h2, h3, h4").First().Text()); heading != "" {
		return heading
	}
	for _, attr := range []string{"title", "aria-label"} {
		if value := cleanText(a.AttrOr(attr, "")); value != "" {
			return value
		}
	}
	text := cleanText(a.Text())
	if token := price.Find(text); token != "" {
		text = cleanText(strings.Replace(text, token, "", 1))
	}
	if text != "" {
		return text
	}

	slug := helpers.LastPathSegment(a.AttrOr("href", ""))
	return cleanText(strings.ReplaceAll(slug, "-", " "))
}

// nearestPrice looks for a price token in the element, then in its ancestors
func nearestPrice(s *goquery.Selection) string {
	current := s
	for level := 0; level <= priceLevels && current.Length() > 0; level++ {
		if token := price.Find(current.Text()); token != "" {
			return token
		}
		current = current.Parent()
	}
	return ""
}

// nearestImage looks for an image inside the element, then in its ancestors
func nearestImage(s *goquery.Selection, hosts []string) string {
	current := s
	for level := 0; level <= imageLevels && current.Length() > 0; level++ {
		if src := firstImage(current, []string{"img"}, hosts); src != "" {
			return src
		}
		current = current.Parent()
	}
	return ""
}

func enclosingID(s *goquery.Selection, cardSelector string) string {
	if cardSelector == "" {
		return ""
	}
	return s.Closest(cardSelector).AttrOr("id", "")
}

// imageSrc prefers the real source over lazy-loading placeholders
func imageSrc(img *goquery.Selection) string {
	src := strings.TrimSpace(img.AttrOr("src", ""))
	if src == "" || strings.HasPrefix(src, "data:") {
		src = strings.TrimSpace(img.AttrOr("data-src", ""))
	}
	return src
}

func acceptImage(src string, hosts []string) bool {
	if src == "" || strings.HasPrefix(src, "data:") {
		return false
	}
	path := strings.ToLower(strings.SplitN(src, "?", 2)[0])
	if strings.HasSuffix(path, ".png") || strings.HasSuffix(path, ".svg") {
		return false
	}
	if len(hosts) == 0 {
		return true
	}
	for _, host := range hosts {
		if strings.Contains(src, host) {
			return true
		}
	}
	return false
}

// cleanText trims and collapses runs of whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
