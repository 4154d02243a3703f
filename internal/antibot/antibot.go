// Package antibot holds best-effort heuristics for verification challenges
// and consent overlays.
package antibot

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
)

var triggerPhrases = []string{"captcha", "recaptcha", "please verify", "verify you are human"}

var challengeProviders = []string{"recaptcha", "hcaptcha", "challenges.cloudflare.com"}

// DismissPhrases are matched against button text in this order.
var DismissPhrases = []string{"accept", "agree", "got it", "allow", "yes, i agree", "close", "ok", "موافق"}

const closeButtonSelector = `button[class*="close"], button[aria-label*="close"], button[aria-label*="dismiss"]`

// Detect reports whether html looks like a verification challenge and which
// signal fired. The lexical scan runs over the raw lower-cased source, so
// markup and script bodies count too.
func Detect(html string) (string, bool) {
	low := strings.ToLower(html)
	for _, phrase := range triggerPhrases {
		if strings.Contains(low, phrase) {
			return "phrase:" + phrase, true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var trigger string
	doc.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := strings.ToLower(s.AttrOr("src", ""))
		for _, provider := range challengeProviders {
			if strings.Contains(src, provider) {
				trigger = "iframe:" + provider
				return false
			}
		}
		return true
	})
	if trigger != "" {
		return trigger, true
	}

	doc.Find("div[class], section[class], form[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, token := range strings.Fields(s.AttrOr("class", "")) {
			if strings.Contains(strings.ToLower(token), "captcha") {
				trigger = "class:" + token
				return false
			}
		}
		return true
	})
	return trigger, trigger != ""
}

func IsChallengePresent(html string) bool {
	_, found := Detect(html)
	return found
}

// DismissOverlays clicks the first consent or close button it can find on the
// live page. Click failures are skipped.
func DismissOverlays(f browser.Fetcher, logger *slog.Logger) bool {
	if f == nil {
		return false
	}
	if logger == nil {
		logger = slog.Default()
	}

	buttons, err := f.FindAll("button")
	if err != nil {
		logger.Debug("failed to list buttons", "error", err)
	}

	words := make([][]string, len(buttons))
	for i, b := range buttons {
		text, err := b.Text()
		if err != nil {
			continue
		}
		words[i] = wordsOf(text)
	}

	for _, phrase := range DismissPhrases {
		want := wordsOf(phrase)
		for i, b := range buttons {
			if !containsWords(words[i], want) {
				continue
			}
			if err := b.Click(); err != nil {
				logger.Debug("overlay button not clickable", "phrase", phrase, "error", err)
				continue
			}
			logger.Info("dismissed overlay", "phrase", phrase)
			return true
		}
	}

	closers, err := f.FindAll(closeButtonSelector)
	if err != nil {
		logger.Debug("failed to list close buttons", "error", err)
		return false
	}
	for _, b := range closers {
		if err := b.Click(); err != nil {
			continue
		}
		logger.Info("dismissed overlay with close button")
		return true
	}
	return false
}

// wordsOf lower-cases s and splits it on anything that is not a letter or digit.
func wordsOf(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsWords reports whether want appears as a contiguous run of whole
// words in have, so "ok" matches "OK!" but not "Facebook".
func containsWords(have, want []string) bool {
	if len(want) == 0 {
		return false
	}
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j, w := range want {
			if have[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
