package antibot

import (
	"errors"
	"testing"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    bool
		trigger string
	}{
		{
			name:    "captcha phrase",
			html:    `<p>Please complete the CAPTCHA</p>`,
			want:    true,
			trigger: "phrase:captcha",
		},
		{
			name:    "verify human",
			html:    `<h2>Verify you are human by completing the action below.</h2>`,
			want:    true,
			trigger: "phrase:verify you are human",
		},
		{
			name:    "please verify",
			html:    `<div>Please verify your request</div>`,
			want:    true,
			trigger: "phrase:please verify",
		},
		{
			name:    "cloudflare frame",
			html:    `<iframe src="https://challenges.cloudflare.com/cdn-cgi/turnstile"></iframe>`,
			want:    true,
			trigger: "iframe:challenges.cloudflare.com",
		},
		{
			name:    "hcaptcha frame",
			html:    `<iframe src="https://newassets.HCAPTCHA.com/x"></iframe>`,
			want:    true,
			trigger: "phrase:captcha",
		},
		{
			name: "clean listing page",
			html: `<ul><li aria-label="Listing"><a href="/ad/1">iPhone 13</a></li></ul>`,
			want: false,
		},
		{
			name: "unrelated iframe",
			html: `<iframe src="https://www.youtube.com/embed/x"></iframe>`,
			want: false,
		},
		{
			name: "empty",
			html: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, found := Detect(tt.html)
			assert.Equal(t, tt.want, found)
			assert.Equal(t, tt.trigger, trigger)
			assert.Equal(t, tt.want, IsChallengePresent(tt.html))
		})
	}
}

func TestDetectMatchesMarkupNotOnlyText(t *testing.T) {
	// The scan covers the raw source, so attribute values are enough.
	assert.True(t, IsChallengePresent(`<div id="g-recaptcha-response"></div>`))
}

func TestDismissOverlaysPhraseOrder(t *testing.T) {
	ok := browsertest.Button("OK")
	accept := browsertest.Button("Accept all cookies")
	f := browsertest.New(map[string]*browsertest.Page{
		"https://example.com": {
			Elements: map[string][]*browsertest.Element{
				"button": {ok, accept},
			},
		},
	})
	_, err := f.Navigate(t.Context(), "https://example.com")
	require.NoError(t, err)

	assert.True(t, DismissOverlays(f, nil))
	assert.Equal(t, 1, accept.Clicks())
	assert.Equal(t, 0, ok.Clicks())
}

func TestDismissOverlaysSkipsUnclickable(t *testing.T) {
	broken := &browsertest.Element{TextValue: "Accept", ClickErr: errors.New("element is not visible")}
	agree := browsertest.Button("I Agree")
	f := browsertest.New(map[string]*browsertest.Page{
		"https://example.com": {
			Elements: map[string][]*browsertest.Element{
				"button": {broken, agree},
			},
		},
	})
	_, err := f.Navigate(t.Context(), "https://example.com")
	require.NoError(t, err)

	assert.True(t, DismissOverlays(f, nil))
	assert.Equal(t, 1, agree.Clicks())
}

func TestDismissOverlaysLocalizedPhrase(t *testing.T) {
	btn := browsertest.Button("موافق")
	f := browsertest.New(map[string]*browsertest.Page{
		"https://example.com": {
			Elements: map[string][]*browsertest.Element{"button": {btn}},
		},
	})
	_, err := f.Navigate(t.Context(), "https://example.com")
	require.NoError(t, err)

	assert.True(t, DismissOverlays(f, nil))
	assert.Equal(t, 1, btn.Clicks())
}

func TestDismissOverlaysFallback(t *testing.T) {
	x := browsertest.Button("×")
	f := browsertest.New(map[string]*browsertest.Page{
		"https://example.com": {
			Elements: map[string][]*browsertest.Element{
				"button":            {browsertest.Button("Search")},
				closeButtonSelector: {x},
			},
		},
	})
	_, err := f.Navigate(t.Context(), "https://example.com")
	require.NoError(t, err)

	assert.True(t, DismissOverlays(f, nil))
	assert.Equal(t, 1, x.Clicks())
}

func TestDismissOverlaysNothingToClick(t *testing.T) {
	f := browsertest.New(map[string]*browsertest.Page{
		"https://example.com": {},
	})
	_, err := f.Navigate(t.Context(), "https://example.com")
	require.NoError(t, err)

	assert.False(t, DismissOverlays(f, nil))
	assert.False(t, DismissOverlays(nil, nil))
}

func TestDismissOverlaysMatchesWholeWords(t *testing.T) {
	facebook := browsertest.Button("Continue with Facebook")
	book := browsertest.Button("Book a viewing")
	ok := browsertest.Button("OK!")
	f := browsertest.New(map[string]*browsertest.Page{
		"https://example.com": {
			Elements: map[string][]*browsertest.Element{
				"button": {facebook, book, ok},
			},
		},
	})
	_, err := f.Navigate(t.Context(), "https://example.com")
	require.NoError(t, err)

	assert.True(t, DismissOverlays(f, nil))
	assert.Equal(t, 0, facebook.Clicks())
	assert.Equal(t, 0, book.Clicks())
	assert.Equal(t, 1, ok.Clicks())
}

func TestContainsWords(t *testing.T) {
	tests := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"Accept all cookies", "accept", true},
		{"Yes, I agree", "yes, i agree", true},
		{"I agree", "yes, i agree", false},
		{"Facebook", "ok", false},
		{"Got it!", "got it", true},
		{"Allowance", "allow", false},
		{"موافق", "موافق", true},
		{"", "ok", false},
	}

	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.phrase, func(t *testing.T) {
			assert.Equal(t, tt.want, containsWords(wordsOf(tt.text), wordsOf(tt.phrase)))
		})
	}
}
