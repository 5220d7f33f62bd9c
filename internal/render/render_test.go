package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPushDefaults(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty payload", nil},
		{"unparseable payload", []byte("<not json>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := RenderPush(tt.data)
			assert.Equal(t, "CPL", n.Title)
			assert.Equal(t, "There is news from the lab.", n.Body)
			assert.Equal(t, DefaultIcon, n.Icon)
			assert.Equal(t, DefaultBadge, n.Badge)
			assert.Equal(t, DefaultTag, n.Tag)
			assert.Equal(t, DefaultURL, n.URL)
			assert.Empty(t, n.Actions)
		})
	}
}

func TestRenderPushFullPayload(t *testing.T) {
	n := RenderPush([]byte(`{"title":"T","body":"B","link":"/x"}`))

	assert.Equal(t, "T", n.Title)
	assert.Equal(t, "B", n.Body)
	assert.Equal(t, "/x", n.URL)
	assert.Equal(t, DefaultTag, n.Tag)
	assert.Equal(t, DefaultIcon, n.Icon)
	assert.Equal(t, []Action{
		{Action: "open", Title: "Open"},
		{Action: "close", Title: "Close"},
	}, n.Actions)
}

func TestRenderPushPartialPayload(t *testing.T) {
	n := RenderPush([]byte(`{"title":"Seminar moved","tag":"seminar","icon":"/s.png","image":"/hero.jpg","requireInteraction":true}`))

	assert.Equal(t, "Seminar moved", n.Title)
	assert.Equal(t, "There is news from the lab.", n.Body)
	assert.Equal(t, "/s.png", n.Icon)
	assert.Equal(t, "seminar", n.Tag)
	assert.Equal(t, "/hero.jpg", n.Image)
	assert.True(t, n.RequireInteraction)
	assert.Equal(t, DefaultURL, n.URL)
	assert.Empty(t, n.Actions, "no link means no action buttons")
}

func TestResolveClick(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		target  string
		windows []string
		want    ClickDecision
	}{
		{"close does nothing", ActionClose, "/x", []string{"/x"}, ClickDecision{Kind: ClickNone}},
		{"open target with no windows", "", "/x", nil, ClickDecision{Kind: ClickOpen, URL: "/x"}},
		{"focus matching window", "", "/x", []string{"/", "/x"}, ClickDecision{Kind: ClickFocus, Window: 1}},
		{"open when no window matches", "open", "/news", []string{"/", "/team"}, ClickDecision{Kind: ClickOpen, URL: "/news"}},
		{"empty target falls back to root", "", "", []string{"/team"}, ClickDecision{Kind: ClickOpen, URL: DefaultURL}},
		{"empty target focuses open root", "", "", []string{"/"}, ClickDecision{Kind: ClickFocus, Window: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveClick(tt.action, tt.target, tt.windows))
		})
	}
}

func TestRenderedLinkClickRoundTrip(t *testing.T) {
	n := RenderPush([]byte(`{"title":"T","body":"B","link":"/x"}`))

	got := ResolveClick("open", n.URL, nil)
	assert.Equal(t, ClickDecision{Kind: ClickOpen, URL: "/x"}, got)

	got = ResolveClick("", n.URL, []string{"/x"})
	assert.Equal(t, ClickDecision{Kind: ClickFocus, Window: 0}, got)
}
