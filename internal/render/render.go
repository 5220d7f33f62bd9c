// Package render holds the worker-side decision logic for push events: how a
// received payload becomes a system notification, and what a click on it
// does. Everything here is pure; the runtime glue lives with the caller.
package render

import "encoding/json"

// Defaults applied when the payload omits a field or cannot be parsed.
const (
	DefaultIcon  = "/icon-192x192.png"
	DefaultBadge = "/icon-192x192.png"
	DefaultTag   = "default"
	DefaultURL   = "/"

	defaultTitle = "CPL"
	defaultBody  = "There is news from the lab."
)

// Action is a button offered on the rendered notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is the fully resolved render instruction. Tag lets the
// platform replace a prior notification with the same tag instead of
// stacking a new one.
type Notification struct {
	Title              string   `json:"title"`
	Body               string   `json:"body"`
	Icon               string   `json:"icon"`
	Badge              string   `json:"badge"`
	Image              string   `json:"image,omitempty"`
	Tag                string   `json:"tag"`
	URL                string   `json:"url"`
	RequireInteraction bool     `json:"requireInteraction"`
	Actions            []Action `json:"actions,omitempty"`
}

type pushPayload struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Image              string `json:"image"`
	Icon               string `json:"icon"`
	Link               string `json:"link"`
	Tag                string `json:"tag"`
	RequireInteraction bool   `json:"requireInteraction"`
}

// RenderPush resolves a push event payload into a Notification. Empty or
// unparseable data yields the generic default; per-field defaults fill
// whatever the payload leaves out.
func RenderPush(data []byte) Notification {
	n := Notification{
		Title: defaultTitle,
		Body:  defaultBody,
		Icon:  DefaultIcon,
		Badge: DefaultBadge,
		Tag:   DefaultTag,
		URL:   DefaultURL,
	}

	if len(data) == 0 {
		return n
	}

	var p pushPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return n
	}

	if p.Title != "" {
		n.Title = p.Title
	}
	if p.Body != "" {
		n.Body = p.Body
	}
	if p.Icon != "" {
		n.Icon = p.Icon
	}
	if p.Tag != "" {
		n.Tag = p.Tag
	}
	n.Image = p.Image
	n.RequireInteraction = p.RequireInteraction

	if p.Link != "" {
		n.URL = p.Link
		n.Actions = []Action{
			{Action: "open", Title: "Open"},
			{Action: "close", Title: "Close"},
		}
	}

	return n
}
