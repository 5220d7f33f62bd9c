package push

// Payload is the ephemeral message fanned out to every active subscription.
// It is serialized once per broadcast, not per endpoint. Persistence of the
// sent record is the caller's concern.
type Payload struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Image              string `json:"image,omitempty"`
	Icon               string `json:"icon,omitempty"`
	Link               string `json:"link,omitempty"`
	Tag                string `json:"tag,omitempty"`
	RequireInteraction bool   `json:"requireInteraction,omitempty"`
}

// Result is the aggregate broadcast outcome. Per-endpoint failures are only
// logged; callers get counts.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
