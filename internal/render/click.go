package render

// ActionClose is the dismiss button; a click on it does nothing further.
const ActionClose = "close"

// ClickKind is what the runtime should do after a notification click.
type ClickKind int

const (
	// ClickNone closes the notification and stops.
	ClickNone ClickKind = iota
	// ClickFocus brings an already-open window to the front.
	ClickFocus
	// ClickOpen opens a new window at URL.
	ClickOpen
)

// ClickDecision resolves to either nothing, focusing openWindows[Window],
// or opening URL in a new window.
type ClickDecision struct {
	Kind   ClickKind
	Window int
	URL    string
}

// ResolveClick decides what a click on a rendered notification does. The
// notification is always closed first; that side effect is the caller's.
// openWindows are the URLs of the currently open same-origin windows.
func ResolveClick(action, target string, openWindows []string) ClickDecision {
	if action == ActionClose {
		return ClickDecision{Kind: ClickNone}
	}
	if target == "" {
		target = DefaultURL
	}

	for i, url := range openWindows {
		if url == target {
			return ClickDecision{Kind: ClickFocus, Window: i}
		}
	}
	return ClickDecision{Kind: ClickOpen, URL: target}
}
