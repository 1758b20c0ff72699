package bindings

// Action identifiers, stable across config files.
const (
	ActionConnectToggle ActionID = "connection.toggle"
	ActionFocusURL      ActionID = "url.focus"
	ActionSendMessage   ActionID = "message.send"
	ActionPing          ActionID = "connection.ping"
	ActionNextRequest   ActionID = "request.next"
	ActionPrevRequest   ActionID = "request.prev"
	ActionClearLog      ActionID = "log.clear"
	ActionCopyURL       ActionID = "url.copy"
	ActionToggleHelp    ActionID = "help.toggle"
	ActionQuit          ActionID = "app.quit"
)

type definition struct {
	id       ActionID
	defaults [][]string
}

// The connect toggle stays single-step so one keypress maps to exactly one
// submit; chords would make the toggle observable mid-sequence.
var definitions = []definition{
	{id: ActionConnectToggle, defaults: [][]string{{"ctrl+enter"}, {"ctrl+r"}}},
	{id: ActionFocusURL, defaults: [][]string{{"ctrl+l"}}},
	{id: ActionSendMessage, defaults: [][]string{{"ctrl+s"}}},
	{id: ActionPing, defaults: [][]string{{"ctrl+p"}}},
	{id: ActionNextRequest, defaults: [][]string{{"ctrl+j"}, {"g", "n"}}},
	{id: ActionPrevRequest, defaults: [][]string{{"ctrl+k"}, {"g", "p"}}},
	{id: ActionClearLog, defaults: [][]string{{"g", "c"}}},
	{id: ActionCopyURL, defaults: [][]string{{"g", "y"}}},
	{id: ActionToggleHelp, defaults: [][]string{{"shift+/"}}},
	{id: ActionQuit, defaults: [][]string{{"ctrl+c"}}},
}

var definitionLookup = func() map[ActionID]definition {
	lookup := make(map[ActionID]definition, len(definitions))
	for _, def := range definitions {
		lookup[def.id] = def
	}
	return lookup
}()
