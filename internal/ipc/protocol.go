package ipc

// Commands served by a running listener.
const (
	CommandStatus   = "status"
	CommandStart    = "start"
	CommandAbort    = "abort"
	CommandHear     = "hear"
	CommandLanguage = "language"
)

// Request is one JSON line sent to the listener socket.
type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response is the JSON line written back for each request.
type Response struct {
	OK       bool     `json:"ok"`
	State    string   `json:"state,omitempty"`
	Language string   `json:"language,omitempty"`
	Message  string   `json:"message,omitempty"`
	Matched  string   `json:"matched,omitempty"`
	Params   []string `json:"params,omitempty"`
	Error    string   `json:"error,omitempty"`
}
