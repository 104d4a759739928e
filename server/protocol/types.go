package protocol

import "github.com/AgniRoy1234/sse-server/tools"

// RequestTypeInitialize marks the handshake frame that must open every
// session.
const RequestTypeInitialize = "initialize"

// Request is a single client->server frame: either an initialization
// request (Type set, Tool empty) or a tool invocation (Tool set).
type Request struct {
	// ID correlates the eventual response with this request.
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ServerInfo identifies the server in the initialization ack.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Response is a single server->client frame. Exactly one of Result or
// Error is set for invocation responses; initialization acks carry Server
// and Tools instead.
type Response struct {
	ID     string             `json:"id,omitempty"`
	Result *string            `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
	Server *ServerInfo        `json:"server,omitempty"`
	Tools  []tools.Descriptor `json:"tools,omitempty"`
}
