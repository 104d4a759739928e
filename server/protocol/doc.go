/*
Package protocol implements the per-session message loop that sits between
a duplex transport and the tool registry.

There are two frame kinds: "request" frames are sent client->server, and
"response" frames are sent server->client. The schema is described in
types.go.

The protocol proceeds as follows:

1. The client opens a duplex channel with the server (an SSE stream plus a
message-post endpoint, or a single WebSocket connection).
2. The client sends an initialization request. The server replies with its
identity and the list of available tools.
3. The client sends tool invocation requests; for each, the server replies
with a result or error frame carrying the request's correlation id.
4. When the channel closes, the loop exits and session state is released.

Responses for one session are written in the order their requests were
dispatched; there is no ordering guarantee across sessions.
*/
package protocol
