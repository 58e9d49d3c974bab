package remote

// Message types exchanged between the WebSocket client and the document
// server. Every frame is one JSON-encoded wireMessage.
const (
	msgSubscribe = "subscribe" // client -> server: open a document stream
	msgPut       = "put"       // client -> server: replace the document
	msgSnapshot  = "snapshot"  // server -> client: full document state
	msgAck       = "ack"       // server -> client: put accepted
	msgError     = "error"     // server -> client: request failed
)

// wireMessage is the single frame shape of the document protocol.
type wireMessage struct {
	Type    string         `json:"type"`
	User    string         `json:"user,omitempty"`
	Token   string         `json:"token,omitempty"`
	Exists  bool           `json:"exists"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}
