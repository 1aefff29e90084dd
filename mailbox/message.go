package mailbox

// InboundMessage is one unread message as fetched from the provider.
// Immutable once fetched; the body is the provider snippet, which stands in
// for full MIME body extraction.
type InboundMessage struct {
	ID      string
	Subject string
	Sender  string // Raw "From" header value
	Body    string
	Snippet string
}

// DraftRequest describes one reply draft to be stored at the provider.
type DraftRequest struct {
	ToAddress string
	Subject   string
	Body      string
}
