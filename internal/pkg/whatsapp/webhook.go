package whatsapp

// WebhookPayload mirrors the Graph API webhook envelope for inbound
// messages. Only the text fields the command channel needs are mapped.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
}

type Message struct {
	From string       `json:"from"`
	ID   string       `json:"id"`
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Body string `json:"body"`
}

// TextMessages flattens the envelope into the inbound text messages it
// carries, skipping non-text types.
func (p *WebhookPayload) TextMessages() []Message {
	var out []Message
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type == "text" && msg.Text != nil {
					out = append(out, msg)
				}
			}
		}
	}
	return out
}
