package domain

// AiMessage is one turn of the assistant chat. Messages are append-only: the
// sync engine never mutates or deletes them, it only uploads and mirrors them.
type AiMessage struct {
	ID        int64
	RemoteID  string
	Text      string
	IsAi      bool // false = user turn, true = assistant turn
	Timestamp int64
	Synced    bool
}

// Equal compares all fields plus sync state.
func (m AiMessage) Equal(o AiMessage) bool {
	return m == o
}

// SameValues ignores ids and sync state.
func (m AiMessage) SameValues(o AiMessage) bool {
	return m.Text == o.Text && m.IsAi == o.IsAi && m.Timestamp == o.Timestamp
}
