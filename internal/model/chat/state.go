package chat

import "time"

// State is the snapshot observed by presentation clients. A published State is
// never mutated; every change produces a new value.
type State struct {
	Messages    []Turn `json:"messages"`
	IsLoading   bool   `json:"isLoading"`
	LastError   string `json:"lastError,omitempty"`
	Image       *Image `json:"image,omitempty"`
	Initialized bool   `json:"initialized"`
	Version     uint64 `json:"version"`
}

// Clone returns a copy whose Messages slice can be appended to without
// touching the receiver.
func (s State) Clone() State {
	out := s
	out.Messages = make([]Turn, len(s.Messages), len(s.Messages)+2)
	copy(out.Messages, s.Messages)
	return out
}

// Image is the last generated picture. Data holds the decoded bytes.
type Image struct {
	Data      []byte    `json:"-"`
	MIMEType  string    `json:"mimeType"`
	Format    string    `json:"format"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Size      int       `json:"size"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
}
