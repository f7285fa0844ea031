package chat

import (
	"errors"
	"fmt"
)

// User-visible messages written to State.LastError.
const (
	msgAPIKeyRequired = "API key cannot be empty"
	msgNotInitialized = "Please initialize chat with API key first"
	msgImageFailed    = "Failed to generate image"
	chatErrorPrefix   = "Error: "
	imageErrorPrefix  = "Error generating image: "
	initErrorPrefix   = "Error initializing chat: "
)

var (
	// ErrAPIKeyRequired rejects initialization with a blank credential.
	ErrAPIKeyRequired = errors.New(msgAPIKeyRequired)
	// ErrNotInitialized rejects actions attempted before initialization.
	ErrNotInitialized = errors.New(msgNotInitialized)
	// ErrEmptyImage reports a well-formed image response without a usable payload.
	ErrEmptyImage = errors.New(msgImageFailed)
	// ErrConversationNotFound reports an unknown conversation id.
	ErrConversationNotFound = errors.New("conversation not found")
)

// RemoteCallError wraps a failure of the chat or image endpoint.
type RemoteCallError struct {
	Op  string
	Err error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is an initialization input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrAPIKeyRequired)
}

// IsPrecondition reports whether err comes from acting before initialization.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNotInitialized)
}

// IsRemote reports whether err comes from the remote model.
func IsRemote(err error) bool {
	var remote *RemoteCallError
	return errors.As(err, &remote) || errors.Is(err, ErrEmptyImage)
}
