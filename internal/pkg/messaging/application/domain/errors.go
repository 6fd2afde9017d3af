package messaging

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors wrap one of these so callers can branch
// on the category with errors.Is without enumerating every failure mode.
var (
	ErrValidation      = errors.New("messaging: validation")
	ErrNotFound        = errors.New("messaging: not found")
	ErrConflict        = errors.New("messaging: conflict")
	ErrTransport       = errors.New("messaging: transport")
	ErrUnauthenticated = errors.New("messaging: unauthenticated")
)

// Domain-level errors for messaging behaviors
var (
	ErrEmptyMessage         = fmt.Errorf("%w: empty message body", ErrValidation)
	ErrSelfConversation     = fmt.Errorf("%w: cannot start a conversation with yourself", ErrValidation)
	ErrNotParticipant       = fmt.Errorf("%w: sender is not a participant in the conversation", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("%w: conversation does not exist", ErrNotFound)
	ErrUserBlocked          = fmt.Errorf("%w: message not allowed because one of the parties is blocked", ErrValidation)
	ErrBackdatedMessage     = fmt.Errorf("%w: message timestamp is backdated", ErrValidation)
	ErrDuplicatePair        = fmt.Errorf("%w: conversation already exists for this pair", ErrConflict)
)
