package repositories

import (
	"chat-core/domain"

	"github.com/fxamacker/cbor/v2"
)

// DecodeMessage decodes a raw msg: value. Used by read-only tooling.
func DecodeMessage(val []byte) (domain.Message, error) {
	var disk diskMessage
	if err := cbor.Unmarshal(val, &disk); err != nil {
		return domain.Message{}, err
	}
	return toMessage(disk)
}

// DecodeConversation decodes a raw conv: value. Used by read-only
// tooling.
func DecodeConversation(val []byte) (domain.Conversation, error) {
	var disk diskConversation
	if err := cbor.Unmarshal(val, &disk); err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(disk), nil
}
