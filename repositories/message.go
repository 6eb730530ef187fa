package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chat-core/domain"
	"chat-core/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// diskMessage is the on-disk shape of a message record.
type diskMessage struct {
	ID             string `cbor:"1,keyasint"`
	ConversationID int64  `cbor:"2,keyasint"`
	SenderID       string `cbor:"3,keyasint"`
	Content        string `cbor:"4,keyasint"`
	At             int64  `cbor:"5,keyasint"`
	Read           bool   `cbor:"6,keyasint"`
}

// messageKey formats "msg:{conversation}:{timestamp_padded}:{uuid}":
//  1. The 19-digit zero padding makes lexicographical order chronological.
//  2. The UUID disambiguates if two messages share a nanosecond, which
//     the per-conversation clock already prevents for a single process.
func messageKey(conversationID domain.ConversationID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%d:%019d:%s", conversationID, at.UnixNano(), id))
}

func messageIndexKey(id uuid.UUID) []byte {
	return []byte("idx:msg:" + id.String())
}

// nextTimestamp assigns the server timestamp for an append. Within one
// conversation the returned instants strictly increase even when the
// wall clock stalls, so persisted order is the order Append calls
// complete.
func (s *Store) nextTimestamp(conversationID domain.ConversationID) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	nano := time.Now().UTC().UnixNano()
	if last := s.lastNano[conversationID]; nano <= last {
		nano = last + 1
	}
	s.lastNano[conversationID] = nano
	return time.Unix(0, nano).UTC()
}

// Append durably persists a message and moves the conversation's
// last-activity marker to the same instant, in one transaction. The
// returned Message is authoritative: callers may broadcast it as soon
// as Append succeeds.
func (s *Store) Append(_ context.Context, conversationID domain.ConversationID, senderID domain.UserID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}

	at := s.nextTimestamp(conversationID)
	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
		Read:           false,
	}

	err := s.runTxn(func(txn *badger.Txn) error {
		conversation, err := getConversationTxn(txn, conversationID)
		if err != nil {
			return err
		}

		data, err := cbor.Marshal(fromMessage(message))
		if err != nil {
			return err
		}
		key := messageKey(conversationID, at, message.ID)
		if err = txn.Set(key, data); err != nil {
			return err
		}
		if err = txn.Set(messageIndexKey(message.ID), key); err != nil {
			return err
		}

		conversation.LastActivityAt = at
		convData, err := cbor.Marshal(fromConversation(conversation))
		if err != nil {
			return err
		}
		return txn.Set(conversationKey(conversationID), convData)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetMessages retrieves messages for a conversation using a reverse
// prefix scan, newest first. Thanks to the padded timestamp in the key,
// messages are naturally sorted by time. The returned cursor resumes
// the scan on the next page; collection stops once the configured
// limit is reached. A nil cursor means the log is exhausted.
func (s *Store) GetMessages(_ context.Context, conversationID domain.ConversationID, cursor *string) ([]domain.Message, *string, error) {
	var rawMessages [][]byte
	var lastKey string
	var limitReached bool
	err := s.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%d:", conversationID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk back.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if s.limitMessages != nil && len(rawMessages) == *s.limitMessages {
				s.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *s.limitMessages))
				limitReached = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []domain.Message
	for _, raw := range rawMessages {
		var disk diskMessage
		if err = cbor.Unmarshal(raw, &disk); err != nil {
			return nil, nil, err
		}
		message, err := toMessage(disk)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}

	// A nil cursor marks the end of the log: the scan ran out of keys
	// instead of hitting the page limit.
	if !limitReached {
		return messages, nil, nil
	}
	return messages, lo.ToPtr(lastKey), nil
}

// MarkRead flips the read flag of one message, located through the id
// index.
func (s *Store) MarkRead(_ context.Context, conversationID domain.ConversationID, messageID string) error {
	id, err := uuid.Parse(messageID)
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrMessageNotFound, messageID)
	}
	return s.runTxn(func(txn *badger.Txn) error {
		indexItem, err := txn.Get(messageIndexKey(id))
		if err == badger.ErrKeyNotFound {
			return errors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		var key []byte
		if err = indexItem.Value(func(val []byte) error {
			key = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var disk diskMessage
		if err = item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &disk)
		}); err != nil {
			return err
		}
		if domain.ConversationID(disk.ConversationID) != conversationID {
			return errors.ErrMessageNotFound
		}
		disk.Read = true
		data, err := cbor.Marshal(disk)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func fromMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:             m.ID.String(),
		ConversationID: int64(m.ConversationID),
		SenderID:       string(m.SenderID),
		Content:        m.Content,
		At:             m.CreatedAt.UnixNano(),
		Read:           m.Read,
	}
}

func toMessage(d diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             parsedID,
		ConversationID: domain.ConversationID(d.ConversationID),
		SenderID:       domain.UserID(d.SenderID),
		Content:        d.Content,
		CreatedAt:      time.Unix(0, d.At).UTC(),
		Read:           d.Read,
	}, nil
}
