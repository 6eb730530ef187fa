package repositories

import (
	"context"
	"fmt"
	"time"

	"chat-core/domain"
	"chat-core/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

// diskConversation is the on-disk shape of a conversation record.
type diskConversation struct {
	ID             int64  `cbor:"1,keyasint"`
	ParticipantA   string `cbor:"2,keyasint"`
	ParticipantB   string `cbor:"3,keyasint"`
	JobID          *int64 `cbor:"4,keyasint,omitempty"`
	CreatedAt      int64  `cbor:"5,keyasint"`
	LastActivityAt int64  `cbor:"6,keyasint"`
}

func conversationKey(id domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("conv:%019d", id))
}

// pairKey indexes the unordered participant pair plus the optional job
// context. Participants are sorted so (a,b) and (b,a) map to the same
// key.
func pairKey(a, b domain.UserID, jobID *int64) []byte {
	if b < a {
		a, b = b, a
	}
	job := "-"
	if jobID != nil {
		job = fmt.Sprintf("%d", *jobID)
	}
	return []byte(fmt.Sprintf("convpair:%s:%s:%s", a, b, job))
}

// OpenConversation returns the existing conversation for the pair and
// job context, or creates one. The pair index makes the call safe to
// repeat: opening an already open conversation never duplicates it.
func (s *Store) OpenConversation(_ context.Context, a, b domain.UserID, jobID *int64) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := s.runTxn(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(a, b, jobID))
		if err == nil {
			// Already open: resolve the id and load the record.
			var id domain.ConversationID
			if err = item.Value(func(val []byte) error {
				_, scanErr := fmt.Sscanf(string(val), "%d", &id)
				return scanErr
			}); err != nil {
				return err
			}
			conversation, err = getConversationTxn(txn, id)
			return err
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		next, err := s.seq.Next()
		if err != nil {
			return fmt.Errorf("next conversation id: %w", err)
		}
		now := time.Now().UTC()
		conversation = domain.Conversation{
			// The badger sequence starts at zero; ids start at one.
			ID:             domain.ConversationID(next + 1),
			ParticipantA:   a,
			ParticipantB:   b,
			JobID:          jobID,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		data, err := cbor.Marshal(fromConversation(conversation))
		if err != nil {
			return err
		}
		if err = txn.Set(conversationKey(conversation.ID), data); err != nil {
			return err
		}
		return txn.Set(pairKey(a, b, jobID), []byte(fmt.Sprintf("%d", conversation.ID)))
	})
	return conversation, err
}

func (s *Store) GetConversation(_ context.Context, id domain.ConversationID) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		conversation, err = getConversationTxn(txn, id)
		return err
	})
	return conversation, err
}

func getConversationTxn(txn *badger.Txn, id domain.ConversationID) (domain.Conversation, error) {
	item, err := txn.Get(conversationKey(id))
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, errors.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	var disk diskConversation
	if err = item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &disk)
	}); err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(disk), nil
}

func fromConversation(c domain.Conversation) diskConversation {
	return diskConversation{
		ID:             int64(c.ID),
		ParticipantA:   string(c.ParticipantA),
		ParticipantB:   string(c.ParticipantB),
		JobID:          c.JobID,
		CreatedAt:      c.CreatedAt.UnixNano(),
		LastActivityAt: c.LastActivityAt.UnixNano(),
	}
}

func toConversation(d diskConversation) domain.Conversation {
	return domain.Conversation{
		ID:             domain.ConversationID(d.ID),
		ParticipantA:   domain.UserID(d.ParticipantA),
		ParticipantB:   domain.UserID(d.ParticipantB),
		JobID:          d.JobID,
		CreatedAt:      time.Unix(0, d.CreatedAt).UTC(),
		LastActivityAt: time.Unix(0, d.LastActivityAt).UTC(),
	}
}
