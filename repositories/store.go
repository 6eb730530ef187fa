//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"sync"

	"chat-core/domain"

	"github.com/dgraph-io/badger/v4"
)

const (
	conversationSequenceKey = "seq:conversation"

	// Badger transactions are optimistic. Concurrent appends to one
	// conversation both rewrite the conversation record, so conflicts
	// are expected under load and must not surface to a sender whose
	// input was valid.
	txnMaxAttempts = 10
)

// Store is the durable gateway over BadgerDB. It owns three key
// families:
//
//	conv:{id}                 conversation record
//	convpair:{a}:{b}:{job}    unordered-pair index, value is the id
//	msg:{conv}:{ts}:{uuid}    message record, chronologically sorted
//	idx:msg:{uuid}            message id to full message key
//
// Timestamps in message keys are zero padded to 19 digits so that
// lexicographical order equals chronological order.
type Store struct {
	db            *badger.DB
	log           *slog.Logger
	seq           *badger.Sequence
	limitMessages *int

	mu       sync.Mutex
	lastNano map[domain.ConversationID]int64
}

func NewStore(db *badger.DB, log *slog.Logger, limitMessages *int) (*Store, error) {
	seq, err := db.GetSequence([]byte(conversationSequenceKey), 16)
	if err != nil {
		return nil, fmt.Errorf("conversation sequence: %w", err)
	}
	return &Store{
		db:            db,
		log:           log,
		seq:           seq,
		limitMessages: limitMessages,
		lastNano:      make(map[domain.ConversationID]int64),
	}, nil
}

// Close releases the badger sequence. The caller owns the DB handle.
func (s *Store) Close() error {
	return s.seq.Release()
}

// runTxn executes a read-write transaction, retrying on optimistic
// conflicts. The closure must be safe to re-run from scratch.
func (s *Store) runTxn(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < txnMaxAttempts; attempt++ {
		err = s.db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
		s.log.Debug("Transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}
