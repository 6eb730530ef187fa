package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"chat-core/domain"
	"chat-core/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, limitMessages *int) *Store {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	req.NoError(err)

	store, err := NewStore(db, slog.Default(), limitMessages)
	req.NoError(err)

	t.Cleanup(func() {
		_ = store.Close()
		_ = db.Close()
	})
	return store
}

func TestStore_OpenConversation_Is_Deduplicated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, nil)

	// When the same pair opens a conversation twice, in either order
	first, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)
	second, err := store.OpenConversation(ctx, "bob", "alice", nil)
	req.NoError(err)

	// Then both calls return the same conversation
	req.Equal(first.ID, second.ID)
	req.Equal(first.ParticipantA, second.ParticipantA)

	// And a different job context opens a distinct conversation
	scoped, err := store.OpenConversation(ctx, "alice", "bob", lo.ToPtr(int64(42)))
	req.NoError(err)
	req.NotEqual(first.ID, scoped.ID)
}

func TestStore_GetConversation_Not_Found(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	_, err := store.GetConversation(context.Background(), 999)
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func TestStore_Append_Requires_Existing_Conversation(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	_, err := store.Append(context.Background(), 999, "alice", "hi")
	req.ErrorIs(err, errors.ErrConversationNotFound)
}

func TestStore_Append_Rejects_Empty_Content(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, nil)

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)

	_, err = store.Append(ctx, conversation.ID, "alice", "")
	req.ErrorIs(err, errors.ErrEmptyContent)

	_, err = store.Append(ctx, conversation.ID, "alice", "   ")
	req.ErrorIs(err, errors.ErrEmptyContent)
}

func TestStore_Append_Touches_Last_Activity(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, nil)

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)

	// When a message is appended
	message, err := store.Append(ctx, conversation.ID, "alice", "hi there")
	req.NoError(err)
	req.False(message.Read)
	req.Equal(domain.UserID("alice"), message.SenderID)

	// Then the conversation's last activity equals the message instant
	touched, err := store.GetConversation(ctx, conversation.ID)
	req.NoError(err)
	req.Equal(message.CreatedAt, touched.LastActivityAt)
	req.True(touched.LastActivityAt.After(conversation.LastActivityAt))
}

func TestStore_Append_Order_Is_Call_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, nil)

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)

	// When messages are appended in quick succession
	contents := []string{"one", "two", "three", "four", "five"}
	var appended []domain.Message
	for _, content := range contents {
		message, err := store.Append(ctx, conversation.ID, "alice", content)
		req.NoError(err)
		appended = append(appended, message)
	}

	// Then timestamps strictly increase per conversation
	for i := 1; i < len(appended); i++ {
		req.True(appended[i].CreatedAt.After(appended[i-1].CreatedAt))
	}

	// And the store returns them newest first
	fetched, _, err := store.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Len(fetched, len(contents))
	for i, message := range fetched {
		req.Equal(contents[len(contents)-1-i], message.Content)
	}
}

func TestStore_GetMessages_Cursor_Pagination(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, lo.ToPtr(2))

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)

	for _, content := range []string{"one", "two", "three", "four", "five"} {
		_, err = store.Append(ctx, conversation.ID, "alice", content)
		req.NoError(err)
	}

	// First page: the two newest
	page, cursor, err := store.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal("five", page[0].Content)
	req.Equal("four", page[1].Content)
	req.NotNil(cursor)

	// Second page resumes past the cursor
	page, cursor, err = store.GetMessages(ctx, conversation.ID, cursor)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal("three", page[0].Content)
	req.Equal("two", page[1].Content)

	// Last page holds the remainder and signals the end of the log
	page, cursor, err = store.GetMessages(ctx, conversation.ID, cursor)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("one", page[0].Content)
	req.Nil(cursor)
}

func TestStore_GetMessages_Empty_Conversation_Has_No_Cursor(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, lo.ToPtr(2))

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)

	// An empty log yields an empty page and no next cursor
	page, cursor, err := store.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Empty(page)
	req.Nil(cursor)
}

func TestStore_Concurrent_Appends_To_One_Conversation_All_Succeed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, nil)

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)

	// When several connections send into the same conversation at once,
	// every append rewrites the conversation record. Transaction
	// conflicts must be absorbed, never surfaced to a valid sender.
	senders := 8
	errs := make(chan error, senders)
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Append(ctx, conversation.ID, "alice", fmt.Sprintf("message %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	// Then every append succeeded
	for err := range errs {
		req.NoError(err)
	}

	// And every message was persisted, in strictly increasing order
	fetched, _, err := store.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Len(fetched, senders)
	for i := 1; i < len(fetched); i++ {
		req.True(fetched[i-1].CreatedAt.After(fetched[i].CreatedAt))
	}
}

func TestStore_Concurrent_OpenConversation_Yields_One_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, nil)

	// When the same pair opens a conversation from several goroutines
	openers := 8
	type result struct {
		id  domain.ConversationID
		err error
	}
	results := make(chan result, openers)
	var wg sync.WaitGroup
	for i := 0; i < openers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
			results <- result{id: conversation.ID, err: err}
		}()
	}
	wg.Wait()
	close(results)

	// Then every call succeeded and resolved to the same conversation
	var first domain.ConversationID
	for r := range results {
		req.NoError(r.err)
		if first == 0 {
			first = r.id
		}
		req.Equal(first, r.id)
	}
}

func TestStore_MarkRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newTestStore(t, nil)

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)
	message, err := store.Append(ctx, conversation.ID, "alice", "hi")
	req.NoError(err)

	// When the recipient marks the message read
	req.NoError(store.MarkRead(ctx, conversation.ID, message.ID.String()))

	fetched, _, err := store.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.True(fetched[0].Read)

	// Marking in the wrong conversation fails
	err = store.MarkRead(ctx, conversation.ID+1, message.ID.String())
	req.ErrorIs(err, errors.ErrMessageNotFound)

	// Unknown ids fail
	err = store.MarkRead(ctx, conversation.ID, "not-a-uuid")
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func TestStore_Messages_Survive_Reopen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	db, err := badger.Open(badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	store, err := NewStore(db, slog.Default(), nil)
	req.NoError(err)

	conversation, err := store.OpenConversation(ctx, "alice", "bob", nil)
	req.NoError(err)
	_, err = store.Append(ctx, conversation.ID, "alice", "durable")
	req.NoError(err)

	req.NoError(store.Close())
	req.NoError(db.Close())

	// When the process restarts
	db, err = badger.Open(badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	store, err = NewStore(db, slog.Default(), nil)
	req.NoError(err)
	defer func() {
		_ = store.Close()
		_ = db.Close()
	}()

	// Then the appended message is still there
	fetched, _, err := store.GetMessages(ctx, conversation.ID, nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("durable", fetched[0].Content)
}
