// Command inspect dumps the contents of a chat-core badger store in a
// readable table. Read-only: safe to point at a live database
// directory copy.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"chat-core/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or conv:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	switch {
	case strings.HasPrefix(*prefix, "conv"):
		table.SetHeader([]string{"Key", "ID", "Participant A", "Participant B", "Job", "Last Activity"})
	default:
		table.SetHeader([]string{"Key", "Conversation", "Sender", "Content", "At", "Read"})
	}
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Skip secondary indexes: they hold keys, not records.
			if strings.HasPrefix(key, "idx:") || strings.HasPrefix(key, "convpair:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				switch {
				case strings.HasPrefix(key, "conv:"):
					conversation, err := repositories.DecodeConversation(v)
					if err != nil {
						color.Warn.Printf("Error decoding key %s: %v\n", key, err)
						return nil
					}
					job := "-"
					if conversation.JobID != nil {
						job = fmt.Sprintf("%d", *conversation.JobID)
					}
					table.Append([]string{
						key,
						fmt.Sprintf("%d", conversation.ID),
						string(conversation.ParticipantA),
						string(conversation.ParticipantB),
						job,
						conversation.LastActivityAt.Format("2006-01-02 15:04:05"),
					})
				case strings.HasPrefix(key, "msg:"):
					message, err := repositories.DecodeMessage(v)
					if err != nil {
						color.Warn.Printf("Error decoding key %s: %v\n", key, err)
						return nil
					}
					table.Append([]string{
						shortKey(key),
						fmt.Sprintf("%d", message.ConversationID),
						string(message.SenderID),
						message.Content,
						message.CreatedAt.Format("15:04:05.000"),
						fmt.Sprintf("%t", message.Read),
					})
				}
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	color.Info.Printf("%d records under prefix %q\n", rows, *prefix)
}

// shortKey truncates the uuid tail for readability.
func shortKey(key string) string {
	if len(key) > 48 {
		return key[:48] + "…"
	}
	return key
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
