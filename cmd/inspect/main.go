// Command inspect dumps conversation and message records from a duochat
// BadgerDB in a readable table. Read-only; safe to run while a client
// holds the database lock.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

type metadataRecord struct {
	Participants [2]string `json:"participants"`
	LastMessage  string    `json:"last_message"`
	LastAt       int64     `json:"last_at"`
}

type messageRecord struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	At      int64  `json:"at"`
}

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	prefix := flag.String("prefix", "conv:", "Prefix to scan (conv: or msg:)")
	flag.Parse()
	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Conversation", "Sender", "Content", "At"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				table.Append(toRow(key, val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}
	table.Render()
}

func toRow(key string, val []byte) []string {
	switch {
	case strings.HasPrefix(key, "conv:"):
		var record metadataRecord
		if err := json.Unmarshal(val, &record); err != nil {
			return []string{key, "?", "", "", ""}
		}
		conversation := strings.TrimPrefix(key, "conv:")
		return []string{key, conversation, record.Participants[0] + "+" + record.Participants[1],
			record.LastMessage, formatNanos(record.LastAt)}
	case strings.HasPrefix(key, "msg:"):
		var record messageRecord
		if err := json.Unmarshal(val, &record); err != nil {
			return []string{key, "?", "", "", ""}
		}
		parts := strings.SplitN(strings.TrimPrefix(key, "msg:"), ":", 3)
		return []string{key, parts[0], record.Sender, record.Content, formatNanos(record.At)}
	default:
		return []string{key, "", "", fmt.Sprintf("%d bytes", len(val)), ""}
	}
}

func formatNanos(ns int64) string {
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}
