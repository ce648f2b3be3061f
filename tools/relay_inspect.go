// Command relay_inspect dumps the relay's Badger store as a table.
// Useful for poking at a live data directory without the HTTP surface.
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
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type storedParticipant struct {
	Name         string `json:"name"`
	LastActivity int64  `json:"last_activity"`
}

type storedMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	At   int64  `json:"at"`
}

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "participant:", "Prefix to scan (participant: or msg:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "At", "From", "To", "Detail"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				row, err := toRow(key, v)
				if err != nil {
					// Log the bad record and keep scanning.
					fmt.Printf("Error decoding key %s: %v\n", key, err)
					return nil
				}
				table.Append(row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
}

func toRow(key string, value []byte) ([]string, error) {
	switch {
	case strings.HasPrefix(key, "participant:"):
		var p storedParticipant
		if err := json.Unmarshal(value, &p); err != nil {
			return nil, err
		}
		at := time.Unix(0, p.LastActivity).UTC().Format("15:04:05")
		return []string{key, "PARTICIPANT", at, p.Name, "", "last heartbeat"}, nil
	case strings.HasPrefix(key, "msg:"):
		var m storedMessage
		if err := json.Unmarshal(value, &m); err != nil {
			return nil, err
		}
		at := time.Unix(0, m.At).UTC().Format("15:04:05")
		return []string{key, strings.ToUpper(m.Type), at, m.From, m.To, m.Text}, nil
	default:
		return []string{key, "RAW", "--:--:--", "", "", fmt.Sprintf("Size: %d bytes", len(value))}, nil
	}
}
