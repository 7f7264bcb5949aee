package server

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dappmarket-org/dappmarket-go-base/ledger"
	"github.com/dappmarket-org/dappmarket-go-base/types/hex"
)

// EventStore mirrors committed ledger records into sqlite so past
// activity survives restarts and can be queried without holding the
// ledger lock.
type EventStore struct {
	db *sql.DB
}

const eventSchema = `
CREATE TABLE IF NOT EXISTS events (
	seq       INTEGER PRIMARY KEY,
	contract  TEXT NOT NULL,
	name      TEXT NOT NULL,
	topics    TEXT NOT NULL,
	data      BLOB NOT NULL,
	prev_hash TEXT NOT NULL,
	hash      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_name ON events(name);
CREATE INDEX IF NOT EXISTS idx_events_contract ON events(contract);
`

func OpenEventStore(dbPath string) (*EventStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	// a pooled connection would get its own copy of an in-memory database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(eventSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing event schema: %w", err)
	}
	return &EventStore{db: db}, nil
}

func (s *EventStore) Close() error {
	return s.db.Close()
}

// Append persists the records of one commit. Records arrive in commit
// order, the seq primary key rejects duplicates.
func (s *EventStore) Append(recs []ledger.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (seq, contract, name, topics, data, prev_hash, hash) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		topics := make([]string, len(rec.Topics))
		for i, topic := range rec.Topics {
			topics[i] = strings.ToLower(topic.Hex())
		}
		_, err := stmt.Exec(
			rec.Seq,
			strings.ToLower(rec.Contract.Hex()),
			rec.Name,
			strings.Join(topics, " "),
			[]byte(rec.Data),
			string(hex.Encode(rec.PrevHash)),
			string(hex.Encode(rec.Hash)),
		)
		if err != nil {
			return fmt.Errorf("inserting record %d: %w", rec.Seq, err)
		}
	}
	return tx.Commit()
}

// EventQuery filters stored records. Empty fields match everything.
type EventQuery struct {
	Name     string
	Contract string
	Topic    string
	Limit    int
	Offset   int
}

// StoredRecord is one persisted event row.
type StoredRecord struct {
	Seq      uint64   `json:"seq"`
	Contract string   `json:"contract"`
	Name     string   `json:"name"`
	Topics   []string `json:"topics"`
	Data     []byte   `json:"-"`
	PrevHash string   `json:"prevHash"`
	Hash     string   `json:"hash"`
}

// Query returns matching records in commit order.
func (s *EventStore) Query(q EventQuery) ([]StoredRecord, error) {
	where := []string{"1=1"}
	var args []any
	if q.Name != "" {
		where = append(where, "name = ?")
		args = append(args, q.Name)
	}
	if q.Contract != "" {
		where = append(where, "contract = ?")
		args = append(args, strings.ToLower(q.Contract))
	}
	if q.Topic != "" {
		where = append(where, "instr(topics, ?) > 0")
		args = append(args, strings.ToLower(q.Topic))
	}
	query := "SELECT seq, contract, name, topics, data, prev_hash, hash FROM events WHERE " +
		strings.Join(where, " AND ") + " ORDER BY seq"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
		if q.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, q.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var res []StoredRecord
	for rows.Next() {
		var rec StoredRecord
		var topics string
		if err := rows.Scan(&rec.Seq, &rec.Contract, &rec.Name, &topics, &rec.Data, &rec.PrevHash, &rec.Hash); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		if topics != "" {
			rec.Topics = strings.Split(topics, " ")
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
