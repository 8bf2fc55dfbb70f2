package amqp

import (
	"encoding/json"
	"time"

	"releve/internal/core"
)

// StatementImportedMessage tells the tagging worker that new activities were
// stored. It carries counts only; the worker reads the ledger itself.
type StatementImportedMessage struct {
	Statements  int       `json:"statements"`
	Inserted    int       `json:"inserted"`
	BalanceDate string    `json:"balance_date"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewStatementImportedMessage(statements, inserted int, balanceDate core.Date) *StatementImportedMessage {
	return &StatementImportedMessage{
		Statements:  statements,
		Inserted:    inserted,
		BalanceDate: balanceDate.String(),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StatementImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StatementImportedMessageFromJSON(data []byte) (*StatementImportedMessage, error) {
	var msg StatementImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
