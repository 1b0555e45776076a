// Package events publishes recomputed settlements to RabbitMQ.
package events

import (
	"encoding/json"
	"time"

	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/report"
)

// SettlementMessage is the body of every published event.
type SettlementMessage struct {
	Version      uint64                `json:"version"`
	ComputedAt   time.Time             `json:"computed_at"`
	Settled      bool                  `json:"settled"`
	TotalExpense float64               `json:"total_expense"`
	Balances     []report.BalanceView  `json:"balances"`
	Transfers    []report.TransferView `json:"transfers"`
}

// NewSettlementMessage builds the message for a report.
func NewSettlementMessage(r *ledger.Report) *SettlementMessage {
	view := report.NewView(r)
	return &SettlementMessage{
		Version:      view.Version,
		ComputedAt:   view.ComputedAt,
		Settled:      view.Settled,
		TotalExpense: view.TotalExpense,
		Balances:     view.Balances,
		Transfers:    view.Transfers,
	}
}

// ToJSON encodes the message.
func (m *SettlementMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SettlementMessageFromJSON decodes a message body.
func SettlementMessageFromJSON(data []byte) (*SettlementMessage, error) {
	var m SettlementMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
