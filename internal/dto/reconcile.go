package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/payee-ledger/internal/domain"
)

type AnomalyDTO struct {
	PayeeID int                `json:"payeeId" example:"7"`
	Before  BalanceResponseDTO `json:"before"`
	After   BalanceResponseDTO `json:"after"`
}

type ConflictResponseDTO struct {
	ID                    int64           `json:"id" example:"1"`
	PayeeID               int             `json:"payeeId" example:"7"`
	IdempotencyKey        string          `json:"idempotencyKey" example:"ORD-1001:earning"`
	Kind                  string          `json:"kind" example:"earning"`
	Amount                decimal.Decimal `json:"amount" swaggertype:"string" example:"95.00"`
	ExistingTransactionID int64           `json:"existingTransactionId" example:"42"`
	DetectedAt            time.Time       `json:"detectedAt" example:"2024-03-01T10:00:00Z"`
}

type ReconcileReportDTO struct {
	StartedAt          time.Time                `json:"startedAt"`
	FinishedAt         time.Time                `json:"finishedAt"`
	PayeesChecked      int                      `json:"payeesChecked" example:"120"`
	Anomalies          []AnomalyDTO             `json:"anomalies"`
	CommissionsCreated int                      `json:"commissionsCreated" example:"0"`
	CommissionErrors   int                      `json:"commissionErrors" example:"0"`
	CorruptEarnings    []TransactionResponseDTO `json:"corruptEarnings"`
	OpenConflicts      []ConflictResponseDTO    `json:"openConflicts"`
}

func NewConflictsResponse(cs []domain.LedgerConflict) []ConflictResponseDTO {
	resp := make([]ConflictResponseDTO, 0, len(cs))
	for _, c := range cs {
		resp = append(resp, ConflictResponseDTO{
			ID:                    c.ID,
			PayeeID:               c.PayeeID,
			IdempotencyKey:        c.IdempotencyKey,
			Kind:                  string(c.Kind),
			Amount:                c.Amount,
			ExistingTransactionID: c.ExistingTransactionID,
			DetectedAt:            c.DetectedAt,
		})
	}
	return resp
}

func NewReconcileReport(r *domain.ReconciliationReport) ReconcileReportDTO {
	anomalies := make([]AnomalyDTO, 0, len(r.Anomalies))
	for i := range r.Anomalies {
		a := r.Anomalies[i]
		anomalies = append(anomalies, AnomalyDTO{
			PayeeID: a.PayeeID,
			Before:  NewBalanceResponse(&a.Before),
			After:   NewBalanceResponse(&a.After),
		})
	}
	return ReconcileReportDTO{
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		PayeesChecked:      r.PayeesChecked,
		Anomalies:          anomalies,
		CommissionsCreated: r.CommissionsCreated,
		CommissionErrors:   r.CommissionErrors,
		CorruptEarnings:    NewTransactionsResponse(r.CorruptEarnings),
		OpenConflicts:      NewConflictsResponse(r.OpenConflicts),
	}
}
