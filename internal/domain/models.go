package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindEarning            TransactionKind = "earning"
	KindAdjustment         TransactionKind = "adjustment"
	KindWithdrawalReserved TransactionKind = "withdrawal_reserved"
	KindWithdrawalSettled  TransactionKind = "withdrawal_settled"
	KindWithdrawalFailed   TransactionKind = "withdrawal_failed"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindEarning, KindAdjustment, KindWithdrawalReserved, KindWithdrawalSettled, KindWithdrawalFailed:
		return true
	}
	return false
}

// Transaction is an immutable ledger row. Amount is always a magnitude, the
// kind decides the direction.
type Transaction struct {
	ID             int64           `db:"id"`
	PayeeID        int             `db:"payee_id"`
	Kind           TransactionKind `db:"kind"`
	Amount         decimal.Decimal `db:"amount"`
	OrderRef       string          `db:"order_ref"`
	IdempotencyKey string          `db:"idempotency_key"`
	ExternalRef    string          `db:"external_ref"`
	Description    string          `db:"description"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Posting is a request to append a transaction.
type Posting struct {
	PayeeID        int
	Kind           TransactionKind
	Amount         decimal.Decimal
	IdempotencyKey string
	OrderRef       string
	ExternalRef    string
	Description    string
}

// SamePayload reports whether t was produced by an equivalent posting.
func (t *Transaction) SamePayload(p Posting) bool {
	return t.Kind == p.Kind && t.Amount.Equal(p.Amount)
}

// PostHook runs inside a posting's database transaction, only when the
// transaction is new.
type PostHook func(ctx context.Context, tx *Transaction) error

type TransactionFilter struct {
	AfterID int64
	Kinds   []TransactionKind
	Limit   int
}

type Balance struct {
	PayeeID            int             `db:"payee_id"`
	TotalEarnings      decimal.Decimal `db:"total_earnings"`
	TotalWithdrawn     decimal.Decimal `db:"total_withdrawn"`
	PendingWithdrawals decimal.Decimal `db:"pending_withdrawals"`
	Version            int64           `db:"version"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func NewBalance(payeeID int) *Balance {
	return &Balance{
		PayeeID:            payeeID,
		TotalEarnings:      decimal.Zero,
		TotalWithdrawn:     decimal.Zero,
		PendingWithdrawals: decimal.Zero,
	}
}

func (b *Balance) Available() decimal.Decimal {
	return b.TotalEarnings.Sub(b.TotalWithdrawn).Sub(b.PendingWithdrawals)
}

// Apply moves the balance the way a transaction of the given kind does.
func (b *Balance) Apply(kind TransactionKind, amount decimal.Decimal) error {
	switch kind {
	case KindEarning:
		b.TotalEarnings = b.TotalEarnings.Add(amount)
	case KindAdjustment:
		b.TotalEarnings = b.TotalEarnings.Sub(amount)
	case KindWithdrawalReserved:
		b.PendingWithdrawals = b.PendingWithdrawals.Add(amount)
	case KindWithdrawalSettled:
		b.PendingWithdrawals = b.PendingWithdrawals.Sub(amount)
		b.TotalWithdrawn = b.TotalWithdrawn.Add(amount)
	case KindWithdrawalFailed:
		b.PendingWithdrawals = b.PendingWithdrawals.Sub(amount)
	default:
		return NewValidationError("unknown transaction kind %q", kind)
	}
	return nil
}

// Check enforces available >= 0 and non-negative components.
func (b *Balance) Check() error {
	if b.PendingWithdrawals.IsNegative() || b.TotalWithdrawn.IsNegative() || b.TotalEarnings.IsNegative() {
		return ErrInsufficientBalance
	}
	if b.Available().IsNegative() {
		return ErrInsufficientBalance
	}
	return nil
}

// SameAmounts compares the money fields, ignoring version and timestamps.
func (b *Balance) SameAmounts(o *Balance) bool {
	return b.TotalEarnings.Equal(o.TotalEarnings) &&
		b.TotalWithdrawn.Equal(o.TotalWithdrawn) &&
		b.PendingWithdrawals.Equal(o.PendingWithdrawals)
}

type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "PENDING"
	CommissionApproved  CommissionStatus = "APPROVED"
	CommissionPaid      CommissionStatus = "PAID"
	CommissionCancelled CommissionStatus = "CANCELLED"
)

func (s CommissionStatus) Valid() bool {
	switch s {
	case CommissionPending, CommissionApproved, CommissionPaid, CommissionCancelled:
		return true
	}
	return false
}

// EarningPosted reports whether the sales manager was already credited.
func (s CommissionStatus) EarningPosted() bool {
	return s == CommissionApproved || s == CommissionPaid
}

type Commission struct {
	ID                int              `db:"id"`
	SalesManagerID    int              `db:"sales_manager_id"`
	OrderID           string           `db:"order_id"`
	OrderTotal        decimal.Decimal  `db:"order_total"`
	CommissionPercent decimal.Decimal  `db:"commission_percent"`
	CommissionAmount  decimal.Decimal  `db:"commission_amount"`
	Status            CommissionStatus `db:"status"`
	CreatedAt         time.Time        `db:"created_at"`
	ApprovedAt        *time.Time       `db:"approved_at"`
	PaidAt            *time.Time       `db:"paid_at"`
	CancelledAt       *time.Time       `db:"cancelled_at"`
}

type CommissionFilter struct {
	SalesManagerID int
	Statuses       []CommissionStatus
	AfterID        int
	Limit          int
}

type SalesManager struct {
	ID                int             `db:"id"`
	RefCode           string          `db:"ref_code"`
	CommissionPercent decimal.Decimal `db:"commission_percent"`
}

type WithdrawalStatus string

const (
	WithdrawalRequested WithdrawalStatus = "REQUESTED"
	WithdrawalPending   WithdrawalStatus = "PENDING"
	WithdrawalCompleted WithdrawalStatus = "COMPLETED"
	WithdrawalFailed    WithdrawalStatus = "FAILED"
	WithdrawalCancelled WithdrawalStatus = "CANCELLED"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalRequested: {WithdrawalPending, WithdrawalCancelled},
	WithdrawalPending:   {WithdrawalCompleted, WithdrawalFailed},
}

func (s WithdrawalStatus) CanTransition(to WithdrawalStatus) bool {
	for _, next := range withdrawalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalFailed || s == WithdrawalCancelled
}

type Withdrawal struct {
	ID                 uuid.UUID        `db:"id"`
	PayeeID            int              `db:"payee_id"`
	Amount             decimal.Decimal  `db:"amount"`
	DestinationAccount string           `db:"destination_account"`
	Status             WithdrawalStatus `db:"status"`
	ExternalRef        string           `db:"external_ref"`
	FailureReason      string           `db:"failure_reason"`
	RequestedAt        time.Time        `db:"requested_at"`
	DispatchedAt       *time.Time       `db:"dispatched_at"`
	SettledAt          *time.Time       `db:"settled_at"`
}

// WithdrawalChange is applied together with a status transition.
type WithdrawalChange struct {
	At            time.Time
	FailureReason string
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

func (s OrderStatus) IsPaid() bool {
	return s == OrderPaid || s == OrderShipped || s.IsSettled()
}

func (s OrderStatus) IsSettled() bool {
	return s == OrderDelivered || s == OrderCompleted
}

func (s OrderStatus) IsReversed() bool {
	return s == OrderCancelled || s == OrderRefunded
}

// Order is the ledger's read-model of a marketplace order.
type Order struct {
	OrderID      string          `db:"order_id"`
	PayeeID      int             `db:"payee_id"`
	TotalPrice   decimal.Decimal `db:"total_price"`
	Status       OrderStatus     `db:"status"`
	SalesRefCode string          `db:"sales_ref_code"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

type LedgerConflict struct {
	ID                    int64           `db:"id"`
	PayeeID               int             `db:"payee_id"`
	IdempotencyKey        string          `db:"idempotency_key"`
	Kind                  TransactionKind `db:"kind"`
	Amount                decimal.Decimal `db:"amount"`
	ExistingTransactionID int64           `db:"existing_transaction_id"`
	DetectedAt            time.Time       `db:"detected_at"`
}

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

type PayoutRequest struct {
	Amount             decimal.Decimal
	DestinationAccount string
	IdempotencyRef     string
}

type Payout struct {
	ExternalRef string
	Status      PayoutStatus
	Reason      string
}

type Anomaly struct {
	PayeeID int
	Before  Balance
	After   Balance
}

type ReconciliationReport struct {
	StartedAt          time.Time
	FinishedAt         time.Time
	PayeesChecked      int
	Anomalies          []Anomaly
	CommissionsCreated int
	CommissionErrors   int
	CorruptEarnings    []Transaction
	OpenConflicts      []LedgerConflict
}
