package audit

import (
	"time"

	id "xftledger/pkg/domain"
)

// EventCategory classifies audit events by their handling requirements.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance for a
	// transfer agent: balance adjustments, settlements, blocklist changes.
	// Emission is fail-closed; a recording failure fails the operation.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	// Emission is fail-open and may be dropped under pressure.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key ledger actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// Actor performed the action; Subject is the account acted upon.
	Actor   id.Address
	Subject id.Address
	Action  string
	// Amount is the decimal token amount involved, empty when not applicable.
	Amount    string
	Reason    string
	RequestID string
	ClientIP  string
	Agent     string
}

type AuditEvent string

const (
	// Intake events
	EventRequestQueued    AuditEvent = "request_queued"
	EventRequestCancelled AuditEvent = "request_cancelled"

	// Settlement events
	EventTransactionsSettled  AuditEvent = "transactions_settled"
	EventDividendsDistributed AuditEvent = "dividends_distributed"
	EventBalanceAdjusted      AuditEvent = "balance_adjusted"

	// Lifecycle events
	EventTransfersPaused   AuditEvent = "transfers_paused"
	EventTransfersUnpaused AuditEvent = "transfers_unpaused"
	EventAccountsBlocked   AuditEvent = "accounts_blocked"
	EventAccountsUnblocked AuditEvent = "accounts_unblocked"
	EventMaturitySettled   AuditEvent = "maturity_settled"
	EventCouponMarkedPaid  AuditEvent = "coupon_marked_paid"
	EventPriceUpdated      AuditEvent = "price_updated"

	// Authorization events
	EventCapabilityGranted   AuditEvent = "capability_granted"
	EventCapabilityRevoked   AuditEvent = "capability_revoked"
	EventAccountAuthorized   AuditEvent = "account_authorized"
	EventAccountDeauthorized AuditEvent = "account_deauthorized"
)

var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - the transfer agent's regulatory record
	EventBalanceAdjusted:      CategoryCompliance,
	EventTransactionsSettled:  CategoryCompliance,
	EventDividendsDistributed: CategoryCompliance,
	EventMaturitySettled:      CategoryCompliance,
	EventAccountsBlocked:      CategoryCompliance,
	EventAccountsUnblocked:    CategoryCompliance,

	// Operations events - routine activity
	EventRequestQueued:       CategoryOperations,
	EventRequestCancelled:    CategoryOperations,
	EventTransfersPaused:     CategoryOperations,
	EventTransfersUnpaused:   CategoryOperations,
	EventCouponMarkedPaid:    CategoryOperations,
	EventPriceUpdated:        CategoryOperations,
	EventCapabilityGranted:   CategoryOperations,
	EventCapabilityRevoked:   CategoryOperations,
	EventAccountAuthorized:   CategoryOperations,
	EventAccountDeauthorized: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
