package shared

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// CommandType identifies the engine operation a ledger command asks for.
type CommandType string

const (
	CommandTypeTransfer CommandType = "TRANSFER"
	CommandTypeReverse  CommandType = "REVERSE"
	CommandTypeSplit    CommandType = "SPLIT"
)

func (c CommandType) Valid() bool {
	switch c {
	case CommandTypeTransfer, CommandTypeReverse, CommandTypeSplit:
		return true
	}
	return false
}

// RejectionReason categorises commands the ledger refused.
type RejectionReason string

const (
	RejectionReasonMalformed        RejectionReason = "MALFORMED_COMMAND"
	RejectionReasonInvalidAmount    RejectionReason = "INVALID_AMOUNT"
	RejectionReasonSelfTransfer     RejectionReason = "SELF_TRANSFER"
	RejectionReasonCurrencyMismatch RejectionReason = "CURRENCY_MISMATCH"
	RejectionReasonInvalidFeeSplit  RejectionReason = "INVALID_FEE_SPLIT"
	RejectionReasonAccountNotFound  RejectionReason = "ACCOUNT_NOT_FOUND"
	RejectionReasonTransferNotFound RejectionReason = "TRANSFER_NOT_FOUND"
	RejectionReasonAlreadyReversed  RejectionReason = "ALREADY_REVERSED"
	RejectionReasonInvalidRequest   RejectionReason = "INVALID_REQUEST"
)
