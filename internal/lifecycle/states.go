package lifecycle

// Per-kind states, stored as small integers (the wire values the frontend
// already speaks).

const (
	CompanyPending = iota
	CompanyApproved
	CompanyRejected
)

const (
	ListingDraft = iota
	ListingPending
	ListingActive
	ListingClosed
)

const (
	TimesheetDraft = iota
	TimesheetSubmitted
	TimesheetApproved
	TimesheetRejected
)

const (
	EmploymentUpcoming = iota
	EmploymentOngoing
	EmploymentClosure
	EmploymentCompleted
	EmploymentTerminated
)

// Actions accepted by Apply. Unknown actions fail as invalid transitions.
const (
	ActionEdit           Action = "edit"
	ActionSubmit         Action = "submit"
	ActionWithdraw       Action = "withdraw"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionReopen         Action = "reopen"
	ActionClose          Action = "close"
	ActionRequestRenewal Action = "requestRenewal"
	ActionApproveRenewal Action = "approveRenewal"
	ActionDeclineRenewal Action = "declineRenewal"
	ActionBegin          Action = "begin"
	ActionEnterClosure   Action = "enterClosure"
	ActionComplete       Action = "complete"
	ActionTerminate      Action = "terminate"
)
