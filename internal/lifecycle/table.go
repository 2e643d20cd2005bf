package lifecycle

import (
	"stagelink/internal/domain/principal"
	"stagelink/internal/store"
)

type Action string

// Relation narrows an access grant to the principal's relationship with the
// resource instance. RelationAny grants on role alone.
type Relation int

const (
	RelationAny Relation = iota
	// RelationOwner: the principal created / is scoped to the record.
	RelationOwner
	// RelationCompanyOwner: the principal owns the company the record
	// belongs to (listing/employment directly, timesheet via employment).
	RelationCompanyOwner
	// RelationEmploymentStudent: the record's employment belongs to the
	// principal (timesheets).
	RelationEmploymentStudent
)

type Access struct {
	Role     principal.Role
	Relation Relation
}

// Recipient selects who a transition event is delivered to.
type Recipient int

const (
	RecipientOwner Recipient = iota
	RecipientCompanyOwner
	RecipientEmploymentStudent
	RecipientAdmins
)

type EventSpec struct {
	Type  string
	Title string
	Body  string
	// BodyAttr, when set and present on the updated record, replaces Body.
	BodyAttr string
	To       Recipient
}

// EffectOp enumerates the field derivations a transition can declare.
type EffectOp int

const (
	// OpNow sets Field to the commit timestamp.
	OpNow EffectOp = iota
	// OpActor sets Field to the acting principal's user id.
	OpActor
	// OpValue sets Field to the literal Value.
	OpValue
	// OpPayload copies Field from the action payload when present.
	OpPayload
	// OpTotalHours recomputes totalHours from the items payload (falling
	// back to the stored items) and persists both.
	OpTotalHours
	// OpListingExpiry sets expiresAt to publishAt (payload, stored, or now)
	// plus the renewal window, defaulting publishAt when absent.
	OpListingExpiry
	// OpExtendExpiry moves expiresAt to max(now, expiresAt) plus the
	// renewal window; an unexpired window never shrinks.
	OpExtendExpiry
)

type Effect struct {
	Op    EffectOp
	Field string
	Value any
}

type Edge struct {
	To      int
	Access  []Access
	Effects []Effect
	Events  []EventSpec
}

type transitionKey struct {
	From   int
	Action Action
}

// Table is the static transition map for one resource kind. actionAccess is
// the per-action union of edge grants, so authorization is decided before
// the (state, action) lookup and a denied caller learns nothing about the
// record's current state.
type Table struct {
	Kind         store.Kind
	edges        map[transitionKey]Edge
	actionAccess map[Action][]Access
}

func NewTable(kind store.Kind, edges map[transitionKey]Edge) *Table {
	access := make(map[Action][]Access)
	for key, edge := range edges {
		access[key.Action] = mergeAccess(access[key.Action], edge.Access)
	}
	return &Table{Kind: kind, edges: edges, actionAccess: access}
}

func (t *Table) Edge(from int, action Action) (Edge, bool) {
	edge, ok := t.edges[transitionKey{From: from, Action: action}]
	return edge, ok
}

func (t *Table) ActionAccess(action Action) ([]Access, bool) {
	access, ok := t.actionAccess[action]
	return access, ok
}

func mergeAccess(existing, extra []Access) []Access {
	for _, a := range extra {
		seen := false
		for _, e := range existing {
			if e == a {
				seen = true
				break
			}
		}
		if !seen {
			existing = append(existing, a)
		}
	}
	return existing
}

var (
	adminOnly           = []Access{{Role: principal.RoleAdmin}}
	companyOwnerOrAdmin = []Access{
		{Role: principal.RoleAdmin},
		{Role: principal.RoleCompany, Relation: RelationCompanyOwner},
	}
	timesheetStudent = []Access{
		{Role: principal.RoleStudent, Relation: RelationEmploymentStudent},
	}
	timesheetReviewer = []Access{
		{Role: principal.RoleAdmin},
		{Role: principal.RoleCompany, Relation: RelationCompanyOwner},
	}
	employmentActor = []Access{
		{Role: principal.RoleAdmin},
		{Role: principal.RoleSystem},
		{Role: principal.RoleCompany, Relation: RelationCompanyOwner},
	}
)

func companyTable() *Table {
	return NewTable(store.KindCompany, map[transitionKey]Edge{
		{CompanyPending, ActionApprove}: {
			To:      CompanyApproved,
			Access:  adminOnly,
			Effects: []Effect{{Op: OpNow, Field: "reviewedAt"}, {Op: OpActor, Field: "reviewerId"}},
			Events: []EventSpec{{
				Type: "company_approved", Title: "Company approved",
				Body: "Your company is verified.", To: RecipientOwner,
			}},
		},
		{CompanyPending, ActionReject}: {
			To:     CompanyRejected,
			Access: adminOnly,
			Effects: []Effect{
				{Op: OpNow, Field: "reviewedAt"},
				{Op: OpActor, Field: "reviewerId"},
				{Op: OpPayload, Field: "rejectionReason"},
			},
			Events: []EventSpec{{
				Type: "company_rejected", Title: "Company rejected",
				Body: "Your verification was rejected.", BodyAttr: "rejectionReason",
				To: RecipientOwner,
			}},
		},
		// Admin re-patch path out of the otherwise terminal states.
		{CompanyApproved, ActionReopen}: {To: CompanyPending, Access: adminOnly},
		{CompanyRejected, ActionReopen}: {To: CompanyPending, Access: adminOnly},
	})
}

func listingTable() *Table {
	listingEdit := []Effect{
		{Op: OpPayload, Field: "title"},
		{Op: OpPayload, Field: "description"},
		{Op: OpPayload, Field: "location"},
		{Op: OpPayload, Field: "salaryRange"},
		{Op: OpPayload, Field: "quantityAvailable"},
		{Op: OpPayload, Field: "publishAt"},
	}
	submitted := EventSpec{
		Type: "job_submitted", Title: "New job listing submitted",
		BodyAttr: "title", To: RecipientAdmins,
	}
	return NewTable(store.KindListing, map[transitionKey]Edge{
		{ListingDraft, ActionEdit}: {To: ListingDraft, Access: companyOwnerOrAdmin, Effects: listingEdit},
		{ListingDraft, ActionSubmit}: {
			To:      ListingPending,
			Access:  companyOwnerOrAdmin,
			Effects: []Effect{{Op: OpNow, Field: "submittedAt"}},
			Events:  []EventSpec{submitted},
		},
		{ListingPending, ActionApprove}: {
			To:     ListingActive,
			Access: adminOnly,
			Effects: []Effect{
				{Op: OpNow, Field: "approvedAt"},
				{Op: OpListingExpiry},
			},
			Events: []EventSpec{{
				Type: "job_approved", Title: "Job approved",
				Body: "Your job listing has been approved and is now active.",
				To:   RecipientCompanyOwner,
			}},
		},
		{ListingPending, ActionReject}: {
			To:      ListingDraft,
			Access:  adminOnly,
			Effects: []Effect{{Op: OpPayload, Field: "rejectionReason"}},
			Events: []EventSpec{{
				Type: "job_rejected", Title: "Job rejected",
				Body: "Your job listing was rejected. Please review and resubmit.",
				To:   RecipientCompanyOwner,
			}},
		},
		{ListingActive, ActionClose}: {
			To:     ListingClosed,
			Access: append([]Access{{Role: principal.RoleSystem}}, companyOwnerOrAdmin...),
			Effects: []Effect{
				{Op: OpNow, Field: "closedAt"},
				{Op: OpValue, Field: "renewal", Value: false},
			},
			Events: []EventSpec{{
				Type: "job_closed", Title: "Job closed",
				Body: "Your job listing has been closed.", To: RecipientCompanyOwner,
			}},
		},
		{ListingActive, ActionRequestRenewal}: {
			To:     ListingActive,
			Access: []Access{{Role: principal.RoleCompany, Relation: RelationCompanyOwner}},
			Effects: []Effect{
				{Op: OpValue, Field: "renewal", Value: true},
				{Op: OpNow, Field: "renewalRequestedAt"},
			},
			Events: []EventSpec{{
				Type: "job_renewal_requested", Title: "Job renewal requested",
				BodyAttr: "title", To: RecipientAdmins,
			}},
		},
		{ListingActive, ActionApproveRenewal}: {
			To:     ListingActive,
			Access: adminOnly,
			Effects: []Effect{
				{Op: OpValue, Field: "renewal", Value: false},
				{Op: OpExtendExpiry},
			},
			Events: []EventSpec{{
				Type: "job_renewal_approved", Title: "Renewal approved",
				Body: "Your job listing has been renewed for another 30 days.",
				To:   RecipientCompanyOwner,
			}},
		},
		{ListingActive, ActionDeclineRenewal}: {
			To:      ListingActive,
			Access:  adminOnly,
			Effects: []Effect{{Op: OpValue, Field: "renewal", Value: false}},
		},
	})
}

func timesheetTable() *Table {
	recompute := []Effect{{Op: OpTotalHours}}
	reviewed := []Effect{
		{Op: OpNow, Field: "reviewedAt"},
		{Op: OpActor, Field: "reviewedBy"},
	}
	submitEffects := []Effect{{Op: OpTotalHours}, {Op: OpNow, Field: "submittedAt"}}
	submittedEvent := []EventSpec{{
		Type: "timesheet_submitted", Title: "Timesheet submitted",
		To: RecipientCompanyOwner,
	}}
	return NewTable(store.KindTimesheet, map[transitionKey]Edge{
		{TimesheetDraft, ActionEdit}:    {To: TimesheetDraft, Access: timesheetStudent, Effects: recompute},
		{TimesheetRejected, ActionEdit}: {To: TimesheetRejected, Access: timesheetStudent, Effects: recompute},
		{TimesheetDraft, ActionSubmit}: {
			To: TimesheetSubmitted, Access: timesheetStudent,
			Effects: submitEffects, Events: submittedEvent,
		},
		{TimesheetRejected, ActionSubmit}: {
			To: TimesheetSubmitted, Access: timesheetStudent,
			Effects: submitEffects, Events: submittedEvent,
		},
		{TimesheetSubmitted, ActionWithdraw}: {To: TimesheetDraft, Access: timesheetStudent},
		{TimesheetSubmitted, ActionApprove}: {
			To: TimesheetApproved, Access: timesheetReviewer, Effects: reviewed,
			Events: []EventSpec{{
				Type: "timesheet_approved", Title: "Timesheet approved",
				To: RecipientEmploymentStudent,
			}},
		},
		{TimesheetSubmitted, ActionReject}: {
			To: TimesheetRejected, Access: timesheetReviewer,
			Effects: append([]Effect{{Op: OpPayload, Field: "feedback"}}, reviewed...),
			Events: []EventSpec{{
				Type: "timesheet_rejected", Title: "Timesheet rejected",
				To: RecipientEmploymentStudent,
			}},
		},
	})
}

func employmentTable() *Table {
	terminate := Edge{
		To:     EmploymentTerminated,
		Access: employmentActor,
		Effects: []Effect{
			{Op: OpNow, Field: "terminatedAt"},
			{Op: OpPayload, Field: "terminationReason"},
		},
		Events: []EventSpec{{
			Type: "employment_terminated", Title: "Employment terminated",
			BodyAttr: "terminationReason", To: RecipientOwner,
		}},
	}
	return NewTable(store.KindEmployment, map[transitionKey]Edge{
		{EmploymentUpcoming, ActionBegin}: {
			To: EmploymentOngoing, Access: employmentActor,
			Effects: []Effect{{Op: OpNow, Field: "startedAt"}},
		},
		{EmploymentOngoing, ActionEnterClosure}: {
			To: EmploymentClosure, Access: employmentActor,
			Effects: []Effect{{Op: OpNow, Field: "closedAt"}},
		},
		{EmploymentClosure, ActionComplete}: {
			To: EmploymentCompleted, Access: employmentActor,
			Effects: []Effect{{Op: OpNow, Field: "completedAt"}},
			Events: []EventSpec{{
				Type: "employment_completed", Title: "Employment completed",
				To: RecipientOwner,
			}},
		},
		{EmploymentUpcoming, ActionTerminate}: terminate,
		{EmploymentOngoing, ActionTerminate}:  terminate,
		{EmploymentClosure, ActionTerminate}:  terminate,
	})
}

// Tables returns the full transition-table set, keyed by kind.
func Tables() map[store.Kind]*Table {
	return map[store.Kind]*Table{
		store.KindCompany:    companyTable(),
		store.KindListing:    listingTable(),
		store.KindTimesheet:  timesheetTable(),
		store.KindEmployment: employmentTable(),
	}
}
