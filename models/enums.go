package models

/* contact record kinds */

type AddressKind string

const (
	AddressKindHome   AddressKind = "Home"
	AddressKindWork   AddressKind = "Work"
	AddressKindSchool AddressKind = "School"
)

func (k AddressKind) IsValid() bool {
	switch k {
	case AddressKindHome, AddressKindWork, AddressKindSchool:
		return true
	}
	return false
}

type PhoneKind string

const (
	PhoneKindMobile PhoneKind = "Mobile"
	PhoneKindHome   PhoneKind = "Home"
	PhoneKindWork   PhoneKind = "Work"
)

func (k PhoneKind) IsValid() bool {
	switch k {
	case PhoneKindMobile, PhoneKindHome, PhoneKindWork:
		return true
	}
	return false
}

/* user roles */

type UserRole string

const (
	UserRoleNonMember  UserRole = "NonMember"
	UserRoleCollegiate UserRole = "Collegiate"
	UserRoleAlumni     UserRole = "Alumni"
	UserRoleOfficial   UserRole = "Official"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleNonMember, UserRoleCollegiate, UserRoleAlumni, UserRoleOfficial:
		return true
	}
	return false
}

/* expense report statuses */

type ExpenseReportStatus string

const (
	ExpenseReportStatusDraft     ExpenseReportStatus = "draft"
	ExpenseReportStatusSubmitted ExpenseReportStatus = "submitted"
	ExpenseReportStatusReviewed  ExpenseReportStatus = "reviewed"
	ExpenseReportStatusApproved  ExpenseReportStatus = "approved"
	ExpenseReportStatusPaid      ExpenseReportStatus = "paid"
	ExpenseReportStatusRejected  ExpenseReportStatus = "rejected"
	ExpenseReportStatusCancelled ExpenseReportStatus = "cancelled"
)

func (s ExpenseReportStatus) IsValid() bool {
	switch s {
	case ExpenseReportStatusDraft, ExpenseReportStatusSubmitted, ExpenseReportStatusReviewed,
		ExpenseReportStatusApproved, ExpenseReportStatusPaid, ExpenseReportStatusRejected,
		ExpenseReportStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s ExpenseReportStatus) IsTerminal() bool {
	switch s {
	case ExpenseReportStatusPaid, ExpenseReportStatusRejected, ExpenseReportStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions is the whole workflow. Rejection is reachable from
// every non-terminal state; cancellation only before review begins.
var allowedTransitions = map[ExpenseReportStatus][]ExpenseReportStatus{
	ExpenseReportStatusDraft:     {ExpenseReportStatusSubmitted, ExpenseReportStatusCancelled, ExpenseReportStatusRejected},
	ExpenseReportStatusSubmitted: {ExpenseReportStatusReviewed, ExpenseReportStatusRejected, ExpenseReportStatusCancelled},
	ExpenseReportStatusReviewed:  {ExpenseReportStatusApproved, ExpenseReportStatusRejected},
	ExpenseReportStatusApproved:  {ExpenseReportStatusPaid, ExpenseReportStatusRejected},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ExpenseReportStatus) CanTransitionTo(next ExpenseReportStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

/* payment methods */

type PaymentMethod string

const (
	PaymentMethodCheck         PaymentMethod = "check"
	PaymentMethodDirectDeposit PaymentMethod = "direct_deposit"
	PaymentMethodCredit        PaymentMethod = "credit"
	PaymentMethodOther         PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCheck, PaymentMethodDirectDeposit, PaymentMethodCredit, PaymentMethodOther:
		return true
	}
	return false
}

/* outbox */

type OutboxTopic string

const (
	OutboxTopicLegacySync   OutboxTopic = "LEGACY_SYNC"
	OutboxTopicNotification OutboxTopic = "NOTIFICATION"
)

type OutboxAction string

const (
	OutboxActionCreate OutboxAction = "C"
	OutboxActionUpdate OutboxAction = "U"
	OutboxActionDelete OutboxAction = "D"
)

type OutboxReferenceType string

const (
	OutboxReferenceTypeAddress       OutboxReferenceType = "ADDR"
	OutboxReferenceTypePhone         OutboxReferenceType = "PHONE"
	OutboxReferenceTypeEmail         OutboxReferenceType = "EMAIL"
	OutboxReferenceTypeExpenseReport OutboxReferenceType = "ER"
)
