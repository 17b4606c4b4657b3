package models_test

import (
	"testing"

	"bitbucket.org/tbphq/members_backend/models"
)

func TestExpenseReportStatusTransitions(t *testing.T) {
	all := []models.ExpenseReportStatus{
		models.ExpenseReportStatusDraft,
		models.ExpenseReportStatusSubmitted,
		models.ExpenseReportStatusReviewed,
		models.ExpenseReportStatusApproved,
		models.ExpenseReportStatusPaid,
		models.ExpenseReportStatusRejected,
		models.ExpenseReportStatusCancelled,
	}

	legal := map[models.ExpenseReportStatus]map[models.ExpenseReportStatus]bool{
		models.ExpenseReportStatusDraft: {
			models.ExpenseReportStatusSubmitted: true,
			models.ExpenseReportStatusCancelled: true,
			models.ExpenseReportStatusRejected:  true,
		},
		models.ExpenseReportStatusSubmitted: {
			models.ExpenseReportStatusReviewed:  true,
			models.ExpenseReportStatusRejected:  true,
			models.ExpenseReportStatusCancelled: true,
		},
		models.ExpenseReportStatusReviewed: {
			models.ExpenseReportStatusApproved: true,
			models.ExpenseReportStatusRejected: true,
		},
		models.ExpenseReportStatusApproved: {
			models.ExpenseReportStatusPaid:     true,
			models.ExpenseReportStatusRejected: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestExpenseReportStatusTerminalStatesAllowNothing(t *testing.T) {
	terminals := []models.ExpenseReportStatus{
		models.ExpenseReportStatusPaid,
		models.ExpenseReportStatusRejected,
		models.ExpenseReportStatusCancelled,
	}
	all := []models.ExpenseReportStatus{
		models.ExpenseReportStatusDraft,
		models.ExpenseReportStatusSubmitted,
		models.ExpenseReportStatusReviewed,
		models.ExpenseReportStatusApproved,
		models.ExpenseReportStatusPaid,
		models.ExpenseReportStatusRejected,
		models.ExpenseReportStatusCancelled,
	}
	for _, from := range terminals {
		if !from.IsTerminal() {
			t.Errorf("%s: expected terminal", from)
		}
		for _, to := range all {
			if from.CanTransitionTo(to) {
				t.Errorf("%s -> %s: terminal state must allow no transition", from, to)
			}
		}
	}
	for _, s := range []models.ExpenseReportStatus{
		models.ExpenseReportStatusDraft,
		models.ExpenseReportStatusSubmitted,
		models.ExpenseReportStatusReviewed,
		models.ExpenseReportStatusApproved,
	} {
		if s.IsTerminal() {
			t.Errorf("%s: must not be terminal", s)
		}
	}
}

func TestExpenseReportStatusSelfTransitionIllegal(t *testing.T) {
	for _, s := range []models.ExpenseReportStatus{
		models.ExpenseReportStatusDraft,
		models.ExpenseReportStatusSubmitted,
		models.ExpenseReportStatusReviewed,
		models.ExpenseReportStatusApproved,
	} {
		if s.CanTransitionTo(s) {
			t.Errorf("%s -> %s: self transition must be illegal", s, s)
		}
	}
}

func TestExpenseReportStatusIsValid(t *testing.T) {
	if models.ExpenseReportStatus("shipped").IsValid() {
		t.Error("unknown status must be invalid")
	}
	if models.ExpenseReportStatus("").IsValid() {
		t.Error("empty status must be invalid")
	}
	if !models.ExpenseReportStatusDraft.IsValid() {
		t.Error("draft must be valid")
	}
}
