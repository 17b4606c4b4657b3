package legacysync

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"github.com/DATA-DOG/go-sqlmock"
)

func newMockSyncer(t *testing.T) (*Syncer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSyncer(config.NewLegacyPool(db, 5*time.Second)), mock
}

func TestSyncAddressCreateSpellsLegacyType(t *testing.T) {
	s, mock := newMockSyncer(t)

	mock.ExpectExec("INSERT INTO Address").
		WithArgs(1042, "Business", "12 Main St", "", "Springfield", "IL", "62704", "USA").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.SyncAddressCreate(context.Background(), 1042, AddressRecord{
		Kind:  "Work",
		Line1: "12 Main St",
		City:  "Springfield",
		State: "IL",
		Zip:   "62704",
		Country: "USA",
	})
	if err != nil {
		t.Fatalf("SyncAddressCreate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncAddressUpdateUsesPreviousKey(t *testing.T) {
	s, mock := newMockSyncer(t)

	oldRec := AddressRecord{Kind: "Home", Line1: "12 Main St", City: "Springfield"}
	newRec := AddressRecord{Kind: "Home", Line1: "99 Oak Ave", City: "Springfield"}

	mock.ExpectExec("UPDATE Address").
		WithArgs("Home", "99 Oak Ave", "", "Springfield", "", "", "", 1042, "12 Main St", "Home").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SyncAddressUpdate(context.Background(), 1042, oldRec, newRec); err != nil {
		t.Fatalf("SyncAddressUpdate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncAddressUpdateMissIsNotAnError(t *testing.T) {
	s, mock := newMockSyncer(t)

	mock.ExpectExec("UPDATE Address").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := AddressRecord{Kind: "Home", Line1: "12 Main St"}
	if err := s.SyncAddressUpdate(context.Background(), 1042, rec, rec); err != nil {
		t.Fatalf("no-row update must complete as a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncAddressUpdateExecErrorSurfaces(t *testing.T) {
	s, mock := newMockSyncer(t)

	execErr := errors.New("connection reset")
	mock.ExpectExec("UPDATE Address").WillReturnError(execErr)

	rec := AddressRecord{Kind: "Home", Line1: "12 Main St"}
	if err := s.SyncAddressUpdate(context.Background(), 1042, rec, rec); !errors.Is(err, execErr) {
		t.Fatalf("expected exec error, got %v", err)
	}
}

func TestSyncAddressDelete(t *testing.T) {
	s, mock := newMockSyncer(t)

	mock.ExpectExec("DELETE FROM Address").
		WithArgs(1042, "12 Main St", "School").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SyncAddressDelete(context.Background(), 1042, AddressRecord{Kind: "School", Line1: "12 Main St"}); err != nil {
		t.Fatalf("SyncAddressDelete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncPhoneSetCreatesHomeRowWhenMissing(t *testing.T) {
	s, mock := newMockSyncer(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(1042).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO Address").
		WithArgs(1042).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE Address SET add_CellPhone").
		WithArgs("217-555-0143", 1042).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SyncPhoneSet(context.Background(), 1042, PhoneRecord{
		Kind:   "Mobile",
		Number: "2175550143",
	})
	if err != nil {
		t.Fatalf("SyncPhoneSet: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncPhoneSetSkipsUnknownKind(t *testing.T) {
	s, mock := newMockSyncer(t)

	if err := s.SyncPhoneSet(context.Background(), 1042, PhoneRecord{Kind: "Fax", Number: "2175550143"}); err != nil {
		t.Fatalf("unknown kind must be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncPhoneClear(t *testing.T) {
	s, mock := newMockSyncer(t)

	mock.ExpectExec("UPDATE Address SET add_phone").
		WithArgs(1042).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SyncPhoneClear(context.Background(), 1042, "Home"); err != nil {
		t.Fatalf("SyncPhoneClear: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSyncEmailsReusesExistingHomeRow(t *testing.T) {
	s, mock := newMockSyncer(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(1042).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE Address SET add_email").
		WithArgs("alex@example.org", "alex.alt@example.org", 1042).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SyncEmails(context.Background(), 1042, EmailRecord{
		Email:    "alex@example.org",
		AltEmail: "alex.alt@example.org",
	})
	if err != nil {
		t.Fatalf("SyncEmails: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestLegacyTypeSpelling(t *testing.T) {
	cases := map[string]string{
		"Work":     "Business",
		"Home":     "Home",
		"School":   "School",
		"Seasonal": "Seasonal",
	}
	for kind, want := range cases {
		if got := LegacyTypeSpelling(kind); got != want {
			t.Errorf("LegacyTypeSpelling(%q) = %q, want %q", kind, got, want)
		}
	}
}
