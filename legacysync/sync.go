package legacysync

import (
	"context"
	"database/sql"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/sirupsen/logrus"
)

var moduleName = "legacysync"

// Syncer mirrors contact records into the legacy chapter database. It is
// strictly best effort: the primary write paths never wait on it, and a
// failure here never surfaces to a member.
type Syncer struct {
	pool   *config.LegacyPool
	logger *logrus.Logger
}

func NewSyncer(pool *config.LegacyPool) *Syncer {
	return &Syncer{
		pool:   pool,
		logger: config.GetLogger(),
	}
}

/* addresses */

func (s *Syncer) SyncAddressCreate(ctx context.Context, memberNumber int, rec AddressRecord) error {
	query := `INSERT INTO Address (add_memid, add_type, add_line1, add_line2, add_city, add_state, add_zip, add_country)
		VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8)`
	_, err := s.pool.Exec(ctx, query,
		memberNumber, LegacyTypeSpelling(rec.Kind),
		rec.Line1, rec.Line2, rec.City, rec.State, rec.Zip, rec.Country)
	if err != nil {
		failureTotal.WithLabelValues("address", "create").Inc()
		config.LogError(s.logger, moduleName, "SyncAddressCreate", "insert failed", memberNumber, err)
		return err
	}
	appliedTotal.WithLabelValues("address", "create").Inc()
	return nil
}

// SyncAddressUpdate locates the legacy row by the PREVIOUS key (member
// number, old type spelling, old line1) and rewrites it. A key that
// matches no row completes successfully as a recorded no-op.
func (s *Syncer) SyncAddressUpdate(ctx context.Context, memberNumber int, oldRec, newRec AddressRecord) error {
	key := oldRec.Key(memberNumber)
	query := `UPDATE Address
		SET add_type = @p1, add_line1 = @p2, add_line2 = @p3, add_city = @p4, add_state = @p5, add_zip = @p6, add_country = @p7
		WHERE add_memid = @p8 AND add_line1 = @p9 AND add_type = @p10`
	result, err := s.pool.Exec(ctx, query,
		LegacyTypeSpelling(newRec.Kind), newRec.Line1, newRec.Line2, newRec.City, newRec.State, newRec.Zip, newRec.Country,
		key.MemberNumber, key.Line1, key.TypeSpelling)
	if err != nil {
		failureTotal.WithLabelValues("address", "update").Inc()
		config.LogError(s.logger, moduleName, "SyncAddressUpdate", "update failed", key, err)
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		lookupMissTotal.WithLabelValues("address").Inc()
		s.logger.WithFields(logrus.Fields{
			"member_number": key.MemberNumber,
			"type":          key.TypeSpelling,
		}).Warn("legacy address update matched no row")
		return nil
	}
	appliedTotal.WithLabelValues("address", "update").Inc()
	return nil
}

func (s *Syncer) SyncAddressDelete(ctx context.Context, memberNumber int, rec AddressRecord) error {
	key := rec.Key(memberNumber)
	query := `DELETE FROM Address WHERE add_memid = @p1 AND add_line1 = @p2 AND add_type = @p3`
	_, err := s.pool.Exec(ctx, query, key.MemberNumber, key.Line1, key.TypeSpelling)
	if err != nil {
		failureTotal.WithLabelValues("address", "delete").Inc()
		config.LogError(s.logger, moduleName, "SyncAddressDelete", "delete failed", key, err)
		return err
	}
	appliedTotal.WithLabelValues("address", "delete").Inc()
	return nil
}

/* phones: stored as columns of the member's Home address row */

// SyncPhoneSet writes a phone number into its kind's column on the Home
// row, creating a bare Home row when the member has none.
func (s *Syncer) SyncPhoneSet(ctx context.Context, memberNumber int, rec PhoneRecord) error {
	col, ok := phoneColumn(rec.Kind)
	if !ok {
		s.logger.WithField("kind", rec.Kind).Warn("no legacy column for phone kind")
		return nil
	}
	if err := s.ensureHomeRow(ctx, memberNumber); err != nil {
		failureTotal.WithLabelValues("phone", "set").Inc()
		return err
	}
	query := `UPDATE Address SET ` + col + ` = @p1 WHERE add_memid = @p2 AND add_type = 'Home'`
	_, err := s.pool.Exec(ctx, query, utils.FormatLegacyPhone(rec.Number), memberNumber)
	if err != nil {
		failureTotal.WithLabelValues("phone", "set").Inc()
		config.LogError(s.logger, moduleName, "SyncPhoneSet", "update failed", memberNumber, err)
		return err
	}
	appliedTotal.WithLabelValues("phone", "set").Inc()
	return nil
}

// SyncPhoneClear blanks the column for the given kind.
func (s *Syncer) SyncPhoneClear(ctx context.Context, memberNumber int, kind string) error {
	col, ok := phoneColumn(kind)
	if !ok {
		return nil
	}
	query := `UPDATE Address SET ` + col + ` = '' WHERE add_memid = @p1 AND add_type = 'Home'`
	_, err := s.pool.Exec(ctx, query, memberNumber)
	if err != nil {
		failureTotal.WithLabelValues("phone", "clear").Inc()
		config.LogError(s.logger, moduleName, "SyncPhoneClear", "update failed", memberNumber, err)
		return err
	}
	appliedTotal.WithLabelValues("phone", "clear").Inc()
	return nil
}

/* emails: add_email / add_email_alt on the Home row */

func (s *Syncer) SyncEmails(ctx context.Context, memberNumber int, rec EmailRecord) error {
	if err := s.ensureHomeRow(ctx, memberNumber); err != nil {
		failureTotal.WithLabelValues("email", "set").Inc()
		return err
	}
	query := `UPDATE Address SET add_email = @p1, add_email_alt = @p2 WHERE add_memid = @p3 AND add_type = 'Home'`
	_, err := s.pool.Exec(ctx, query, rec.Email, rec.AltEmail, memberNumber)
	if err != nil {
		failureTotal.WithLabelValues("email", "set").Inc()
		config.LogError(s.logger, moduleName, "SyncEmails", "update failed", memberNumber, err)
		return err
	}
	appliedTotal.WithLabelValues("email", "set").Inc()
	return nil
}

// ensureHomeRow creates an empty Home address row if the member has none,
// since phones and emails have nowhere else to live in the legacy schema.
func (s *Syncer) ensureHomeRow(ctx context.Context, memberNumber int) error {
	var count int
	err := s.pool.QueryRowScan(ctx,
		`SELECT COUNT(*) FROM Address WHERE add_memid = @p1 AND add_type = 'Home'`,
		[]interface{}{memberNumber}, &count)
	if err != nil && err != sql.ErrNoRows {
		config.LogError(s.logger, moduleName, "ensureHomeRow", "lookup failed", memberNumber, err)
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO Address (add_memid, add_type) VALUES (@p1, 'Home')`, memberNumber)
	if err != nil {
		config.LogError(s.logger, moduleName, "ensureHomeRow", "insert failed", memberNumber, err)
		return err
	}
	return nil
}
