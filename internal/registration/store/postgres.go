package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"regdesk/internal/registration/models"
	id "regdesk/pkg/domain"
	"regdesk/pkg/platform/sentinel"

	"github.com/lib/pq"
)

// PostgresStore persists registrations in PostgreSQL. Document slots live
// in JSONB columns, one column per slot, so the row layout mirrors the
// additive-update contract: a mutation rewrites the row only under a row
// lock that has already absorbed every concurrent sibling write.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `
	id, company_name_en, company_name_local, contact_name, contact_email, contact_phone,
	package_id, payment_method, current_step, status,
	payment_approved, details_approved, documents_approved, documents_published, documents_acknowledged,
	company,
	payment_receipt, balance_payment_receipt, form1, letter_of_engagement, aoa, address_proof, incorporation_certificate,
	form18, step3_additional_docs, step3_signed_additional_docs, step4_additional_docs,
	customer_form1, customer_letter_of_engagement, customer_aoa, customer_form18, customer_address_proof, customer_step3_signed_docs,
	documents_published_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, reg *models.Registration) error {
	args, err := registrationArgs(reg)
	if err != nil {
		return err
	}
	query := `INSERT INTO registrations (` + registrationColumns + `) VALUES (` + placeholders(36) + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(s.db.QueryRowContext(ctx, query, string(regID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}

// Execute serializes the read-modify-write under SELECT FOR UPDATE. The
// row lock guarantees the mutate callback sees every previously committed
// slot write, so the full-row update that follows cannot drop a concurrent
// sibling-slot change.
func (s *PostgresStore) Execute(ctx context.Context, regID id.RegistrationID,
	validate func(*models.Registration) error,
	mutate func(*models.Registration) error,
) (*models.Registration, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
	reg, err := scanRegistration(tx.QueryRowContext(ctx, query, string(regID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock registration: %w", err)
	}

	if validate != nil {
		if err := validate(reg); err != nil {
			return nil, err
		}
	}
	if err := mutate(reg); err != nil {
		return nil, err
	}

	if err := updateRegistration(ctx, tx, reg); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration update: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) Delete(ctx context.Context, regID id.RegistrationID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, string(regID))
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func updateRegistration(ctx context.Context, tx *sql.Tx, reg *models.Registration) error {
	args, err := registrationArgs(reg)
	if err != nil {
		return err
	}
	query := `
		UPDATE registrations SET
			company_name_en = $2, company_name_local = $3, contact_name = $4, contact_email = $5, contact_phone = $6,
			package_id = $7, payment_method = $8, current_step = $9, status = $10,
			payment_approved = $11, details_approved = $12, documents_approved = $13, documents_published = $14, documents_acknowledged = $15,
			company = $16,
			payment_receipt = $17, balance_payment_receipt = $18, form1 = $19, letter_of_engagement = $20, aoa = $21, address_proof = $22, incorporation_certificate = $23,
			form18 = $24, step3_additional_docs = $25, step3_signed_additional_docs = $26, step4_additional_docs = $27,
			customer_form1 = $28, customer_letter_of_engagement = $29, customer_aoa = $30, customer_form18 = $31, customer_address_proof = $32, customer_step3_signed_docs = $33,
			documents_published_at = $34, created_at = $35, updated_at = $36
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}

// registrationArgs flattens the aggregate into positional arguments in
// registrationColumns order.
func registrationArgs(reg *models.Registration) ([]any, error) {
	company, err := json.Marshal(reg.Company)
	if err != nil {
		return nil, fmt.Errorf("marshal company details: %w", err)
	}
	singles := []*models.DocumentAttachment{
		reg.PaymentReceipt, reg.BalancePaymentReceipt, reg.Form1, reg.LetterOfEngagement,
		reg.AOA, reg.AddressProof, reg.IncorporationCertificate,
	}
	singleJSON := make([]any, len(singles))
	for i, doc := range singles {
		singleJSON[i], err = marshalNullable(doc)
		if err != nil {
			return nil, err
		}
	}
	form18, err := json.Marshal(reg.Form18)
	if err != nil {
		return nil, fmt.Errorf("marshal form18: %w", err)
	}
	step3, err := json.Marshal(reg.Step3AdditionalDocs)
	if err != nil {
		return nil, fmt.Errorf("marshal step3 additional docs: %w", err)
	}
	step3Signed, err := marshalMap(reg.Step3SignedAdditionalDocs)
	if err != nil {
		return nil, err
	}
	step4, err := json.Marshal(reg.Step4AdditionalDocs)
	if err != nil {
		return nil, fmt.Errorf("marshal step4 additional docs: %w", err)
	}
	custForm1, err := marshalNullable(reg.CustomerDocuments.Form1)
	if err != nil {
		return nil, err
	}
	custLOE, err := marshalNullable(reg.CustomerDocuments.LetterOfEngagement)
	if err != nil {
		return nil, err
	}
	custAOA, err := marshalNullable(reg.CustomerDocuments.AOA)
	if err != nil {
		return nil, err
	}
	custForm18, err := json.Marshal(reg.CustomerDocuments.Form18)
	if err != nil {
		return nil, fmt.Errorf("marshal customer form18: %w", err)
	}
	custAddr, err := marshalNullable(reg.CustomerDocuments.AddressProof)
	if err != nil {
		return nil, err
	}
	custSigned, err := marshalMap(reg.CustomerDocuments.Step3SignedAdditionalDoc)
	if err != nil {
		return nil, err
	}

	return []any{
		string(reg.ID), reg.CompanyNameEN, reg.CompanyNameLocal, reg.ContactName, reg.ContactEmail, reg.ContactPhone,
		reg.PackageID, reg.PaymentMethod, string(reg.CurrentStep), string(reg.Status),
		reg.PaymentApproved, reg.DetailsApproved, reg.DocumentsApproved, reg.DocumentsPublished, reg.DocumentsAcknowledged,
		company,
		singleJSON[0], singleJSON[1], singleJSON[2], singleJSON[3], singleJSON[4], singleJSON[5], singleJSON[6],
		form18, step3, step3Signed, step4,
		custForm1, custLOE, custAOA, custForm18, custAddr, custSigned,
		nullTime(reg.DocumentsPublishedAt), reg.CreatedAt, reg.UpdatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg         models.Registration
		regID       string
		step        string
		status      string
		company     []byte
		singles     [7][]byte
		form18      []byte
		step3       []byte
		step3Signed []byte
		step4       []byte
		custSingles [4][]byte
		custForm18  []byte
		custSigned  []byte
		publishedAt sql.NullTime
	)
	err := row.Scan(
		&regID, &reg.CompanyNameEN, &reg.CompanyNameLocal, &reg.ContactName, &reg.ContactEmail, &reg.ContactPhone,
		&reg.PackageID, &reg.PaymentMethod, &step, &status,
		&reg.PaymentApproved, &reg.DetailsApproved, &reg.DocumentsApproved, &reg.DocumentsPublished, &reg.DocumentsAcknowledged,
		&company,
		&singles[0], &singles[1], &singles[2], &singles[3], &singles[4], &singles[5], &singles[6],
		&form18, &step3, &step3Signed, &step4,
		&custSingles[0], &custSingles[1], &custSingles[2], &custForm18, &custSingles[3], &custSigned,
		&publishedAt, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reg.ID = id.RegistrationID(regID)
	reg.CurrentStep = models.Step(step)
	reg.Status = models.Status(status)
	if err := json.Unmarshal(company, &reg.Company); err != nil {
		return nil, fmt.Errorf("unmarshal company details: %w", err)
	}

	singleFields := []**models.DocumentAttachment{
		&reg.PaymentReceipt, &reg.BalancePaymentReceipt, &reg.Form1, &reg.LetterOfEngagement,
		&reg.AOA, &reg.AddressProof, &reg.IncorporationCertificate,
	}
	for i, raw := range singles {
		if err := unmarshalNullable(raw, singleFields[i]); err != nil {
			return nil, err
		}
	}
	if err := unmarshalSlice(form18, &reg.Form18); err != nil {
		return nil, err
	}
	if err := unmarshalSlice(step3, &reg.Step3AdditionalDocs); err != nil {
		return nil, err
	}
	if err := unmarshalDocMap(step3Signed, &reg.Step3SignedAdditionalDocs); err != nil {
		return nil, err
	}
	if err := unmarshalSlice(step4, &reg.Step4AdditionalDocs); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(custSingles[0], &reg.CustomerDocuments.Form1); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(custSingles[1], &reg.CustomerDocuments.LetterOfEngagement); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(custSingles[2], &reg.CustomerDocuments.AOA); err != nil {
		return nil, err
	}
	if err := unmarshalSlice(custForm18, &reg.CustomerDocuments.Form18); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(custSingles[3], &reg.CustomerDocuments.AddressProof); err != nil {
		return nil, err
	}
	if err := unmarshalDocMap(custSigned, &reg.CustomerDocuments.Step3SignedAdditionalDoc); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		reg.DocumentsPublishedAt = &t
	}
	return &reg, nil
}

func marshalNullable(doc *models.DocumentAttachment) (any, error) {
	if doc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal attachment: %w", err)
	}
	return raw, nil
}

func marshalMap(m map[string]*models.DocumentAttachment) (any, error) {
	if m == nil {
		m = map[string]*models.DocumentAttachment{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal attachment map: %w", err)
	}
	return raw, nil
}

func unmarshalNullable(raw []byte, dest **models.DocumentAttachment) error {
	if len(raw) == 0 {
		return nil
	}
	var doc models.DocumentAttachment
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal attachment: %w", err)
	}
	*dest = &doc
	return nil
}

func unmarshalSlice(raw []byte, dest *[]*models.DocumentAttachment) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal attachment list: %w", err)
	}
	return nil
}

func unmarshalDocMap(raw []byte, dest *map[string]*models.DocumentAttachment) error {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]*models.DocumentAttachment
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("unmarshal attachment map: %w", err)
	}
	if len(m) > 0 {
		*dest = m
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func placeholders(n int) string {
	out := make([]byte, 0, n*4)
	for i := 1; i <= n; i++ {
		if i > 1 {
			out = append(out, ',', ' ')
		}
		out = append(out, '$')
		out = strconv.AppendInt(out, int64(i), 10)
	}
	return string(out)
}
