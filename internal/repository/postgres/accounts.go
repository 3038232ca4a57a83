package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/repository"
)

const accountsTable = "accounts"

var accountColumns = []string{
	"id",
	"username",
	"email",
	"password_hash",
	"grp",
	"login",
	"social",
	"reset",
	"new_email",
	"profile",
	"address",
	"old_usernames",
	"old_emails",
	"created_at",
	"version",
}

// AccountRepository implements port.AccountRepository using PostgreSQL. The
// account is stored as one row with the nested states as jsonb documents;
// Save performs a whole-document upsert guarded by a version column.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

type accountDoc struct {
	login        []byte
	social       []byte
	reset        []byte
	newEmail     []byte
	profile      []byte
	address      []byte
	oldUsernames []byte
	oldEmails    []byte
}

func encodeAccount(account *domain.Account) (accountDoc, error) {
	var doc accountDoc
	var err error

	if doc.login, err = json.Marshal(account.Login); err != nil {
		return doc, fmt.Errorf("encode login state: %w", err)
	}
	social := account.Social
	if social == nil {
		social = map[domain.Provider]domain.FederatedIdentity{}
	}
	if doc.social, err = json.Marshal(social); err != nil {
		return doc, fmt.Errorf("encode federated identities: %w", err)
	}
	if doc.reset, err = json.Marshal(account.Reset); err != nil {
		return doc, fmt.Errorf("encode reset state: %w", err)
	}
	if account.NewEmail != nil {
		if doc.newEmail, err = json.Marshal(account.NewEmail); err != nil {
			return doc, fmt.Errorf("encode pending email change: %w", err)
		}
	}
	if doc.profile, err = json.Marshal(account.Profile); err != nil {
		return doc, fmt.Errorf("encode profile: %w", err)
	}
	if doc.address, err = json.Marshal(account.Address); err != nil {
		return doc, fmt.Errorf("encode address: %w", err)
	}
	if doc.oldUsernames, err = json.Marshal(sliceOrEmpty(account.OldUsernames)); err != nil {
		return doc, fmt.Errorf("encode username history: %w", err)
	}
	if doc.oldEmails, err = json.Marshal(sliceOrEmpty(account.OldEmails)); err != nil {
		return doc, fmt.Errorf("encode email history: %w", err)
	}

	return doc, nil
}

func sliceOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Save upserts the account document. A zero Version inserts, otherwise the
// update compares and swaps on the version column so concurrent writers
// cannot silently overwrite each other.
func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	doc, err := encodeAccount(account)
	if err != nil {
		return err
	}

	var usernameValue any
	if account.Username != "" {
		usernameValue = account.Username
	}
	var emailValue any
	if account.Email != "" {
		emailValue = account.Email
	}
	var hashValue any
	if account.PasswordHash != "" {
		hashValue = account.PasswordHash
	}
	var newEmailValue any
	if doc.newEmail != nil {
		newEmailValue = doc.newEmail
	}

	if account.Version == 0 {
		query := r.builder.Insert(accountsTable).
			Columns(accountColumns...).
			Values(
				account.ID,
				usernameValue,
				emailValue,
				hashValue,
				account.Group,
				doc.login,
				doc.social,
				doc.reset,
				newEmailValue,
				doc.profile,
				doc.address,
				doc.oldUsernames,
				doc.oldEmails,
				account.CreatedAt,
				1,
			)

		stmt, args, err := query.ToSql()
		if err != nil {
			return fmt.Errorf("build insert account sql: %w", err)
		}

		if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert account: %w", repository.ErrDuplicate)
			}
			return fmt.Errorf("insert account: %w", err)
		}

		account.Version = 1
		return nil
	}

	query := r.builder.Update(accountsTable).
		Set("username", usernameValue).
		Set("email", emailValue).
		Set("password_hash", hashValue).
		Set("grp", account.Group).
		Set("login", doc.login).
		Set("social", doc.social).
		Set("reset", doc.reset).
		Set("new_email", newEmailValue).
		Set("profile", doc.profile).
		Set("address", doc.address).
		Set("old_usernames", doc.oldUsernames).
		Set("old_emails", doc.oldEmails).
		Set("version", account.Version+1).
		Where(squirrel.Eq{"id": account.ID, "version": account.Version})

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update account: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}

	account.Version++
	return nil
}

// FindByID retrieves an account by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByUsernameOrEmail resolves an identifier: values containing '@' match
// the lowercased email, everything else the exact, case-sensitive username.
// On email, an account with a local credential outranks a federated
// placeholder parked on the same address.
func (r *AccountRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return r.findOne(ctx, squirrel.Eq{"email": strings.ToLower(identifier)},
			"password_hash IS NOT NULL DESC", "created_at")
	}
	return r.findOne(ctx, squirrel.Eq{"username": identifier})
}

// FindByFederatedIdentity matches in order: the provider's external id, the
// primary email column, then any other provider's stored email. First match
// wins; each rung is a separate query so the precedence stays explicit.
func (r *AccountRepository) FindByFederatedIdentity(ctx context.Context, provider domain.Provider, externalID string, candidateEmails []string) (*domain.Account, error) {
	if externalID != "" {
		account, err := r.findOne(ctx, squirrel.Expr("social -> ? ->> 'id' = ?", string(provider), externalID))
		if err == nil {
			return account, nil
		}
		if err != repository.ErrNotFound {
			return nil, err
		}
	}

	emails := make([]string, 0, len(candidateEmails))
	for _, email := range candidateEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			emails = append(emails, email)
		}
	}
	if len(emails) == 0 {
		return nil, repository.ErrNotFound
	}

	account, err := r.findOne(ctx, squirrel.Eq{"email": emails})
	if err == nil {
		return account, nil
	}
	if err != repository.ErrNotFound {
		return nil, err
	}

	return r.findBySocialEmail(ctx, emails, "")
}

// RemoveFederatedPlaceholder detaches and returns an account whose federated
// sub-records assert the given email so its data can be folded into the
// account being activated. The activating account itself is excluded.
func (r *AccountRepository) RemoveFederatedPlaceholder(ctx context.Context, email string, excludeID string) (*domain.Account, error) {
	account, err := r.findBySocialEmail(ctx, []string{strings.ToLower(strings.TrimSpace(email))}, excludeID)
	if err != nil {
		return nil, err
	}

	stmt, args, err := r.builder.Delete(accountsTable).
		Where(squirrel.Eq{"id": account.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete placeholder sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("delete placeholder account: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) findBySocialEmail(ctx context.Context, emails []string, excludeID string) (*domain.Account, error) {
	conds := squirrel.Or{}
	for _, provider := range domain.Providers() {
		conds = append(conds, squirrel.Expr(
			fmt.Sprintf("social -> '%s' ->> 'email' = ANY(?)", provider), emails,
		))
	}

	where := squirrel.And{conds}
	if excludeID != "" {
		where = append(where, squirrel.NotEq{"id": excludeID})
	}

	return r.findOne(ctx, where)
}

func (r *AccountRepository) findOne(ctx context.Context, pred any, orderBy ...string) (*domain.Account, error) {
	query := r.builder.
		Select(accountColumns...).
		From(accountsTable).
		Where(pred)
	if len(orderBy) > 0 {
		query = query.OrderBy(orderBy...)
	}
	stmt, args, err := query.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account      domain.Account
		username     sql.NullString
		email        sql.NullString
		passwordHash sql.NullString
		login        []byte
		social       []byte
		reset        []byte
		newEmail     []byte
		profile      []byte
		address      []byte
		oldUsernames []byte
		oldEmails    []byte
		createdAt    time.Time
	)

	if err := row.Scan(
		&account.ID,
		&username,
		&email,
		&passwordHash,
		&account.Group,
		&login,
		&social,
		&reset,
		&newEmail,
		&profile,
		&address,
		&oldUsernames,
		&oldEmails,
		&createdAt,
		&account.Version,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Username = username.String
	account.Email = email.String
	account.PasswordHash = passwordHash.String
	account.CreatedAt = createdAt

	if err := json.Unmarshal(login, &account.Login); err != nil {
		return nil, fmt.Errorf("decode login state: %w", err)
	}
	if err := json.Unmarshal(social, &account.Social); err != nil {
		return nil, fmt.Errorf("decode federated identities: %w", err)
	}
	if err := json.Unmarshal(reset, &account.Reset); err != nil {
		return nil, fmt.Errorf("decode reset state: %w", err)
	}
	if len(newEmail) > 0 {
		var pending domain.PendingEmailChange
		if err := json.Unmarshal(newEmail, &pending); err != nil {
			return nil, fmt.Errorf("decode pending email change: %w", err)
		}
		account.NewEmail = &pending
	}
	if err := json.Unmarshal(profile, &account.Profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := json.Unmarshal(address, &account.Address); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if err := json.Unmarshal(oldUsernames, &account.OldUsernames); err != nil {
		return nil, fmt.Errorf("decode username history: %w", err)
	}
	if err := json.Unmarshal(oldEmails, &account.OldEmails); err != nil {
		return nil, fmt.Errorf("decode email history: %w", err)
	}

	return &account, nil
}
