package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c Credentials) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// SQLStore keeps orders and reservations in postgres or sqlite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func OpenPostgres(ctx context.Context, cred Credentials) (*SQLStore, error) {
	db, err := sql.Open("postgres", cred.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := pingWithRetry(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: DialectPostgres, now: time.Now}, nil
}

// OpenSQLite opens path (":memory:" for a throwaway database). A single
// connection is used so an in-memory database is shared by every query.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := pingWithRetry(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLStore{db: db, dialect: DialectSQLite, now: time.Now}, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(func() error { return db.PingContext(ctx) }, b); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func (s *SQLStore) RunMigrations() error {
	var (
		dbDriver database.Driver
		dir      string
		err      error
	)
	switch s.dialect {
	case DialectPostgres:
		dbDriver, err = postgres.WithInstance(s.db, &postgres.Config{MigrationsTable: "restaurant_schema_migrations"})
		dir = "migrations/postgres"
	default:
		dbDriver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
		dir = "migrations/sqlite"
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(s.dialect), dbDriver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// --- orders ---

const orderColumns = `o.id, o.user_id, o.status, o.total, o.created_at, o.delivery_address,
	o.delivery_method, o.payment_method, o.payment_completed, o.payment_id,
	i.id, i.menu_item_id, i.quantity, i.price`

func (s *SQLStore) CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	created := cloneOrder(o)
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.now().UTC()
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, status, total, created_at, delivery_address,
		                     delivery_method, payment_method, payment_completed, payment_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		created.UserID,
		string(created.Status),
		created.Total.StringFixed(2),
		created.CreatedAt,
		created.DeliveryAddress,
		string(created.DeliveryMethod),
		string(created.PaymentMethod),
		created.PaymentCompleted,
		created.PaymentID,
	).Scan(&created.ID)
	if err != nil {
		return nil, classify(fmt.Errorf("insert order: %w", err))
	}

	for i := range created.Items {
		line := &created.Items[i]
		line.OrderID = created.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, menu_item_id, quantity, price)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			line.OrderID, line.MenuItemID, line.Quantity, line.Price.StringFixed(2),
		).Scan(&line.ID)
		if err != nil {
			return nil, classify(fmt.Errorf("insert order item: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit order: %w", err))
	}
	return created, nil
}

func (s *SQLStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var orders []*domain.Order
	err := s.read(ctx, func() error {
		var err error
		orders, err = s.queryOrders(ctx, s.db, "WHERE o.id = $1", false, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

func (s *SQLStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.listOrders(ctx, "")
}

func (s *SQLStore) ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.listOrders(ctx, "WHERE o.user_id = $1", userID)
}

func (s *SQLStore) ListActiveOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.listOrders(ctx, "WHERE o.status NOT IN ($1, $2)",
		string(domain.OrderStatusCompleted), string(domain.OrderStatusCancelled))
}

func (s *SQLStore) listOrders(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := s.read(ctx, func() error {
		var err error
		orders, err = s.queryOrders(ctx, s.db, where, false, args...)
		return err
	})
	return orders, err
}

func (s *SQLStore) UpdateOrder(ctx context.Context, id int64, fn UpdateFunc[domain.Order]) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	orders, err := s.queryOrders(ctx, tx, "WHERE o.id = $1", true, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	existing := orders[0]

	working := cloneOrder(existing)
	if err := fn(working); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, delivery_address = $2, payment_completed = $3, payment_id = $4
		 WHERE id = $5`,
		string(working.Status), working.DeliveryAddress, working.PaymentCompleted, working.PaymentID, id)
	if err != nil {
		return nil, classify(fmt.Errorf("update order: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit order update: %w", err))
	}

	working.ID = existing.ID
	working.UserID = existing.UserID
	working.CreatedAt = existing.CreatedAt
	working.Total = existing.Total
	working.Items = existing.Items
	return working, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLStore) queryOrders(ctx context.Context, q querier, where string, forUpdate bool, args ...any) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
	          FROM orders o LEFT JOIN order_items i ON i.order_id = o.id ` + where + `
	          ORDER BY o.id, i.id`
	if forUpdate && s.dialect == DialectPostgres {
		query += " FOR UPDATE OF o"
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query orders: %w", err))
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	var current *domain.Order
	for rows.Next() {
		var (
			o         domain.Order
			status    string
			method    string
			payment   string
			lineID    sql.NullInt64
			menuID    sql.NullInt64
			quantity  sql.NullInt64
			linePrice decimal.NullDecimal
		)
		if err := rows.Scan(
			&o.ID, &o.UserID, &status, &o.Total, timeScanner{&o.CreatedAt}, &o.DeliveryAddress,
			&method, &payment, &o.PaymentCompleted, &o.PaymentID,
			&lineID, &menuID, &quantity, &linePrice,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		if current == nil || current.ID != o.ID {
			o.Status = domain.OrderStatus(status)
			o.DeliveryMethod = domain.DeliveryMethod(method)
			o.PaymentMethod = domain.PaymentMethod(payment)
			o.Items = make([]domain.OrderLine, 0)
			current = &o
			orders = append(orders, current)
		}
		if lineID.Valid {
			current.Items = append(current.Items, domain.OrderLine{
				ID:         lineID.Int64,
				OrderID:    current.ID,
				MenuItemID: menuID.Int64,
				Quantity:   int(quantity.Int64),
				Price:      linePrice.Decimal,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("row iteration error: %w", err))
	}
	return orders, nil
}

// --- reservations ---

const reservationColumns = `id, user_id, date, party_size, full_name, email, phone, special_requests, status`

func (s *SQLStore) CreateReservation(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	created := cloneReservation(r)
	if created.Status == "" {
		created.Status = domain.ReservationStatusPending
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO reservations (user_id, date, party_size, full_name, email, phone, special_requests, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		created.UserID, created.Date.UTC(), created.PartySize, created.FullName, created.Email,
		created.Phone, created.SpecialRequests, string(created.Status),
	).Scan(&created.ID)
	if err != nil {
		return nil, classify(fmt.Errorf("insert reservation: %w", err))
	}
	return created, nil
}

func (s *SQLStore) GetReservation(ctx context.Context, id int64) (*domain.Reservation, error) {
	var list []*domain.Reservation
	err := s.read(ctx, func() error {
		var err error
		list, err = s.queryReservations(ctx, s.db, "WHERE id = $1", false, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrReservationNotFound
	}
	return list[0], nil
}

func (s *SQLStore) ListReservations(ctx context.Context) ([]*domain.Reservation, error) {
	return s.listReservations(ctx, "")
}

func (s *SQLStore) ListReservationsByUser(ctx context.Context, userID int64) ([]*domain.Reservation, error) {
	return s.listReservations(ctx, "WHERE user_id = $1", userID)
}

func (s *SQLStore) ListActiveReservations(ctx context.Context) ([]*domain.Reservation, error) {
	return s.listReservations(ctx, "WHERE status NOT IN ($1, $2)",
		string(domain.ReservationStatusCompleted), string(domain.ReservationStatusCancelled))
}

func (s *SQLStore) listReservations(ctx context.Context, where string, args ...any) ([]*domain.Reservation, error) {
	var list []*domain.Reservation
	err := s.read(ctx, func() error {
		var err error
		list, err = s.queryReservations(ctx, s.db, where, false, args...)
		return err
	})
	return list, err
}

func (s *SQLStore) UpdateReservation(ctx context.Context, id int64, fn UpdateFunc[domain.Reservation]) (*domain.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	list, err := s.queryReservations(ctx, tx, "WHERE id = $1", true, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrReservationNotFound
	}

	working := cloneReservation(list[0])
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = list[0].ID
	working.UserID = list[0].UserID

	_, err = tx.ExecContext(ctx,
		`UPDATE reservations SET date = $1, party_size = $2, full_name = $3, email = $4, phone = $5,
		        special_requests = $6, status = $7
		 WHERE id = $8`,
		working.Date.UTC(), working.PartySize, working.FullName, working.Email, working.Phone,
		working.SpecialRequests, string(working.Status), id)
	if err != nil {
		return nil, classify(fmt.Errorf("update reservation: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit reservation update: %w", err))
	}
	return working, nil
}

func (s *SQLStore) queryReservations(ctx context.Context, q querier, where string, forUpdate bool, args ...any) ([]*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ` + where + ` ORDER BY id`
	if forUpdate && s.dialect == DialectPostgres {
		query += " FOR UPDATE"
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query reservations: %w", err))
	}
	defer rows.Close()

	list := make([]*domain.Reservation, 0)
	for rows.Next() {
		var (
			r      domain.Reservation
			status string
		)
		if err := rows.Scan(&r.ID, &r.UserID, timeScanner{&r.Date}, &r.PartySize, &r.FullName,
			&r.Email, &r.Phone, &r.SpecialRequests, &status); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		r.Status = domain.ReservationStatus(status)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("row iteration error: %w", err))
	}
	return list, nil
}

// read retries an idempotent query while the failure looks transient.
func (s *SQLStore) read(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !errors.Is(err, domain.ErrTransientIO) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// classify marks connection-level failures as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		netErr net.Error
		pqErr  *pq.Error
	)
	switch {
	case errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", domain.ErrTransientIO, err)
	case errors.As(err, &pqErr):
		class := string(pqErr.Code.Class())
		if class == "08" || class == "53" || pqErr.Code == "57P03" {
			return fmt.Errorf("%w: %w", domain.ErrTransientIO, err)
		}
	}
	return err
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// timeScanner accepts both native timestamps and the text form sqlite may hand back.
type timeScanner struct {
	t *time.Time
}

func (ts timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		return errors.New("timestamp is NULL")
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (ts timeScanner) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
