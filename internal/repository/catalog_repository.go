package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const productColumns = `id, name, slug, category, brand, description, images, stock, price,
	rating, num_reviews, is_featured, banner, created_at`

const reviewColumns = `id, product_id, user_id, title, description, rating,
	is_verified_purchase, created_at, updated_at`

// CatalogRepository keeps products and reviews in Postgres.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "catalog_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p      domain.Product
		banner sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Category,
		&p.Brand,
		&p.Description,
		pq.Array(&p.Images),
		&p.Stock,
		&p.Price,
		&p.Rating,
		&p.NumReviews,
		&p.IsFeatured,
		&banner,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if banner.Valid {
		p.Banner = &banner.String
	}
	return &p, nil
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.Title,
		&rv.Description,
		&rv.Rating,
		&rv.IsVerifiedPurchase,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// Product ids are uuids; anything else can never match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, ErrProductNotFound
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by slug: %w", err)
	}
	return p, nil
}

func (r *CatalogRepository) ListLatestProducts(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

var productOrder = map[ProductSort]string{
	SortNewest:  "created_at DESC",
	SortLowest:  "price ASC",
	SortHighest: "price DESC",
	SortRating:  "rating DESC",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProducts returns one page of products matching q and the number of
// matches across all pages.
func (r *CatalogRepository) SearchProducts(ctx context.Context, q ProductSearch) ([]*domain.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.Text != "" {
		p := arg(likeEscaper.Replace(q.Text)) + "::text"
		conds = append(conds, "(name ILIKE '%' || "+p+" || '%' OR description ILIKE '%' || "+p+" || '%')")
	}
	if q.Category != "" {
		conds = append(conds, "category = "+arg(q.Category))
	}
	if q.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*q.MaxPrice))
	}
	if q.MinRating != nil {
		conds = append(conds, "rating >= "+arg(*q.MinRating))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order, ok := productOrder[q.Sort]
	if !ok {
		order = productOrder[SortNewest]
	}
	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY ` + order + `, id LIMIT ` + arg(q.Limit) + ` OFFSET ` + arg(q.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0, q.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return products, total, nil
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.CategoryCount, error) {
	query := `SELECT category, COUNT(*) FROM products GROUP BY category ORDER BY category`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.CategoryCount{}
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

func (r *CatalogRepository) ListFeaturedProducts(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_featured ORDER BY created_at DESC, id LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query featured products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

// CreateProduct is used to seed the catalog. ID and CreatedAt are filled in
// when empty.
func (r *CatalogRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Images == nil {
		p.Images = []string{}
	}

	query := `INSERT INTO products (id, name, slug, category, brand, description, images, stock, price,
	          rating, num_reviews, is_featured, banner, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	          RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Category,
		p.Brand,
		p.Description,
		pq.Array(p.Images),
		p.Stock,
		p.Price,
		p.Rating,
		p.NumReviews,
		p.IsFeatured,
		p.Banner,
	).Scan(&p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// ListReviews returns a product's reviews, newest first.
func (r *CatalogRepository) ListReviews(ctx context.Context, productID string) ([]*domain.Review, error) {
	if !validID(productID) {
		return []*domain.Review{}, nil
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query reviews by product id: %w", err)
	}
	defer rows.Close()

	reviews := []*domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return reviews, nil
}

func (r *CatalogRepository) GetUserReview(ctx context.Context, productID, userID string) (*domain.Review, error) {
	if !validID(productID) {
		return nil, ErrReviewNotFound
	}
	return findReview(ctx, r.db, productID, userID, false)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findReview(ctx context.Context, q querier, productID, userID string, forUpdate bool) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE product_id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rv, err := scanReview(q.QueryRowContext(ctx, query, productID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	return rv, nil
}

// WithinTx runs fn in a single read-committed transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (r *CatalogRepository) WithinTx(ctx context.Context, fn func(tx ReviewTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&reviewTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *CatalogRepository) Close() error {
	return r.db.Close()
}

type reviewTx struct {
	tx *sql.Tx
}

func (t *reviewTx) LockProduct(ctx context.Context, productID string) (*domain.Product, error) {
	if !validID(productID) {
		return nil, ErrProductNotFound
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	p, err := scanProduct(t.tx.QueryRowContext(ctx, query, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (t *reviewTx) FindReview(ctx context.Context, productID, userID string) (*domain.Review, error) {
	return findReview(ctx, t.tx, productID, userID, true)
}

func (t *reviewTx) InsertReview(ctx context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}

	query := `INSERT INTO reviews (id, product_id, user_id, title, description, rating, is_verified_purchase, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err := t.tx.QueryRowContext(ctx, query,
		rv.ID,
		rv.ProductID,
		rv.UserID,
		rv.Title,
		rv.Description,
		rv.Rating,
		rv.IsVerifiedPurchase,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (t *reviewTx) UpdateReview(ctx context.Context, rv *domain.Review) error {
	query := `UPDATE reviews SET title = $1, description = $2, rating = $3, updated_at = NOW()
	          WHERE id = $4
	          RETURNING created_at, updated_at`

	err := t.tx.QueryRowContext(ctx, query, rv.Title, rv.Description, rv.Rating, rv.ID).
		Scan(&rv.CreatedAt, &rv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReviewNotFound
	}
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// RatingSummary averages the product's reviews, rounded to two places.
func (t *reviewTx) RatingSummary(ctx context.Context, productID string) (domain.RatingSummary, error) {
	query := `SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0), COUNT(*) FROM reviews WHERE product_id = $1`

	var s domain.RatingSummary
	if err := t.tx.QueryRowContext(ctx, query, productID).Scan(&s.Average, &s.Count); err != nil {
		return domain.RatingSummary{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	return s, nil
}

func (t *reviewTx) UpdateProductRating(ctx context.Context, productID string, s domain.RatingSummary) error {
	query := `UPDATE products SET rating = $1, num_reviews = $2 WHERE id = $3`

	result, err := t.tx.ExecContext(ctx, query, s.Average, s.Count, productID)
	if err != nil {
		return fmt.Errorf("update product rating: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product rating: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}
