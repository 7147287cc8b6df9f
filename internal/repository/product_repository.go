package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/acp-gateway/internal/model"
)

// ProductRepo reads the imported merchant feed from the 'products' and
// 'product_keywords' tables.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// ProductsByKeyword returns up to limit products tagged with keyword.
func (r *ProductRepo) ProductsByKeyword(ctx context.Context, keyword string, limit int) ([]model.Product, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" || limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.price, p.currency, p.merchant_name, p.merchant_logo,
		        p.image_url, p.product_url, p.rating, p.reviews_count, p.cashback_rate,
		        p.affiliate_link, p.in_stock
		 FROM products p
		 JOIN product_keywords k ON k.product_id = p.id
		 WHERE k.keyword = ?
		 LIMIT ?`, keyword, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Product, 0, limit)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Price,
			&p.Currency,
			&p.MerchantName,
			&p.MerchantLogo,
			&p.ImageURL,
			&p.ProductURL,
			&p.Rating,
			&p.ReviewsCount,
			&p.CashbackRate,
			&p.AffiliateLink,
			&p.InStock,
		); err != nil {
			return nil, err
		}
		p.EstimatedCashback = model.EstimateCashback(p.Price, p.CashbackRate)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
