package model

import "math"

// Product is a normalized view of a merchant listing.  It is built fresh
// for every search and never stored by this service.
type Product struct {
    ID                string  `json:"product_id"`
    Name              string  `json:"product_name"`
    Price             float64 `json:"product_price"`
    Currency          string  `json:"currency"`
    MerchantName      string  `json:"merchant_name"`
    MerchantLogo      string  `json:"merchant_logo"`
    ImageURL          string  `json:"image_url"`
    ProductURL        string  `json:"product_url"`
    Rating            float64 `json:"rating"`
    ReviewsCount      int     `json:"reviews_count"`
    CashbackRate      float64 `json:"cashback_rate"`
    EstimatedCashback float64 `json:"estimated_cashback"`
    AffiliateLink     string  `json:"affiliate_link"`
    InStock           bool    `json:"in_stock"`
}

// EstimateCashback returns price*rate rounded to two decimals.
func EstimateCashback(price, rate float64) float64 {
    return math.Round(price*rate*100) / 100
}
