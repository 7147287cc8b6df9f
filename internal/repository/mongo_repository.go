package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/acp-gateway/internal/model"
)

// Collection names used by the MongoDB backend.
const (
	usersCollection    = "users"
	cashbackCollection = "usermycashbacks"
	sessionsCollection = "sessions"
	productsCollection = "products"
)

// Feed defaults for documents that predate the merchant fields.
const (
	defaultShopeeLogo   = "https://cf.shopee.co.th/file/38d3010b996b7d22f281e69974261899"
	defaultCashbackRate = 0.05
)

// userDoc mirrors a document in the users collection.  Balance is decoded
// loosely because older documents store it as a plain number.
type userDoc struct {
	ID            string    `bson:"_id"`
	Email         string    `bson:"email,omitempty"`
	Phone         string    `bson:"phone,omitempty"`
	WalletAddress string    `bson:"wallet_address,omitempty"`
	Balance       any       `bson:"balance"`
	GoPoints      int       `bson:"go_points"`
	GoTier        string    `bson:"go_tier"`
	JoinedAt      time.Time `bson:"joined_at"`
}

func (d userDoc) toModel() model.User {
	tier := model.Tier(d.GoTier)
	if tier == "" {
		tier = model.TierFor(d.GoPoints)
	}
	return model.User{
		ID:            d.ID,
		Email:         d.Email,
		Phone:         d.Phone,
		WalletAddress: d.WalletAddress,
		Balance:       decimalFromBSON(d.Balance),
		GoPoints:      d.GoPoints,
		GoTier:        tier,
		JoinedAt:      d.JoinedAt,
	}
}

type cashbackDoc struct {
	ID           string    `bson:"_id"`
	UserID       string    `bson:"userId"`
	Amount       any       `bson:"cashback_amount"`
	Description  string    `bson:"description"`
	Status       string    `bson:"status"`
	ConversionID string    `bson:"conversion_id,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

type sessionDoc struct {
	TokenHash string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// productDoc follows the shape of the imported Shopee feed; several fields
// have legacy aliases.
type productDoc struct {
	ID            any      `bson:"_id"`
	Title         string   `bson:"title"`
	Name          string   `bson:"name"`
	Price         float64  `bson:"price"`
	Currency      string   `bson:"currency"`
	MerchantName  string   `bson:"merchant_name"`
	MerchantLogo  string   `bson:"merchant_logo"`
	ImageURL      string   `bson:"image_url"`
	Image         string   `bson:"image"`
	ProductURL    string   `bson:"product_url"`
	Link          string   `bson:"link"`
	Rating        *float64 `bson:"rating"`
	Sold          int      `bson:"sold"`
	ReviewsCount  int      `bson:"reviews_count"`
	CashbackRate  *float64 `bson:"cashback_rate"`
	AffiliateLink string   `bson:"affiliate_link"`
	InStock       *bool    `bson:"in_stock"`
	Keywords      []string `bson:"keywords"`
}

func (d productDoc) toModel() model.Product {
	p := model.Product{
		ID:            docID(d.ID),
		Name:          firstNonEmpty(d.Title, d.Name, "Unknown Product"),
		Price:         d.Price,
		Currency:      firstNonEmpty(d.Currency, "THB"),
		MerchantName:  firstNonEmpty(d.MerchantName, "Shopee"),
		MerchantLogo:  firstNonEmpty(d.MerchantLogo, defaultShopeeLogo),
		ImageURL:      firstNonEmpty(d.ImageURL, d.Image),
		ProductURL:    firstNonEmpty(d.ProductURL, d.Link),
		Rating:        4.0,
		ReviewsCount:  d.ReviewsCount,
		CashbackRate:  defaultCashbackRate,
		AffiliateLink: firstNonEmpty(d.AffiliateLink, d.ProductURL, d.Link),
		InStock:       true,
	}
	if d.Rating != nil {
		p.Rating = *d.Rating
	}
	if p.ReviewsCount == 0 {
		p.ReviewsCount = d.Sold
	}
	if d.CashbackRate != nil {
		p.CashbackRate = *d.CashbackRate
	}
	if d.InStock != nil {
		p.InStock = *d.InStock
	}
	p.EstimatedCashback = model.EstimateCashback(p.Price, p.CashbackRate)
	return p
}

func docID(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func decimalToBSON(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func decimalFromBSON(v any) decimal.Decimal {
	switch t := v.(type) {
	case primitive.Decimal128:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(t)
	case int32:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case string:
		if d, err := decimal.NewFromString(t); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// MongoStore implements UserStore, CashbackStore, SessionStore and the
// product catalog on a MongoDB database.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore { return &MongoStore{db: db} }

// EnsureIndexes creates the unique identity indexes, the conversion id
// index and the session TTL index.  It is safe to call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		}
	}
	if _, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique("email"), unique("phone"), unique("wallet_address"),
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := s.db.Collection(cashbackCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique("conversion_id"),
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("cashback indexes: %w", err)
	}
	if _, err := s.db.Collection(sessionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		return fmt.Errorf("sessions index: %w", err)
	}
	if _, err := s.db.Collection(productsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "keywords", Value: 1}},
	}); err != nil {
		return fmt.Errorf("products index: %w", err)
	}
	return nil
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.D) (model.User, error) {
	var d userDoc
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	return d.toModel(), nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (model.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) FindByIdentity(ctx context.Context, ident model.Identity) (model.User, error) {
	ident = ident.Normalize()
	if ident.Kind() == model.IdentityNone {
		return model.User{}, ErrNotFound
	}
	return s.findUser(ctx, bson.D{{Key: string(ident.Kind()), Value: ident.Value()}})
}

func (s *MongoStore) Create(ctx context.Context, u model.User) error {
	doc := userDoc{
		ID:            u.ID,
		Email:         u.Email,
		Phone:         u.Phone,
		WalletAddress: u.WalletAddress,
		Balance:       decimalToBSON(u.Balance),
		GoPoints:      u.GoPoints,
		GoTier:        string(u.GoTier),
		JoinedAt:      u.JoinedAt,
	}
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrIdentityExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Credit inserts the transaction and then increments the owner's balance
// and points.  MongoDB standalone deployments have no multi-document
// transactions, so a failure between the two writes leaves the balance
// unadjusted; the transaction log stays authoritative.
func (s *MongoStore) Credit(ctx context.Context, ct model.CashbackTransaction) (model.CashbackTransaction, error) {
	if _, err := s.FindByID(ctx, ct.UserID); err != nil {
		return model.CashbackTransaction{}, err
	}
	doc := cashbackDoc{
		ID:           ct.ID,
		UserID:       ct.UserID,
		Amount:       decimalToBSON(ct.Amount),
		Description:  ct.Description,
		Status:       string(ct.Status),
		ConversionID: ct.ConversionID,
		CreatedAt:    ct.CreatedAt,
	}
	if _, err := s.db.Collection(cashbackCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.CashbackTransaction{}, ErrConflict
		}
		return model.CashbackTransaction{}, fmt.Errorf("insert cashback: %w", err)
	}

	var updated userDoc
	err := s.db.Collection(usersCollection).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: ct.UserID}},
		bson.D{{Key: "$inc", Value: bson.D{
			{Key: "balance", Value: decimalToBSON(ct.Amount)},
			{Key: "go_points", Value: model.PointsFor(ct.Amount)},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return model.CashbackTransaction{}, fmt.Errorf("increment balance: %w", err)
	}
	if tier := model.TierFor(updated.GoPoints); string(tier) != updated.GoTier {
		if _, err := s.db.Collection(usersCollection).UpdateOne(ctx,
			bson.D{{Key: "_id", Value: ct.UserID}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "go_tier", Value: string(tier)}}}},
		); err != nil {
			return model.CashbackTransaction{}, fmt.Errorf("update tier: %w", err)
		}
	}
	return ct, nil
}

func (s *MongoStore) ListByUser(ctx context.Context, userID string) ([]model.CashbackTransaction, error) {
	cur, err := s.db.Collection(cashbackCollection).Find(ctx,
		bson.D{{Key: "userId", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]model.CashbackTransaction, 0)
	for cur.Next(ctx) {
		var d cashbackDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, model.CashbackTransaction{
			ID:           d.ID,
			UserID:       d.UserID,
			Amount:       decimalFromBSON(d.Amount),
			Description:  d.Description,
			Status:       model.CashbackStatus(d.Status),
			ConversionID: d.ConversionID,
			CreatedAt:    d.CreatedAt,
		})
	}
	return out, cur.Err()
}

func (s *MongoStore) Record(ctx context.Context, sess model.Session) error {
	_, err := s.db.Collection(sessionsCollection).InsertOne(ctx, sessionDoc(sess))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *MongoStore) FindByTokenHash(ctx context.Context, tokenHash string) (model.Session, error) {
	var d sessionDoc
	err := s.db.Collection(sessionsCollection).FindOne(ctx, bson.D{{Key: "_id", Value: tokenHash}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	return model.Session(d), nil
}

// ProductsByKeyword returns up to limit products whose keywords array
// contains keyword.
func (s *MongoStore) ProductsByKeyword(ctx context.Context, keyword string, limit int) ([]model.Product, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" || limit <= 0 {
		return nil, nil
	}
	cur, err := s.db.Collection(productsCollection).Find(ctx,
		bson.D{{Key: "keywords", Value: keyword}},
		options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]model.Product, 0, limit)
	for cur.Next(ctx) {
		var d productDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toModel())
	}
	return out, cur.Err()
}
