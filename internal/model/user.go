package model

import (
    "strings"
    "time"

    "github.com/shopspring/decimal"
)

func init() {
    // Balances and amounts are rendered as JSON numbers, not quoted strings.
    decimal.MarshalJSONWithoutQuotes = true
}

// NewUserBonus is the number of GO points granted when an account is created.
const NewUserBonus = 100

// Tier is the loyalty label derived from a user's GO points.
type Tier string

const (
    TierBronze   Tier = "Bronze"
    TierSilver   Tier = "Silver"
    TierGold     Tier = "Gold"
    TierPlatinum Tier = "Platinum"
)

// TierFor maps a GO points score to its tier.
func TierFor(points int) Tier {
    switch {
    case points >= 20000:
        return TierPlatinum
    case points >= 5000:
        return TierGold
    case points >= 1000:
        return TierSilver
    default:
        return TierBronze
    }
}

// User represents an identity record as persisted in the `users` table or
// collection.  A user is created with exactly one identity field set and
// afterwards is only mutated by cashback credits.
//
// Fields:
//  ID            – opaque identifier (UUID string).
//  Email         – lower-cased email, optional.
//  Phone         – phone in digits with optional leading +, optional.
//  WalletAddress – lower-cased 0x wallet address, optional.
//  Balance       – cashback credit.
//  GoPoints      – loyalty score.
//  GoTier        – tier derived from GoPoints.
//  JoinedAt      – creation timestamp.
//  Reconstructed – true when the record was rebuilt from a session token
//                  because the store had no row for it; never persisted.
type User struct {
    ID            string          `json:"id"`
    Email         string          `json:"email,omitempty"`
    Phone         string          `json:"phone,omitempty"`
    WalletAddress string          `json:"wallet_address,omitempty"`
    Balance       decimal.Decimal `json:"balance"`
    GoPoints      int             `json:"go_points"`
    GoTier        Tier            `json:"go_tier"`
    JoinedAt      time.Time       `json:"joined_at"`
    Reconstructed bool            `json:"reconstructed,omitempty"`
}

// Identity is the login handle a user is looked up and created by.  Only
// one field is expected to be set; Normalize picks the first non-empty one
// in the order email, phone, wallet.
type Identity struct {
    Email         string
    Phone         string
    WalletAddress string
}

// IdentityKind names the field an Identity resolves on.
type IdentityKind string

const (
    IdentityNone   IdentityKind = ""
    IdentityEmail  IdentityKind = "email"
    IdentityPhone  IdentityKind = "phone"
    IdentityWallet IdentityKind = "wallet_address"
)

// Normalize trims every field, lower-cases email and wallet, and keeps only
// the field that wins by precedence.
func (i Identity) Normalize() Identity {
    email := strings.ToLower(strings.TrimSpace(i.Email))
    phone := strings.TrimSpace(i.Phone)
    wallet := strings.ToLower(strings.TrimSpace(i.WalletAddress))
    switch {
    case email != "":
        return Identity{Email: email}
    case phone != "":
        return Identity{Phone: phone}
    case wallet != "":
        return Identity{WalletAddress: wallet}
    }
    return Identity{}
}

// Kind reports which field the identity resolves on.
func (i Identity) Kind() IdentityKind {
    switch {
    case i.Email != "":
        return IdentityEmail
    case i.Phone != "":
        return IdentityPhone
    case i.WalletAddress != "":
        return IdentityWallet
    }
    return IdentityNone
}

// Value returns the value of the field named by Kind.
func (i Identity) Value() string {
    switch i.Kind() {
    case IdentityEmail:
        return i.Email
    case IdentityPhone:
        return i.Phone
    case IdentityWallet:
        return i.WalletAddress
    }
    return ""
}

// NewUser builds a fresh account for the given identity with the sign-up
// bonus applied.  The caller supplies the id so stores stay free of id
// generation policy.
func NewUser(id string, ident Identity, now time.Time) User {
    ident = ident.Normalize()
    return User{
        ID:            id,
        Email:         ident.Email,
        Phone:         ident.Phone,
        WalletAddress: ident.WalletAddress,
        Balance:       decimal.Zero,
        GoPoints:      NewUserBonus,
        GoTier:        TierFor(NewUserBonus),
        JoinedAt:      now.UTC(),
    }
}
