package models

import (
	"time"
)

// Order lifecycle labels and the payment states tied to them.
const (
	StatusProcessing    = "Processing"
	StatusTransferred   = "Transferred to delivery partner"
	StatusDelivered     = "Delivered"
	StatusRefundRequest = "Processing refund"
	StatusRefundSuccess = "Refund Success"

	PaymentSucceeded = "Succeeded"
)

// ServiceChargeRate is withheld from the order total when crediting a shop.
const ServiceChargeRate = 0.1

type Address struct {
	Country     string `json:"country"`
	City        string `json:"city"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	ZipCode     string `json:"zipCode"`
	AddressType string `json:"addressType"`
}

type OrderUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PaymentInfo struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// CartLine is one product/quantity/price entry of a checkout request,
// tagged with the shop it originates from.
type CartLine struct {
	ProductID  uint    `json:"productId"`
	ShopID     uint    `json:"shopId"`
	Name       string  `json:"name"`
	Qty        uint    `json:"qty"`
	Price      float64 `json:"price"`
	IsReviewed bool    `json:"isReviewed"`
}

// Order holds one shop's slice of a checkout. Checkout fans out one Order per
// distinct shop in the cart, all sharing the request's address, user and
// total price. UserID and ShopID mirror the embedded documents so list
// endpoints can filter without unpacking JSON columns.
type Order struct {
	ID              uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint        `gorm:"index;not null"           json:"-"`
	ShopID          uint        `gorm:"index;not null"           json:"-"`
	Cart            []CartLine  `gorm:"serializer:json"          json:"cart"`
	ShippingAddress Address     `gorm:"serializer:json"          json:"shippingAddress"`
	User            OrderUser   `gorm:"serializer:json"          json:"user"`
	TotalPrice      float64     `gorm:"not null"                 json:"totalPrice"`
	PaymentInfo     PaymentInfo `gorm:"serializer:json"          json:"paymentInfo"`
	Status          string      `gorm:"not null;default:Processing" json:"status"`
	DeliveredAt     *time.Time  `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

type Image struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

type Review struct {
	UserID    uint    `json:"user"`
	Rating    float64 `json:"rating"`
	Comment   string  `json:"comment"`
	ProductID uint    `json:"productId"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID      uint      `gorm:"index;not null"           json:"shopId"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `gorm:"not null"                 json:"description"`
	Category    string    `json:"category"`
	Price       float64   `gorm:"not null"                 json:"price"`
	Stock       int       `json:"stock"`
	SoldOut     int       `json:"sold_out"`
	Ratings     float64   `json:"ratings"`
	Images      []Image   `gorm:"serializer:json"          json:"images"`
	Reviews     []Review  `gorm:"serializer:json"          json:"reviews"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ApplyFulfillment moves qty units from stock to sold_out when an order is
// handed to the delivery partner.
func (p *Product) ApplyFulfillment(qty uint) {
	p.Stock -= int(qty)
	p.SoldOut += int(qty)
}

// ApplyRefund is the inverse of ApplyFulfillment, used on refund approval.
func (p *Product) ApplyRefund(qty uint) {
	p.Stock += int(qty)
	p.SoldOut -= int(qty)
}

// UpsertReview overwrites the user's existing review or appends a new one,
// then recomputes the aggregate rating.
func (p *Product) UpsertReview(r Review) {
	updated := false
	for i := range p.Reviews {
		if p.Reviews[i].UserID == r.UserID {
			p.Reviews[i].Rating = r.Rating
			p.Reviews[i].Comment = r.Comment
			updated = true
			break
		}
	}
	if !updated {
		p.Reviews = append(p.Reviews, r)
	}
	p.RecalculateRatings()
}

// RecalculateRatings keeps the invariant ratings == mean(review ratings).
func (p *Product) RecalculateRatings() {
	if len(p.Reviews) == 0 {
		p.Ratings = 0
		return
	}
	var sum float64
	for _, rev := range p.Reviews {
		sum += rev.Rating
	}
	p.Ratings = sum / float64(len(p.Reviews))
}

type Shop struct {
	ID               uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string  `gorm:"not null"                 json:"name"`
	Email            string  `gorm:"not null"                 json:"email"`
	AvailableBalance float64 `json:"availableBalance"`
}

// CreditBalance records the payout for a delivered order. The balance is set,
// not incremented, matching the historical behaviour of this system.
func (s *Shop) CreditBalance(amount float64) {
	s.AvailableBalance = amount
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
	ShopID       uint   `gorm:"index"                    json:"shopId,omitempty"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"       json:"id"`
	Token     string `gorm:"unique;not null"  json:"token"`
	UserID    uint   `gorm:"index;not null"   json:"user_id"`
	ExpiresAt int64  `gorm:"not null"         json:"expires_at"`
	Revoked   bool   `gorm:"default:false"    json:"revoked"`
}
