package service

import (
	"sort"
	"time"

	"go-apotek-pos/internal/model"
)

const (
	DefaultLowStockThreshold = 10
	DefaultExpiryMonths      = 3
)

// LowStock returns active products with stock <= threshold, lowest stock first.
func LowStock(products []model.Product, threshold int) []model.Product {
	out := make([]model.Product, 0)
	for _, p := range products {
		if p.IsActive && p.Stock <= threshold {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out
}

// Expiring returns active products expiring within [now, now+months],
// soonest first. Products without an expiration date never qualify.
func Expiring(products []model.Product, now time.Time, months int) []model.Product {
	until := now.AddDate(0, months, 0)
	out := make([]model.Product, 0)
	for _, p := range products {
		if !p.IsActive || p.ExpirationDate == nil {
			continue
		}
		exp := *p.ExpirationDate
		if exp.Before(now) || exp.After(until) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpirationDate.Before(*out[j].ExpirationDate) })
	return out
}
