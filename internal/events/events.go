// Package events publishes pharmacy mutations to an event bus.
package events

import (
	"context"

	"github.com/alfredjeanlab/pharmacy/internal/model"
)

// Topics are dot separated: pharmacy.<resource>.<verb>.
const (
	TopicPrefix = "pharmacy"
	// TopicAll matches every pharmacy topic.
	TopicAll = TopicPrefix + ".>"

	VerbCreated = "created"
	VerbUpdated = "updated"
	VerbDeleted = "deleted"

	TopicStockMoved      = "pharmacy.stock.moved"
	TopicStockLow        = "pharmacy.stock.low"
	TopicInvoiceIssued   = "pharmacy.invoice.issued"
	TopicUserLogin       = "pharmacy.user.login"
	TopicPasswordChanged = "pharmacy.user.password_changed"
	TopicBackupCompleted = "pharmacy.backup.completed"
)

// Topic returns the topic for a CRUD verb on resource, e.g.
// Topic("products", VerbCreated) is "pharmacy.products.created".
func Topic(resource, verb string) string {
	return TopicPrefix + "." + resource + "." + verb
}

// Event types

// EntityChanged is published for plain CRUD mutations. Data holds the
// entity after the change and is omitted for deletes.
type EntityChanged struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Data   any    `json:"data,omitempty"`
}

type StockMoved struct {
	Transaction *model.StockTransaction `json:"transaction"`
	Stock       *model.Stock            `json:"stock"`
}

// StockLow is published when a debit leaves the total on-hand quantity of
// a product at a branch at or below its reorder level.
type StockLow struct {
	BranchID     string `json:"branchId"`
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorderLevel"`
}

type InvoiceIssued struct {
	Invoice *model.SalesInvoice `json:"invoice"`
}

type UserLogin struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type PasswordChanged struct {
	UserID string `json:"userId"`
}

type BackupCompleted struct {
	Destinations int            `json:"destinations"`
	Bytes        int            `json:"bytes"`
	Counts       map[string]int `json:"counts"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
