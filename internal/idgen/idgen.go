// Package idgen generates the human-facing reference numbers printed on
// invoices and stock movements. Record identity is a UUID; these are for
// people to read out and search by.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	InvoicePrefix     = "INV-"
	TransactionPrefix = "STX-"
)

// Alphabet omits characters that are easily confused when read aloud or
// handwritten (0/O, 1/I/L).
var Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// InvoiceNumber returns a new sales invoice number.
func InvoiceNumber() (string, error) {
	return GenerateWithPrefix(InvoicePrefix)
}

// TransactionReference returns a new stock transaction reference.
func TransactionReference() (string, error) {
	return GenerateWithPrefix(TransactionPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
