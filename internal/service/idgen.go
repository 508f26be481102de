package service

import (
	"strings"

	"github.com/google/uuid"
)

// UUIDIdentifierGenerator implements ports.IdentifierGenerator with UUIDv4
// entropy rendered as prefixed uppercase hex. Uniqueness is statistical;
// the ledger's unique constraints are the backstop and the orchestrators
// regenerate once on a detected collision.
type UUIDIdentifierGenerator struct{}

// NewUUIDIdentifierGenerator creates a new identifier generator.
func NewUUIDIdentifierGenerator() *UUIDIdentifierGenerator {
	return &UUIDIdentifierGenerator{}
}

// TransactionID returns a client-displayable identifier, e.g. TXN5A1B2C3D4E.
func (g *UUIDIdentifierGenerator) TransactionID() string {
	return prefixedHex("TXN", 10)
}

// ReferenceNumber returns a reconciliation reference, e.g. REF5A1B2C3D4E.
func (g *UUIDIdentifierGenerator) ReferenceNumber() string {
	return prefixedHex("REF", 10)
}

// AccountNumber returns a display wallet number, e.g. WAL5A1B2C3D4E.
func (g *UUIDIdentifierGenerator) AccountNumber() string {
	return prefixedHex("WAL", 10)
}

// MerchantCode returns a payment code, e.g. MER5A1B2C3D.
func (g *UUIDIdentifierGenerator) MerchantCode() string {
	return prefixedHex("MER", 8)
}

func prefixedHex(prefix string, n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + strings.ToUpper(hex[:n])
}
