// Package pdf renders settlement statements for accepted offers.
package pdf

import (
	"context"
	"io"
)

// StatementData carries everything the statement renders. All amounts
// arrive pre-formatted so the renderer never touches money math.
type StatementData struct {
	OrderRef  string
	IssueDate string

	BuyerRef  string
	SellerRef string

	Species  string
	Quantity int64
	Unit     string
	Province string

	Lines []StatementLine

	CommissionModel string
	GrandTotal      string
	NetToSeller     string
}

// StatementLine is one row of the fee composition table.
type StatementLine struct {
	Description string
	Party       string
	Amount      string
}

type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error)
}

// NoOpProvider satisfies Provider where statement rendering is disabled.
type NoOpProvider struct{}

func (p *NoOpProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	return nil, nil
}
