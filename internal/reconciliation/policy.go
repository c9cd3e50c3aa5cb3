// Package reconciliation maps the customer name and phone typed on a sale or
// job sheet onto a canonical Customer record, creating one when nothing
// matches.
//
// Matching rules:
//   - names are compared trimmed and case-insensitively
//   - when the candidate carries a phone number it must equal the
//     customer's mobile exactly
//   - a candidate without a phone number matches on name alone
//
// Resolution is check-then-create and is not atomic: two concurrent
// resolutions of the same new candidate can both create a customer.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"repairdesk/internal/logger"
	"repairdesk/pkg/models"
)

// ErrNoIdentity is returned by Resolve when the candidate has no name.
var ErrNoIdentity = errors.New("candidate has no customer name")

// Origins recorded in the notes of auto-created customers.
const (
	OriginSale     = "Sale"
	OriginJobSheet = "Job Sheet"
)

// Candidate is the customer identity entered on a sale or job sheet.
type Candidate struct {
	Name    string
	Phone   string
	Address string
	Origin  string // entity kind the candidate came from
}

// Directory is the customer collection the policy reads and appends to.
type Directory interface {
	Value() []models.Customer
	Add(ctx context.Context, c models.Customer) (models.Customer, error)
}

// Policy resolves candidates against a Directory.
type Policy struct {
	customers Directory
	log       zerolog.Logger
}

// NewPolicy creates a policy over customers.
func NewPolicy(customers Directory) *Policy {
	return &Policy{
		customers: customers,
		log:       logger.WithComponent("reconciliation"),
	}
}

// Matches reports whether c denotes customer.
func Matches(customer models.Customer, c Candidate) bool {
	name := strings.TrimSpace(c.Name)
	if name == "" || !strings.EqualFold(name, strings.TrimSpace(customer.Name)) {
		return false
	}
	phone := strings.TrimSpace(c.Phone)
	if phone == "" {
		return true
	}
	return phone == customer.Mobile
}

// Find returns the first customer matching c.
func Find(customers []models.Customer, c Candidate) (models.Customer, bool) {
	for _, customer := range customers {
		if Matches(customer, c) {
			return customer, true
		}
	}
	return models.Customer{}, false
}

// Resolve returns the customer c denotes. created is true when a new
// customer had to be added.
func (p *Policy) Resolve(ctx context.Context, c Candidate) (customer models.Customer, created bool, err error) {
	const op = "Resolve"

	if strings.TrimSpace(c.Name) == "" {
		return models.Customer{}, false, ErrNoIdentity
	}

	if existing, ok := Find(p.customers.Value(), c); ok {
		p.log.Debug().
			Str("customer_id", existing.ID).
			Str("origin", c.Origin).
			Msg("Matched existing customer")
		return existing, false, nil
	}

	notes := "Auto-created"
	if c.Origin != "" {
		notes = fmt.Sprintf("Auto-created from %s", c.Origin)
	}
	added, err := p.customers.Add(ctx, models.Customer{
		Name:    strings.TrimSpace(c.Name),
		Mobile:  strings.TrimSpace(c.Phone),
		Address: c.Address,
		Notes:   notes,
	})
	if err != nil {
		return models.Customer{}, false, fmt.Errorf("%s: failed to create customer: %w", op, err)
	}

	p.log.Info().
		Str("customer_id", added.ID).
		Str("origin", c.Origin).
		Msg("Created customer from new identity")

	return added, true, nil
}
