package wallet

import "time"

// Account is a merchant/brand whose ledger balance funds shipment bookings.
type Account struct {
	ID        string
	Name      string
	Role      string
	Status    string
	CreatedAt time.Time
}

// Balance encapsulates available funds for an account.
type Balance struct {
	AccountID     string
	Amount        int64
	TotalCredited int64
	TotalDebited  int64
	LastCreditAt  time.Time
	AsOf          time.Time
}
