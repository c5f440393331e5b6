package carrier

import "strings"

// BookingRequest carries everything the carrier needs to issue a waybill.
// Amounts are paise, weight is kilograms.
type BookingRequest struct {
	Reference string

	ConsigneeName  string
	ConsigneePhone string
	Address        string
	City           string
	State          string
	Pincode        string

	OriginName    string
	OriginAddress string
	OriginPincode string

	WeightKg      float64
	DeclaredValue int64
	Pieces        int
	ServiceType   string
}

// Validate runs the pre-flight checks the carrier is known to enforce, so a
// defective request fails fast without burning a network attempt.
func (r BookingRequest) Validate() error {
	if strings.TrimSpace(r.ConsigneeName) == "" {
		return &ValidationError{Field: "consignee_name", Reason: "is required"}
	}
	if digits := digitsOnly(r.ConsigneePhone); len(digits) < 10 {
		return &ValidationError{Field: "consignee_phone", Reason: "must contain at least 10 digits"}
	}
	if digits := digitsOnly(r.Pincode); len(digits) != 6 || digits != strings.TrimSpace(r.Pincode) {
		return &ValidationError{Field: "pincode", Reason: "must be a 6-digit destination pincode"}
	}
	if strings.TrimSpace(r.City) == "" {
		return &ValidationError{Field: "city", Reason: "is required"}
	}
	if strings.TrimSpace(r.State) == "" {
		return &ValidationError{Field: "state", Reason: "is required"}
	}
	if strings.TrimSpace(r.Address) == "" {
		return &ValidationError{Field: "address", Reason: "is required"}
	}
	if r.WeightKg <= 0 {
		return &ValidationError{Field: "weight_kg", Reason: "must be positive"}
	}
	if r.Pieces <= 0 {
		return &ValidationError{Field: "pieces", Reason: "must be positive"}
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
