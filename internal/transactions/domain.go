package transactions

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknownDomain is returned when a domain name is not registered.
var ErrUnknownDomain = errors.New("transactions: unknown domain")

// Domain describes where a transaction family lives and how its raw payload
// names the grouping entity.
type Domain struct {
	Name        string
	Path        string
	FallbackKey string
	EntityField string
	NameField   string
	Placeholder string
}

var domains = map[string]Domain{
	"nurse": {
		Name:        "nurse",
		Path:        "/nurse-transactions",
		FallbackKey: "nurseTransactions",
		EntityField: "nurseId",
		NameField:   "nurseName",
		Placeholder: "Unknown Nurse",
	},
	"patient": {
		Name:        "patient",
		Path:        "/patient-transactions",
		FallbackKey: "patientTransactions",
		EntityField: "patientId",
		NameField:   "patientName",
		Placeholder: "Unknown Patient",
	},
	"pharmacy": {
		Name:        "pharmacy",
		Path:        "/pharmacy-transactions",
		FallbackKey: "pharmacyTransactions",
		EntityField: "pharmacyId",
		NameField:   "pharmacyName",
		Placeholder: "Unknown Pharmacy",
	},
	"doctor": {
		Name:        "doctor",
		Path:        "/doctor-transactions",
		FallbackKey: "doctorTransactions",
		EntityField: "doctorId",
		NameField:   "doctorName",
		Placeholder: "Unknown Doctor",
	},
	"revenue": {
		Name:        "revenue",
		Path:        "/revenue",
		FallbackKey: "revenueTransactions",
		EntityField: "departmentId",
		NameField:   "departmentName",
		Placeholder: "Unknown Department",
	},
}

// LookupDomain resolves a domain by name, case-insensitively.
func LookupDomain(name string) (Domain, error) {
	d, ok := domains[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Domain{}, ErrUnknownDomain
	}
	return d, nil
}

// Domains lists every registered domain sorted by name.
func Domains() []Domain {
	out := make([]Domain, 0, len(domains))
	for _, d := range domains {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
