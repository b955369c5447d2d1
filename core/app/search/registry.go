package search

import (
	"sort"
	"strconv"
	"strings"
)

// FallbackTag is the table whose field list answers unknown tags
const FallbackTag = "branch"

// FallbackPolicy decides what an unknown tag resolves to
type FallbackPolicy int

const (
	// FallbackLegacyKeys returns the key names of the branch list, i.e. the
	// index strings "0".."n-1". Existing screens depend on this.
	FallbackLegacyKeys FallbackPolicy = iota
	// FallbackBranchPaths returns the branch field paths themselves
	FallbackBranchPaths
)

// ParseFallbackPolicy maps the SEARCH_FALLBACK setting to a policy.
// Anything other than "branch" keeps the legacy behaviour.
func ParseFallbackPolicy(s string) FallbackPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "branch") {
		return FallbackBranchPaths
	}
	return FallbackLegacyKeys
}

func (p FallbackPolicy) String() string {
	if p == FallbackBranchPaths {
		return "branch"
	}
	return "legacy"
}

// fieldMap is the default search field list per table tag. It is never
// modified after init; every accessor hands out copies.
var fieldMap = map[string][]string{
	"branch":             {"name", "address", "city", "state", "pincode", "phone", "email", "gst_number", "is_active"},
	"users":              {"name", "email", "mobile", "role.name", "branch.name", "status"},
	"roles":              {"name", "description", "is_active"},
	"models":             {"model_name", "type", "category", "status", "colors.0.name"},
	"headers":            {"header_key", "category_key", "type", "priority", "is_mandatory", "is_discount"},
	"documents":          {"name", "description", "is_required", "status"},
	"conditions":         {"type", "condition", "is_active"},
	"offers":             {"title", "description", "applyToAllModels", "is_active"},
	"customers":          {"name", "mobile1", "mobile2", "email", "address", "district", "taluka", "pincode", "custId"},
	"rto":                {"rtoCode", "rtoName", "city", "state"},
	"finance_rates":      {"financeProvider.name", "branch.name", "gcRate", "amount"},
	"insurance_provider": {"provider_name", "is_active"},
	"booking": {
		"bookingNumber",
		"customerDetails.name", "customerDetails.mobile1", "customerDetails.mobile2", "customerDetails.email",
		"customerDetails.address", "customerDetails.district", "customerDetails.taluka",
		"model.model_name", "model.type", "color.name", "branch.name", "salesExecutive.name",
		"payment.type", "payment.financer.name", "payment.scheme",
		"exchange", "exchangeDetails.broker.name", "exchangeDetails.vehicleNumber", "exchangeDetails.chassisNumber",
		"status", "createdAt",
	},
	"accessories": {"name", "part_number", "description", "categoryDetails.title", "price", "applicable_models.0.model_name", "is_active"},
	"inward": {
		"unloadLocation.name", "items.0.vehicle.chassisNumber", "items.0.vehicle.engineNumber",
		"items.0.model.model_name", "items.0.color.name", "status", "createdAt",
	},
	"receipts": {
		"receiptNumber", "bookingId.bookingNumber", "bookingId.customerDetails.name", "bookingId.model.model_name",
		"amount", "paymentMode", "transactionReference", "createdAt",
	},
	"expense": {"expenseType", "amount", "description", "branch.name", "paymentMode", "status", "createdAt"},
	"subdealerCommission": {
		"subdealer.name", "booking.bookingNumber", "booking.customerDetails.name", "booking.model.model_name",
		"commissionAmount", "status",
	},
	"stockTransfer": {"fromBranch.name", "toBranch.name", "items.0.vehicle.chassisNumber", "status", "createdAt"},
	"allReceipts":   {"voucherId", "recipientName", "voucherType", "paymentMode", "amount", "status", "createdAt"},
	"insurance": {
		"bookingId.bookingNumber", "bookingId.customerDetails.name", "bookingId.chassisNumber",
		"insuranceProvider.provider_name", "policyNumber", "status",
	},
	"vouchers":             {"voucherId", "voucherType", "recipientName", "paymentMode", "amount", "status", "branch.name"},
	"accessory_category":   {"title", "description", "status"},
	"color":                {"name", "hex_code", "status"},
	"cash_bank_allocation": {"bankName", "accountNumber", "branch.name", "amount", "status"},
	"payment_mode":         {"payment_mode", "is_active"},
	"subdealer":            {"name", "location", "contactPerson", "mobile", "type", "status"},
	"allCustomers":         {"name", "mobile1", "email", "custId", "bookings.0.bookingNumber", "bookings.0.model.model_name"},
}

// SearchRegistry answers which record fields the search box inspects for a
// table tag
type SearchRegistry struct {
	fallback FallbackPolicy
}

// NewSearchRegistry creates a registry over the built-in tag table
func NewSearchRegistry(policy FallbackPolicy) *SearchRegistry {
	return &SearchRegistry{fallback: policy}
}

var defaultRegistry = NewSearchRegistry(FallbackLegacyKeys)

// DefaultSearchFields returns the search fields for tag with the legacy
// fallback for unknown tags
func DefaultSearchFields(tag string) []string {
	return defaultRegistry.Fields(tag)
}

// Policy returns the fallback policy in use
func (r *SearchRegistry) Policy() FallbackPolicy {
	return r.fallback
}

// Fields returns a copy of tag's field paths. Unknown tags get the fallback.
func (r *SearchRegistry) Fields(tag string) []string {
	if fields, ok := r.Lookup(tag); ok {
		return fields
	}
	return r.fallbackFields()
}

// Lookup returns tag's field paths without applying the fallback
func (r *SearchRegistry) Lookup(tag string) ([]string, bool) {
	fields, ok := fieldMap[tag]
	if !ok {
		return nil, false
	}
	return append([]string(nil), fields...), true
}

func (r *SearchRegistry) fallbackFields() []string {
	branch := fieldMap[FallbackTag]
	if r.fallback == FallbackBranchPaths {
		return append([]string(nil), branch...)
	}
	keys := make([]string, len(branch))
	for i := range branch {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// Has reports whether tag is a known table tag
func (r *SearchRegistry) Has(tag string) bool {
	_, ok := fieldMap[tag]
	return ok
}

// Tags lists every known tag in sorted order
func (r *SearchRegistry) Tags() []string {
	tags := make([]string, 0, len(fieldMap))
	for tag := range fieldMap {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// All returns a copy of the whole tag table
func (r *SearchRegistry) All() map[string][]string {
	out := make(map[string][]string, len(fieldMap))
	for tag, fields := range fieldMap {
		out[tag] = append([]string(nil), fields...)
	}
	return out
}
