package directory

import (
	"regexp"
	"strings"
)

// Tenant is one resolved customer account from the mapping directory.
type Tenant struct {
	TenantID     string `json:"tenant_id"`
	StoreName    string `json:"store_name"`
	Subdomain    string `json:"subdomain"`
	ContactEmail string `json:"contact_email,omitempty"`
	// SheetID is the stable handle to the tenant's operational data,
	// extracted from the spreadsheet URL stored in the directory row.
	SheetID string `json:"sheet_id"`
}

// sheetIDPattern matches the document id embedded in a spreadsheet URL,
// e.g. https://docs.google.com/spreadsheets/d/<id>/edit.
var sheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// Slug normalises a store name into its subdomain form: lowercase with
// whitespace runs collapsed to single hyphens. Idempotent.
func Slug(storeName string) string {
	fields := strings.Fields(strings.ToLower(storeName))
	return strings.Join(fields, "-")
}

// ParseSheetID extracts the data-source handle from a spreadsheet URL.
// The second return is false when the expected pattern is absent.
func ParseSheetID(sheetURL string) (string, bool) {
	match := sheetIDPattern.FindStringSubmatch(sheetURL)
	if match == nil {
		return "", false
	}
	return match[1], true
}
