// Package views holds the display rules shared by the HTML pages and the
// JSON API. Nothing here performs I/O.
package views

import (
	"fmt"
	"strings"

	"github.com/wolfman30/homecare-booking/internal/backend"
)

// AllAreas is the catalog's "no locality" choice.
const AllAreas = "All Areas"

// CatalogLocalities are the choices offered by the catalog's area filter.
var CatalogLocalities = []string{
	AllAreas,
	"Adyar",
	"Anna Nagar",
	"T. Nagar",
	"Velachery",
	"Mylapore",
	"Nungambakkam",
	"Besant Nagar",
	"Alwarpet",
	"Kodambakkam",
	"Porur",
}

// CoverageAreas are listed on every service detail page.
var CoverageAreas = []string{
	"Adyar",
	"Anna Nagar",
	"T. Nagar",
	"Velachery",
	"Mylapore",
	"Nungambakkam",
	"Besant Nagar",
	"Alwarpet",
}

// FilterServices keeps services whose name or description contains term,
// ignoring case. The locality is accepted but every service is offered in
// every area, so it never narrows the result.
func FilterServices(services []backend.Service, term, locality string) []backend.Service {
	_ = locality
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]backend.Service, 0, len(services))
	for _, s := range services {
		if needle == "" ||
			strings.Contains(strings.ToLower(s.Name), needle) ||
			strings.Contains(strings.ToLower(s.Description), needle) {
			out = append(out, s)
		}
	}
	return out
}

// FiltersActive reports whether the catalog shows a narrowed view.
func FiltersActive(term, locality string) bool {
	return strings.TrimSpace(term) != "" || (locality != "" && locality != AllAreas)
}

// ResultSummary is the catalog's count line.
func ResultSummary(n int) string {
	if n == 1 {
		return "1 service found"
	}
	return fmt.Sprintf("%d services found", n)
}

// FormatPrice renders a per-visit price in rupees.
func FormatPrice(p uint64) string {
	return fmt.Sprintf("₹%d", p)
}

// Status categories drive the badge shown for a booking.
const (
	CategoryPending   = "pending"
	CategoryConfirmed = "confirmed"
	CategoryOther     = "other"
)

// StatusCategory maps a backend status to its display category. Statuses
// the site does not know fall back to CategoryOther and are shown verbatim.
func StatusCategory(status string) string {
	switch status {
	case backend.StatusPending:
		return CategoryPending
	case backend.StatusConfirmed:
		return CategoryConfirmed
	default:
		return CategoryOther
	}
}

// AwaitingContact reports whether the visitor should be told the team will
// call them about this booking.
func AwaitingContact(status string) bool {
	return StatusCategory(status) == CategoryPending
}
