// Package booking validates and submits home-visit booking requests.
package booking

import (
	"strings"
	"unicode"

	"github.com/wolfman30/homecare-booking/internal/backend"
)

// DefaultCity is appended to every composed address.
const DefaultCity = "Chennai"

// Localities are the service areas a booking may name.
var Localities = []string{
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
	"Tambaram",
	"Chrompet",
}

// Field keys, shared with the HTML form and JSON API.
const (
	FieldServiceID     = "serviceId"
	FieldPatientName   = "patientName"
	FieldPhone         = "phone"
	FieldLocality      = "locality"
	FieldAddress       = "address"
	FieldPreferredDate = "preferredDate"
	FieldPreferredTime = "preferredTime"
	FieldNotes         = "notes"
)

// Form holds the visitor's entered booking details.
type Form struct {
	ServiceID     string `json:"serviceId"`
	PatientName   string `json:"patientName"`
	Phone         string `json:"phone"`
	Locality      string `json:"locality"`
	Address       string `json:"address"`
	PreferredDate string `json:"preferredDate"`
	PreferredTime string `json:"preferredTime"`
	Notes         string `json:"notes"`
}

// FieldErrors maps a field key to its message.
type FieldErrors map[string]string

// Validate checks every field and reports all violations together.
// An empty result means the form may be submitted.
func (f Form) Validate() FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.PatientName) == "" {
		errs[FieldPatientName] = "Patient name is required"
	}

	if strings.TrimSpace(f.Phone) == "" {
		errs[FieldPhone] = "Phone number is required"
	} else if !isTenDigits(stripSpace(f.Phone)) {
		errs[FieldPhone] = "Please enter a valid 10-digit phone number"
	}

	if !IsLocality(f.Locality) {
		errs[FieldLocality] = "Please select a locality"
	}

	if strings.TrimSpace(f.Address) == "" {
		errs[FieldAddress] = "Address is required"
	}
	if f.PreferredDate == "" {
		errs[FieldPreferredDate] = "Preferred date is required"
	}
	if f.PreferredTime == "" {
		errs[FieldPreferredTime] = "Preferred time is required"
	}
	return errs
}

// Payload composes the backend request. The form must already be valid
// and carry a parseable service id.
func (f Form) Payload(city string) (backend.BookingInput, error) {
	if city == "" {
		city = DefaultCity
	}
	id, err := backend.ParseServiceID(f.ServiceID)
	if err != nil {
		return backend.BookingInput{}, err
	}
	return backend.BookingInput{
		ServiceID:     id,
		Address:       strings.Join([]string{f.Address, f.Locality, city}, ", "),
		RequestedDate: f.PreferredDate + " " + f.PreferredTime,
	}, nil
}

// Values flattens the form for saving across a login redirect.
func (f Form) Values() map[string]string {
	return map[string]string{
		FieldServiceID:     f.ServiceID,
		FieldPatientName:   f.PatientName,
		FieldPhone:         f.Phone,
		FieldLocality:      f.Locality,
		FieldAddress:       f.Address,
		FieldPreferredDate: f.PreferredDate,
		FieldPreferredTime: f.PreferredTime,
		FieldNotes:         f.Notes,
	}
}

// FormFromValues rebuilds a form saved with Values.
func FormFromValues(v map[string]string) Form {
	return Form{
		ServiceID:     v[FieldServiceID],
		PatientName:   v[FieldPatientName],
		Phone:         v[FieldPhone],
		Locality:      v[FieldLocality],
		Address:       v[FieldAddress],
		PreferredDate: v[FieldPreferredDate],
		PreferredTime: v[FieldPreferredTime],
		Notes:         v[FieldNotes],
	}
}

// IsLocality reports whether name is one of the bookable localities.
func IsLocality(name string) bool {
	for _, l := range Localities {
		if l == name {
			return true
		}
	}
	return false
}

// isPhoneSpace matches the browser's \s class so a number accepted by the
// booking page is accepted here: U+FEFF counts as space, U+0085 does not.
func isPhoneSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if isPhoneSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isTenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
