// Package normalize turns raw per-ledger records into the canonical shape the
// resolver compares. Normalize is pure and deterministic; it has no side
// effects and touches no stores.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
	pstrings "unigraph/pkg/platform/strings"
)

var stateAbbrev = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
}

var streetAbbrev = map[string]string{
	"street": "ST", "st": "ST", "str": "ST",
	"avenue": "AVE", "ave": "AVE", "av": "AVE",
	"road": "RD", "rd": "RD",
	"drive": "DR", "dr": "DR",
	"lane": "LN", "ln": "LN",
	"boulevard": "BLVD", "blvd": "BLVD",
	"court": "CT", "ct": "CT",
	"circle": "CIR", "cir": "CIR",
	"place": "PL", "pl": "PL",
	"apartment": "APT", "apt": "APT",
	"suite": "STE", "ste": "STE",
	"unit": "UNIT", "un": "UNIT",
	"floor": "FL", "fl": "FL",
	"building": "BLDG", "bldg": "BLDG",
}

var namePrefixes = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
}

var nameSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
	"esq": true, "phd": true, "md": true,
}

var (
	multiSpace = regexp.MustCompile(`\s+`)
	nonDigit   = regexp.MustCompile(`[^\d]`)
	unitHash   = regexp.MustCompile(`#\s*(\w+)`)
)

var dobLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
	"01/02/06",
}

// Normalize converts a RawRecord into its canonical Record. It fails with
// CodeMalformedRecord when the record lacks a name, or lacks all of tax ID,
// date of birth, and address; the caller decides whether to skip or hold the
// record for manual fix-up.
func Normalize(raw RawRecord) (Record, error) {
	if !raw.Source.IsValid() {
		return Record{}, dErrors.Newf(dErrors.CodeMalformedRecord, "record %s: unknown source system %q", raw.LocalID, raw.Source)
	}
	name := NormalizeName(raw.Name)
	if name.Full == "" {
		return Record{}, dErrors.Newf(dErrors.CodeMalformedRecord, "record %s/%s: name is mandatory", raw.Source, raw.LocalID)
	}

	rec := Record{
		Source:      raw.Source,
		LocalID:     raw.LocalID,
		Kind:        raw.Kind,
		Name:        name,
		TaxIDLast4:  taxIDLast4(raw.TaxID),
		DateOfBirth: NormalizeDate(raw.DateOfBirth),
		Address:     NormalizeAddress(raw.AddressLine1, raw.AddressLine2, raw.City, raw.State, raw.Zip),
		Phone:       NormalizePhone(raw.Phone),
		Email:       NormalizeEmail(raw.Email),
	}
	if rec.Kind == "" {
		rec.Kind = domain.KindPerson
	}

	if rec.TaxIDLast4 == "" && rec.DateOfBirth == "" && rec.Address.IsZero() {
		return Record{}, dErrors.Newf(dErrors.CodeMalformedRecord,
			"record %s/%s: need at least one of tax id, date of birth, or address", raw.Source, raw.LocalID)
	}

	for _, acct := range raw.Accounts {
		rec.Accounts = append(rec.Accounts, Account{
			Type:    strings.ToUpper(strings.TrimSpace(acct.Type)),
			Number:  maskNumber(acct.Number),
			Balance: domain.CentsFromFloat(acct.Balance),
			Source:  raw.Source,
		})
	}
	var related []string
	for _, rel := range raw.RelatedNames {
		if n := NormalizeName(rel); n.Full != "" {
			related = append(related, n.Full)
		}
	}
	rec.RelatedNames = pstrings.DedupeAndTrim(related)
	for _, signer := range raw.Signers {
		n := NormalizeName(signer.Name)
		if n.Full == "" {
			continue
		}
		rec.Signers = append(rec.Signers, Signer{
			Name:         n,
			Title:        strings.TrimSpace(signer.Title),
			OwnershipPct: signer.OwnershipPct,
		})
	}
	return rec, nil
}

// NormalizeName uppercases, collapses whitespace, strips courtesy prefixes,
// and splits a free-form name into first/middle/last with any generational
// suffix extracted.
func NormalizeName(input string) Name {
	s := multiSpace.ReplaceAllString(strings.ToUpper(strings.TrimSpace(input)), " ")
	if s == "" {
		return Name{}
	}

	parts := strings.Fields(s)
	for len(parts) > 0 && namePrefixes[strings.ToLower(strings.TrimRight(parts[0], "."))] {
		parts = parts[1:]
	}

	suffix := ""
	if len(parts) > 0 && nameSuffixes[strings.ToLower(strings.TrimRight(parts[len(parts)-1], "."))] {
		suffix = strings.TrimRight(parts[len(parts)-1], ".")
		parts = parts[:len(parts)-1]
	}

	var first, middle, last string
	switch len(parts) {
	case 0:
	case 1:
		first = parts[0]
	case 2:
		first, last = parts[0], parts[1]
	default:
		first = parts[0]
		last = parts[len(parts)-1]
		middle = strings.Join(parts[1:len(parts)-1], " ")
	}
	first = strings.TrimRight(first, ".")
	middle = strings.TrimRight(middle, ".")

	full := first
	if middle != "" {
		full += " " + middle
	}
	if last != "" {
		full += " " + last
	}

	return Name{Full: full, First: first, Middle: middle, Last: last, Suffix: suffix}
}

// NormalizeAddress parses an address into a comparable structure: uppercased,
// street suffixes abbreviated, "#4B" rewritten to "APT 4B", state reduced to
// its two-letter code, zip split into zip5/zip4.
func NormalizeAddress(line1, line2, city, state, zip string) Address {
	// Some ledgers embed the unit in line1 after a comma.
	if strings.Contains(line1, ",") && line2 == "" {
		if i := strings.Index(line1, ","); i >= 0 {
			line2 = strings.TrimSpace(line1[i+1:])
			line1 = strings.TrimSpace(line1[:i])
		}
	}

	line1 = normalizeStreet(strings.ToUpper(strings.TrimSpace(line1)))
	line2 = normalizeStreet(strings.ToUpper(strings.TrimSpace(line2)))
	line1 = unitHash.ReplaceAllString(line1, "APT $1")
	line2 = unitHash.ReplaceAllString(line2, "APT $1")
	city = strings.ToUpper(strings.TrimSpace(city))

	state = strings.TrimSpace(state)
	if abbr, ok := stateAbbrev[strings.ToLower(state)]; ok {
		state = abbr
	} else {
		state = strings.ToUpper(state)
	}

	zipDigits := nonDigit.ReplaceAllString(zip, "")
	zip5, zip4 := zipDigits, ""
	if len(zipDigits) >= 5 {
		zip5 = zipDigits[:5]
		if len(zipDigits) > 5 {
			zip4 = zipDigits[5:]
			if len(zip4) > 4 {
				zip4 = zip4[:4]
			}
		}
	}

	var full []string
	for _, part := range []string{line1, line2, city, state, zip5} {
		if part != "" {
			full = append(full, part)
		}
	}

	return Address{
		Line1: line1,
		Unit:  line2,
		City:  city,
		State: state,
		Zip5:  zip5,
		Zip4:  zip4,
		Full:  strings.Join(full, " "),
	}
}

func normalizeStreet(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		clean := strings.ToLower(strings.TrimRight(word, ".,"))
		if abbr, ok := streetAbbrev[clean]; ok {
			words[i] = abbr
		} else {
			words[i] = strings.TrimRight(word, ".")
		}
	}
	return strings.Join(words, " ")
}

// NormalizePhone reduces a phone number to ten digits, dropping a leading
// country code. Returns "" for anything that is not a ten-digit number.
func NormalizePhone(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return digits
}

// NormalizeDate parses the date formats the source ledgers use and returns
// ISO YYYY-MM-DD, or "" when unparseable.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// NormalizeEmail lowercases and trims.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// taxIDLast4 extracts the last four digits of any tax-ID-like field.
func taxIDLast4(taxID string) string {
	digits := nonDigit.ReplaceAllString(taxID, "")
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}

// maskNumber keeps only the trailing four characters of an account number.
func maskNumber(number string) string {
	number = strings.TrimSpace(number)
	if len(number) <= 4 {
		return number
	}
	return "****" + number[len(number)-4:]
}
