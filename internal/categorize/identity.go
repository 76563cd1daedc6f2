package categorize

import (
	"regexp"
	"strings"
)

var sinpePhoneRe = regexp.MustCompile(`^\d{4}-?\d{4}$`)

// SINPEIdentity derives the Input.PhoneNumber/NamePrefix pair the cascade's
// SINPE-contact layer (step 2) and internal/learning's contact upsert both
// need, from the fields an Email Parser actually fills: MerchantRaw (which
// carries "SINPE <phone>" when no name was extracted, per
// internal/emailparser's BAC/Popular parsers) and the optional Beneficiary
// name. Neither domain.ParsedTransaction nor domain.Transaction carries a
// dedicated phone field, so this is computed at the two call sites that
// need it instead of stored.
func SINPEIdentity(merchantRaw string, beneficiary *string) (phoneNumber *string, namePrefix string) {
	if beneficiary != nil && strings.TrimSpace(*beneficiary) != "" {
		return nil, namePrefixFrom(*beneficiary)
	}

	rest := strings.TrimSpace(strings.TrimPrefix(merchantRaw, "SINPE"))
	if sinpePhoneRe.MatchString(rest) {
		phone := strings.ReplaceAll(rest, "-", "")
		return &phone, ""
	}

	return nil, ""
}

// namePrefixFrom takes the first significant word of a beneficiary name as
// the prefix FindByPhoneOrPrefix matches on (spec.md §4.6 step 2).
func namePrefixFrom(beneficiary string) string {
	fields := strings.Fields(beneficiary)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
