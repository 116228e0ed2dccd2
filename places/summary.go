package places

import "strings"

// SummaryFromComponents 는 주소 구성 요소로 "국가 광역 도시" 요약을 만든다.
// 국가는 shortText 가 defaultCountry 와 같으면 생략한다.
func SummaryFromComponents(components []AddressComponent, defaultCountry, sep string) string {
	var country, admin, locality, postalTown, admin2 string
	for _, c := range components {
		switch {
		case c.HasType("country"):
			if !strings.EqualFold(c.ShortText, defaultCountry) {
				country = c.LongText
			}
		case c.HasType("administrative_area_level_1"):
			admin = c.LongText
		case c.HasType("locality"):
			locality = c.LongText
		case c.HasType("postal_town"):
			postalTown = c.LongText
		case c.HasType("administrative_area_level_2"):
			admin2 = c.LongText
		}
	}
	return joinParts(sep, country, admin, firstNonEmpty(locality, postalTown, admin2))
}

// SummaryFromReverse 는 역지오코딩 제공자 필드만으로 요약을 만든다.
func SummaryFromReverse(r *ReverseResult, defaultCountry, sep string) string {
	if r == nil {
		return ""
	}
	country := r.Country
	if strings.EqualFold(r.CountryCode, defaultCountry) {
		country = ""
	}
	return joinParts(sep, country, r.State, firstNonEmpty(r.City, r.Town, r.Village))
}

func joinParts(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
