package country

import (
	"strings"

	"resume-tailor/internal/apperr"
)

// Country 国家参照数据。
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// 内置 ISO 3166-1 alpha-2 子集，段落校验只需存在性判断。
var byCode = map[string]Country{
	"AR": {Code: "AR", Name: "Argentina"},
	"AU": {Code: "AU", Name: "Australia"},
	"BR": {Code: "BR", Name: "Brazil"},
	"CA": {Code: "CA", Name: "Canada"},
	"CH": {Code: "CH", Name: "Switzerland"},
	"CN": {Code: "CN", Name: "China"},
	"DE": {Code: "DE", Name: "Germany"},
	"ES": {Code: "ES", Name: "Spain"},
	"FR": {Code: "FR", Name: "France"},
	"GB": {Code: "GB", Name: "United Kingdom"},
	"IE": {Code: "IE", Name: "Ireland"},
	"IN": {Code: "IN", Name: "India"},
	"IT": {Code: "IT", Name: "Italy"},
	"JP": {Code: "JP", Name: "Japan"},
	"KR": {Code: "KR", Name: "South Korea"},
	"MX": {Code: "MX", Name: "Mexico"},
	"NL": {Code: "NL", Name: "Netherlands"},
	"NO": {Code: "NO", Name: "Norway"},
	"NZ": {Code: "NZ", Name: "New Zealand"},
	"PL": {Code: "PL", Name: "Poland"},
	"PT": {Code: "PT", Name: "Portugal"},
	"SE": {Code: "SE", Name: "Sweden"},
	"SG": {Code: "SG", Name: "Singapore"},
	"US": {Code: "US", Name: "United States"},
	"VN": {Code: "VN", Name: "Vietnam"},
}

// Lookup 按 alpha-2 代码查找国家，大小写不敏感。
func Lookup(code string) (Country, error) {
	c, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Country{}, apperr.New(apperr.NotFound, "unknown country code %q", code)
	}
	return c, nil
}
