package templates

import "strings"

// Substitution keys recognized inside template bodies, written as {키}.
// Unknown placeholders are left as-is; missing context values substitute to
// the empty string.
const (
	KeyStoreName    = "매장명"
	KeyPlatform     = "플랫폼"
	KeyCustomerName = "고객명"
	KeyMenuName     = "메뉴"
)

var substitutionKeys = []string{KeyStoreName, KeyPlatform, KeyCustomerName, KeyMenuName}

func Render(body string, context map[string]string) string {
	rendered := body
	for _, key := range substitutionKeys {
		rendered = strings.ReplaceAll(rendered, "{"+key+"}", context[key])
	}
	return rendered
}
