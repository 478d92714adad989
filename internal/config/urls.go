package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Screen 1 modes.
const (
	ModePOS  = "pos"
	ModeSelf = "self"
)

// Domain is the web application's root domain. Every derived URL lives on a
// per-account subdomain of it.
const Domain = "flickpay.co.uk"

// URLs are the derived targets for the two top-level surfaces.
type URLs struct {
	Screen1 string `json:"screen1Url"`
	Screen2 string `json:"screen2Url"`
}

// NormalizeMode maps anything other than "self" to "pos".
func NormalizeMode(mode string) string {
	if strings.TrimSpace(mode) == ModeSelf {
		return ModeSelf
	}
	return ModePOS
}

// BuildURLs derives the operator and customer URLs. Both account and posID
// are required; when either is empty after trimming both URLs are empty.
// The token only applies to self-service mode.
func BuildURLs(account, posID, mode, token string) URLs {
	account = strings.TrimSpace(account)
	posID = strings.TrimSpace(posID)
	mode = strings.TrimSpace(mode)
	token = strings.TrimSpace(token)

	if account == "" || posID == "" {
		return URLs{}
	}

	base := fmt.Sprintf("https://%s.%s", account, Domain)
	pos := url.PathEscape(posID)

	screen1 := fmt.Sprintf("%s/pos/ui/%s", base, pos)
	if mode == ModeSelf {
		screen1 = fmt.Sprintf("%s/pos-self/%s/products", base, pos)
		if token != "" {
			screen1 += "?access_token=" + url.QueryEscape(token)
		}
	}

	return URLs{
		Screen1: screen1,
		Screen2: fmt.Sprintf("%s/pos_customer_display/%s/customer-display", base, pos),
	}
}

// FileURL converts an absolute filesystem path to a file:// URL.
func FileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}
