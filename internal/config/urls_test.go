package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURLs(t *testing.T) {
	tests := []struct {
		name                      string
		account, posID, mode, tok string
		want                      URLs
	}{
		{
			name:    "pos mode",
			account: "acme", posID: "42", mode: "pos",
			want: URLs{
				Screen1: "https://acme.flickpay.co.uk/pos/ui/42",
				Screen2: "https://acme.flickpay.co.uk/pos_customer_display/42/customer-display",
			},
		},
		{
			name:    "pos mode ignores token",
			account: "acme", posID: "42", mode: "pos", tok: "secret",
			want: URLs{
				Screen1: "https://acme.flickpay.co.uk/pos/ui/42",
				Screen2: "https://acme.flickpay.co.uk/pos_customer_display/42/customer-display",
			},
		},
		{
			name:    "self mode with token",
			account: "acme", posID: "42", mode: "self", tok: "a b&c",
			want: URLs{
				Screen1: "https://acme.flickpay.co.uk/pos-self/42/products?access_token=a+b%26c",
				Screen2: "https://acme.flickpay.co.uk/pos_customer_display/42/customer-display",
			},
		},
		{
			name:    "self mode without token",
			account: "acme", posID: "42", mode: " self ",
			want: URLs{
				Screen1: "https://acme.flickpay.co.uk/pos-self/42/products",
				Screen2: "https://acme.flickpay.co.uk/pos_customer_display/42/customer-display",
			},
		},
		{
			name:    "trims and encodes pos id",
			account: "  acme ", posID: " till/1 ", mode: "",
			want: URLs{
				Screen1: "https://acme.flickpay.co.uk/pos/ui/till%2F1",
				Screen2: "https://acme.flickpay.co.uk/pos_customer_display/till%2F1/customer-display",
			},
		},
		{name: "empty account", account: "", posID: "42", mode: "pos"},
		{name: "blank pos id", account: "acme", posID: "   ", mode: "self", tok: "t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildURLs(tt.account, tt.posID, tt.mode, tt.tok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, BuildURLs(tt.account, tt.posID, tt.mode, tt.tok), "deterministic")
		})
	}
}

func TestNormalizeMode(t *testing.T) {
	assert.Equal(t, ModeSelf, NormalizeMode(" self"))
	assert.Equal(t, ModePOS, NormalizeMode("SELF"))
	assert.Equal(t, ModePOS, NormalizeMode(""))
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "file:///opt/flickpos/assets/default.html", FileURL("/opt/flickpos/assets/default.html"))
}
