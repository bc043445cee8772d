package challenge

import "testing"

func TestDetectHTML_KnownMarkers(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			"recaptcha iframe",
			`<html><body><iframe src="https://www.google.com/recaptcha/api2/anchor"></iframe></body></html>`,
			true,
		},
		{
			"generic captcha iframe",
			`<html><body><iframe src="/cdn-cgi/captcha/turnstile"></iframe></body></html>`,
			true,
		},
		{
			"cloudflare challenge form",
			`<html><body><form id="challenge-form" action="/verify"></form></body></html>`,
			true,
		},
		{
			"turnstile response field",
			`<html><body><input name="cf-turnstile-response" type="hidden"></body></html>`,
			true,
		},
		{
			"recaptcha widget div",
			`<html><body><div class="g-recaptcha" data-sitekey="abc"></div></body></html>`,
			true,
		},
		{
			"plain page",
			`<html><head><title>Store</title></head><body><h1>Welcome</h1><p>Catalog</p></body></html>`,
			false,
		},
		{
			"captcha mentioned in text only",
			`<html><body><p>We use a captcha to protect this site.</p></body></html>`,
			false,
		},
		{
			"empty document",
			``,
			false,
		},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DetectHTML(tt.html); got != tt.want {
				t.Errorf("DetectHTML() = %v, want %v", got, tt.want)
			}
		})
	}
}
