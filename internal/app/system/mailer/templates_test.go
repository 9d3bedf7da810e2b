// internal/app/system/mailer/templates_test.go
package mailer

import (
	"strings"
	"testing"
)

func TestVerificationEmail(t *testing.T) {
	text, html := VerificationEmail(VerificationEmailData{
		AppName:   "UniHub",
		UserName:  "Olena",
		VerifyURL: "https://unihub.example/verify?token=abc",
		ExpiryHrs: 24,
	})

	for _, want := range []string{"Olena", "https://unihub.example/verify?token=abc", "24 hours"} {
		if !strings.Contains(text, want) {
			t.Errorf("text body missing %q", want)
		}
	}
	if !strings.Contains(html, "https://unihub.example/verify?token=abc") {
		t.Error("html body missing verify URL")
	}
	if !strings.Contains(html, "UniHub") {
		t.Error("html body missing app name")
	}
}

func TestAccountDisabledEmail_OptionalReason(t *testing.T) {
	text, _ := AccountDisabledEmail(AccountDisabledEmailData{
		AppName:  "UniHub",
		UserName: "Taras",
	})
	if strings.Contains(text, "Reason:") {
		t.Error("empty reason should be omitted")
	}

	text, html := AccountDisabledEmail(AccountDisabledEmailData{
		AppName:      "UniHub",
		UserName:     "Taras",
		Reason:       "repeated spam",
		ContactEmail: "mods@lnu.edu.ua",
	})
	if !strings.Contains(text, "Reason: repeated spam") {
		t.Error("text body missing reason")
	}
	if !strings.Contains(html, "mods@lnu.edu.ua") {
		t.Error("html body missing contact email")
	}
}
