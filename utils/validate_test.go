package utils

import (
	"strings"
	"testing"
)

func TestValidEntityID(t *testing.T) {
	valid := []string{"a1", "clx9q2k3p0000abcd", "b_1-2", strings.Repeat("x", 64)}
	for _, id := range valid {
		if !ValidEntityID(id) {
			t.Errorf("ValidEntityID(%q) = false, want true", id)
		}
	}
	invalid := []string{"", "../etc", "a b", "a1?x=1", strings.Repeat("x", 65), "ñ"}
	for _, id := range invalid {
		if ValidEntityID(id) {
			t.Errorf("ValidEntityID(%q) = true, want false", id)
		}
	}
}

func TestValidAbsoluteURL(t *testing.T) {
	cases := map[string]bool{
		"https://app.test/cb":      true,
		"http://localhost:3000/cb": true,
		"/relative/path":           false,
		"ftp://host/file":          false,
		"https://":                 false,
		"::not a url":              false,
	}
	for raw, want := range cases {
		if got := ValidAbsoluteURL(raw); got != want {
			t.Errorf("ValidAbsoluteURL(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestStruct(t *testing.T) {
	type input struct {
		ID  string `validate:"required,entityid"`
		URL string `validate:"required,absurl"`
	}
	if err := Struct(input{ID: "a1", URL: "https://app.test/cb"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Struct(input{ID: "bad id", URL: "nope"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "ID") || !strings.Contains(err.Error(), "URL") {
		t.Errorf("error should name both fields, got %q", err)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("EAAGm0PX4ZCpsBAKZA"); got != "EAAG...AKZA" {
		t.Errorf("MaskSecret long = %q", got)
	}
	for _, short := range []string{"short", "123456789", "0123456789abcdef"} {
		if got := MaskSecret(short); got != "****" {
			t.Errorf("MaskSecret(%q) = %q, want fully masked", short, got)
		}
	}
	if got := MaskSecret(""); got != "" {
		t.Errorf("MaskSecret empty = %q", got)
	}
}
