package admission

import (
	"testing"

	errs "github.com/websweep/websweep/internal/errors"
)

func TestNewPatternPolicy_EmptyAllowList(t *testing.T) {
	_, err := NewPatternPolicy(nil, nil)
	if err == nil {
		t.Fatal("NewPatternPolicy(nil, nil) error = nil, want config error")
	}
	if errs.GetErrorType(err) != errs.Config {
		t.Errorf("error type = %v, want Config", errs.GetErrorType(err))
	}
}

func TestNewPatternPolicy_InvalidPattern(t *testing.T) {
	tests := []struct {
		name     string
		allow    []string
		disallow []string
	}{
		{"bad allow", []string{"[invalid"}, nil},
		{"bad disallow", []string{".*"}, []string{"(unclosed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPatternPolicy(tt.allow, tt.disallow); err == nil {
				t.Error("NewPatternPolicy() error = nil, want config error")
			}
		})
	}
}

func TestPatternPolicy_Admit(t *testing.T) {
	policy, err := NewPatternPolicy(
		[]string{`^https://example\.com/`, `^https://docs\.example\.com/`},
		[]string{`/private/`, `\.php$`},
	)
	if err != nil {
		t.Fatalf("NewPatternPolicy() error = %v", err)
	}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"allowed root", "https://example.com/page", true},
		{"allowed subdomain", "https://docs.example.com/guide", true},
		{"not in allow list", "https://other.test/page", false},
		{"disallow wins over allow", "https://example.com/private/keys", false},
		{"disallow suffix", "https://example.com/index.php", false},
		{"empty url", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Admit(tt.url); got != tt.want {
				t.Errorf("Admit(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestFunc_Admit(t *testing.T) {
	admitAll := Func(func(string) bool { return true })
	if !admitAll.Admit("anything") {
		t.Error("Func policy did not delegate")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase host", "https://EXAMPLE.com/Page", "https://example.com/Page"},
		{"strip default https port", "https://example.com:443/a", "https://example.com/a"},
		{"strip default http port", "http://example.com:80/a", "http://example.com/a"},
		{"keep custom port", "https://example.com:8443/a", "https://example.com:8443/a"},
		{"strip fragment", "https://example.com/a#section", "https://example.com/a"},
		{"trim trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"root path untouched", "https://example.com/", "https://example.com/"},
		{"empty path becomes root", "https://example.com", "https://example.com/"},
		{"sort query params", "https://example.com/a?z=1&a=2", "https://example.com/a?a=2&z=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"relative path", "https://example.com/dir/page", "other", "https://example.com/dir/other"},
		{"absolute path", "https://example.com/dir/page", "/top", "https://example.com/top"},
		{"absolute url", "https://example.com/", "https://other.test/x", "https://other.test/x"},
		{"parent traversal", "https://example.com/a/b/c", "../d", "https://example.com/a/d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.ref)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestIsCrawlable(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/page", true},
		{"http://example.com/", true},
		{"ftp://example.com/file", false},
		{"mailto:someone@example.com", false},
		{"/relative/only", false},
		{"https://example.com/logo.png", false},
		{"https://example.com/styles.css", false},
		{"https://example.com/archive.tar.gz", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsCrawlable(tt.url); got != tt.want {
				t.Errorf("IsCrawlable(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://docs.example.com/page", "example.com"},
		{"https://example.co.uk/page", "example.co.uk"},
		{"http://localhost:8080/", "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := RegistrableDomain(tt.url)
			if err != nil {
				t.Fatalf("RegistrableDomain(%q) error = %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("RegistrableDomain(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
