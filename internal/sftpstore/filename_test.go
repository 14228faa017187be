package sftpstore

import "testing"

func TestCleanFilename(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"plain latin", "product.jpg", "product.jpg"},
		{"cyrillic transliterated", "Отвёртка.jpg", "Otvertka.jpg"},
		{"spaces to underscores", "my product photo.png", "my_product_photo.png"},
		{"commas to underscores", "a,b.jpg", "a_b.jpg"},
		{"unsafe chars removed", "it's (new)!.jpg", "its_new.jpg"},
		{"repeated underscores collapsed", "a   b.jpg", "a_b.jpg"},
		{"leading trailing underscores trimmed", " фото .jpg", "foto_.jpg"},
		{"sch cluster", "щётка.png", "schetka.png"},
		{"everything stripped falls back", "???", "image"},
		{"empty stays empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanFilename(tc.in); got != tc.want {
				t.Errorf("CleanFilename(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestJoinRemote(t *testing.T) {
	testCases := []struct {
		name  string
		parts []string
		want  string
	}{
		{"simple join", []string{"/var/www", "images", "a.jpg"}, "/var/www/images/a.jpg"},
		{"redundant slashes", []string{"/var/www/", "/images/"}, "/var/www/images"},
		{"empty parts dropped", []string{"", "images", ""}, "/images"},
		{"all empty", []string{"", ""}, "/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := joinRemote(tc.parts...); got != tc.want {
				t.Errorf("joinRemote(%v) = %q, want %q", tc.parts, got, tc.want)
			}
		})
	}
}

func TestDomainFromBasePath(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"document root layout", "/var/www/shop.example.com/images", "shop.example.com"},
		{"domain only", "/var/www/example.com", "example.com"},
		{"no match", "/srv/uploads", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domainFromBasePath(tc.in); got != tc.want {
				t.Errorf("domainFromBasePath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWebPath(t *testing.T) {
	testCases := []struct {
		name      string
		basePath  string
		domain    string
		remoteDir string
		filename  string
		want      string
	}{
		{
			name:      "under document root",
			basePath:  "/var/www/shop.example.com/itexport/images",
			domain:    "shop.example.com",
			remoteDir: "products",
			filename:  "a.jpg",
			want:      "/itexport/images/products/a.jpg",
		},
		{
			name:      "base path is the document root",
			basePath:  "/var/www/shop.example.com",
			domain:    "shop.example.com",
			remoteDir: "products",
			filename:  "a.jpg",
			want:      "/products/a.jpg",
		},
		{
			name:      "outside document root uses images prefix",
			basePath:  "/srv/uploads",
			domain:    "",
			remoteDir: "products",
			filename:  "a.jpg",
			want:      "/images/products/a.jpg",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := webPath(tc.basePath, tc.domain, tc.remoteDir, tc.filename)
			if got != tc.want {
				t.Errorf("webPath() = %q, want %q", got, tc.want)
			}
		})
	}
}
