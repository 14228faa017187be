package sftpstore

import (
	"path"
	"regexp"
	"strings"
)

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "E",
	'Ж': "ZH", 'З': "Z", 'И': "I", 'Й': "Y", 'К': "K", 'Л': "L", 'М': "M",
	'Н': "N", 'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U",
	'Ф': "F", 'Х': "H", 'Ц': "TS", 'Ч': "CH", 'Ш': "SH", 'Щ': "SCH",
	'Ъ': "", 'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "YU", 'Я': "YA",
}

var (
	unsafeChars     = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)
	repeatedUnders  = regexp.MustCompile(`_+`)
	repeatedSlashes = regexp.MustCompile(`/+`)
	varWWWDomain    = regexp.MustCompile(`/var/www/([^/]+)`)
)

// CleanFilename sanitizes a filename for the remote web server:
// cyrillic is transliterated, spaces and commas become underscores, and
// anything outside [a-zA-Z0-9-_.] is removed.
func CleanFilename(name string) string {
	if name == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}

	cleaned := b.String()
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	cleaned = strings.ReplaceAll(cleaned, ",", "_")
	cleaned = unsafeChars.ReplaceAllString(cleaned, "")
	cleaned = repeatedUnders.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "_")

	if cleaned == "" {
		return "image"
	}
	return cleaned
}

// joinRemote builds an absolute remote path with forward slashes
// regardless of the local OS.
func joinRemote(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "/"
	}
	return repeatedSlashes.ReplaceAllString("/"+strings.Join(kept, "/"), "/")
}

// domainFromBasePath extracts the web domain from a document-root style
// base path like /var/www/example.com/images. Returns "" when the path
// does not follow that layout.
func domainFromBasePath(basePath string) string {
	m := varWWWDomain.FindStringSubmatch(basePath)
	if m == nil {
		return ""
	}
	return m[1]
}

// webPath maps a remote file location to its path under the web root.
// /var/www/example.com/itexport/images + products/a.jpg becomes
// /itexport/images/products/a.jpg; without a matching document root the
// conventional /images prefix is used.
func webPath(basePath, domain, remoteDir, filename string) string {
	prefix := "/var/www/" + domain
	if domain != "" && strings.HasPrefix(basePath, prefix) {
		rest := strings.Trim(strings.TrimPrefix(basePath, prefix), "/")
		return joinRemote(rest, remoteDir, filename)
	}
	return joinRemote("images", remoteDir, filename)
}

// splitExt separates a filename into stem and extension.
func splitExt(name string) (stem, ext string) {
	ext = path.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}
