package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// 小文字化し、英数字以外は "-" にまとめる
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "product"
	}
	return s
}

type slugChecker interface {
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
}

// 重複したら -2, -3 ... を付ける
func uniqueSlug(ctx context.Context, repo slugChecker, name string, excludeID int64) (string, error) {
	base := Slugify(name)
	slug := base
	for i := 2; i < 1000; i++ {
		exists, err := repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("slug %q: too many duplicates", base)
}
