package services

import (
	"errors"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func normalizeColor(color, fallback string) (string, bool) {
	color = strings.TrimSpace(color)
	if color == "" {
		return fallback, true
	}
	return strings.ToLower(color), hexColorPattern.MatchString(color)
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
