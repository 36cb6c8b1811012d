package config

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var mimePrefixRe = regexp.MustCompile(`^[a-z]+/([a-z0-9.+-]+)?$`)

var patternPlaceholderRe = regexp.MustCompile(`\{[a-z]+\}`)

func ValidateAbsPath(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && path.IsAbs(s)
}

// ValidateMimePrefix accepts either a bare type ("image/") or a full type ("video/mp4").
func ValidateMimePrefix(fl validator.FieldLevel) bool {
	return mimePrefixRe.MatchString(strings.ToLower(fl.Field().String()))
}

// ValidatePathPattern requires an object key pattern to carry {slug}, a per-file
// placeholder ({index} or {uuid}) so two files of one batch never share a key, and
// to stay relative to the bucket root once placeholders are filled in.
func ValidatePathPattern(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}

	if !strings.Contains(s, "{slug}") {
		return false
	}
	if !strings.Contains(s, "{index}") && !strings.Contains(s, "{uuid}") {
		return false
	}

	filled := patternPlaceholderRe.ReplaceAllString(s, "x")
	return filepath.IsLocal(filled)
}
