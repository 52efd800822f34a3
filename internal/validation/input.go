// Package validation holds input validation rules shared by the API handlers.
package validation

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the basic shape of an email address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > 254 {
		return errors.New("email is too long")
	}
	if !emailRe.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// allowedUploadExtensions are the artifact types students may submit.
var allowedUploadExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ValidateUploadFileName checks the name of a submitted artifact.
func ValidateUploadFileName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("file name is required")
	}
	if len(name) > 255 {
		return errors.New("file name is too long")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New("file name must not contain path separators")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedUploadExtensions[ext] {
		return errors.New("unsupported file type, expected pdf, doc, docx, png or jpg")
	}
	return nil
}
