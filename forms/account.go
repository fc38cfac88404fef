package forms

import (
	"net/url"
	"strings"
)

// SignupForm creates a local account.
type SignupForm struct {
	Username string `form:"username" json:"username" validate:"required,max=150,username"`
	Email    string `form:"email" json:"email" validate:"omitempty,email,max=255"`
	Password string `form:"password" json:"-" validate:"required,min=8,max=128"`
	Confirm  string `form:"confirm" json:"-" validate:"required,eqfield=Password"`
}

// Validate trims identity fields and checks the password rules.
func (f *SignupForm) Validate() FieldErrors {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)
	return Validate(f)
}

// LoginForm authenticates a local account.
type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"-" validate:"required"`
	Next     string `form:"next" json:"next"`
}

func (f *LoginForm) Validate() FieldErrors {
	f.Username = strings.TrimSpace(f.Username)
	return Validate(f)
}

// SafeNext returns Next when it is a local path, otherwise fallback.
// Browsers read a backslash as a slash, so a path like /\host names another host.
func (f *LoginForm) SafeNext(fallback string) string {
	next := f.Next
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n\t") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

// GroupForm creates a group.
type GroupForm struct {
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Slug        string `form:"slug" json:"slug" validate:"required,max=255,slug"`
	Description string `form:"description" json:"description"`
}

func (f *GroupForm) Validate() FieldErrors {
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = strings.ToLower(strings.TrimSpace(f.Slug))
	f.Description = strings.TrimSpace(f.Description)
	return Validate(f)
}
