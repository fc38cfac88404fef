package forms

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/repositories"
)

// PostForm is submitted when creating or editing a post.
type PostForm struct {
	Text  string                `form:"text" json:"text" validate:"required"`
	Group string                `form:"group" json:"group" validate:"omitempty,numeric"`
	Image *multipart.FileHeader `form:"-" json:"-" validate:"-"`

	groupID *uint
}

// PostFormFrom prefills a form with the values of an existing post.
func PostFormFrom(post *models.Post) PostForm {
	f := PostForm{Text: post.Text, groupID: post.GroupID}
	if post.GroupID != nil {
		f.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return f
}

// Validate cleans the form. The group, when given, must reference an existing group.
func (f *PostForm) Validate(ctx context.Context, groups repositories.GroupRepository) (FieldErrors, error) {
	f.Text = strings.TrimSpace(f.Text)
	f.Group = strings.TrimSpace(f.Group)

	errs := Validate(f)
	if !errs.Any() && f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		if err != nil {
			errs.Add("group", "Select a valid choice.")
		} else if _, err := groups.GetByID(ctx, uint(id)); err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				return nil, err
			}
			errs.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		} else {
			gid := uint(id)
			f.groupID = &gid
		}
	}
	if f.Group == "" {
		f.groupID = nil
	}
	if f.Image != nil {
		if err := ValidateImage(f.Image); err != nil {
			errs.Add("image", err.Error())
		}
	}
	return errs, nil
}

// GroupID returns the cleaned group reference, nil for no group.
func (f *PostForm) GroupID() *uint {
	return f.groupID
}

// CommentForm is submitted when commenting on a post.
type CommentForm struct {
	Text string `form:"text" json:"text" validate:"required"`
}

// Validate cleans the comment text.
func (f *CommentForm) Validate() FieldErrors {
	f.Text = strings.TrimSpace(f.Text)
	return Validate(f)
}
