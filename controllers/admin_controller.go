package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yatube/yatube/forms"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

// AdminController exposes moderation actions to configured administrators.
type AdminController struct {
	repos       *repositories.Repositories
	media       utils.ImageStorage
	cache       utils.CacheStore
	indexPrefix string
}

func NewAdminController(repos *repositories.Repositories, media utils.ImageStorage, cache utils.CacheStore, indexPrefix string) *AdminController {
	return &AdminController{repos: repos, media: media, cache: cache, indexPrefix: indexPrefix}
}

// CreateGroup adds a group with a unique slug.
func (a *AdminController) CreateGroup(ctx *gin.Context) {
	var form forms.GroupForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Sugar.Debugf("group bind failed: %v", err)
	}
	errs := form.Validate()
	if !errs.Any() {
		_, err := a.repos.Groups.GetBySlug(ctx.Request.Context(), form.Slug)
		switch {
		case err == nil:
			errs.Add("slug", "Group with this Slug already exists.")
		case !errors.Is(err, repositories.ErrNotFound):
			serverError(ctx, 50021, "failed to load group", err)
			return
		}
	}
	if errs.Any() {
		utils.Respond(ctx, http.StatusBadRequest, 40010, "invalid form", gin.H{"form": form, "errors": errs})
		return
	}

	group := models.Group{Title: form.Title, Slug: form.Slug, Description: form.Description}
	if err := a.repos.Groups.Create(ctx.Request.Context(), &group); err != nil {
		serverError(ctx, 50050, "failed to create group", err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"group": group})
}

// DeletePost removes a post, its comments and its stored image. Moderated posts leave
// the cached index at once instead of waiting for the entry to expire.
func (a *AdminController) DeletePost(ctx *gin.Context) {
	id, ok := parsePostID(ctx)
	if !ok {
		notFound(ctx, 40401, "post not found")
		return
	}
	post, err := a.repos.Posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(ctx, 40401, "post not found")
			return
		}
		serverError(ctx, 50028, "failed to load post", err)
		return
	}

	if err := a.repos.Posts.Delete(ctx.Request.Context(), post.ID); err != nil {
		serverError(ctx, 50029, "failed to delete post", err)
		return
	}
	if err := a.media.Delete(ctx.Request.Context(), post.Image); err != nil {
		utils.Sugar.Warnf("failed to remove image of deleted post %d: %v", post.ID, err)
	}
	if err := middleware.InvalidatePages(ctx.Request.Context(), a.cache, a.indexPrefix); err != nil {
		utils.Sugar.Warnf("failed to invalidate index cache: %v", err)
	}
	utils.Logger.Info("post deleted", zap.Uint("post_id", post.ID), zap.String("by", getUsername(ctx)))
	utils.Success(ctx, gin.H{"deleted": post.ID})
}
