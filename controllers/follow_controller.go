package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

const followIndexURL = "/posts/follow/"

// FollowController manages subscriptions between users and the subscription feed.
type FollowController struct {
	content
}

// NewFollowController creates a new FollowController instance.
func NewFollowController(repos *repositories.Repositories, media utils.ImageStorage, render utils.Renderer) *FollowController {
	return &FollowController{content{repos: repos, media: media, render: render, perPage: config.Get().PostsPerPage}}
}

// FollowIndex lists posts of the authors the viewer follows.
func (f *FollowController) FollowIndex(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, posts, err := f.feed(ctx, repositories.PostFilter{FollowerID: userID})
	if err != nil {
		serverError(ctx, 50020, "failed to list posts", err)
		return
	}
	f.render.Render(ctx, http.StatusOK, viewFollow, gin.H{"page_obj": page, "posts": posts})
}

// ProfileFollow subscribes the viewer to an author. Repeats and self-follows change nothing.
func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	userID, authorID, ok := f.resolve(ctx)
	if !ok {
		return
	}
	if authorID != userID {
		if _, err := f.repos.Follows.Follow(ctx.Request.Context(), userID, authorID); err != nil {
			serverError(ctx, 50040, "failed to follow author", err)
			return
		}
	}
	ctx.Redirect(http.StatusFound, followIndexURL)
}

// ProfileUnfollow removes the subscription if there is one.
func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	userID, authorID, ok := f.resolve(ctx)
	if !ok {
		return
	}
	if _, err := f.repos.Follows.Unfollow(ctx.Request.Context(), userID, authorID); err != nil {
		serverError(ctx, 50041, "failed to unfollow author", err)
		return
	}
	ctx.Redirect(http.StatusFound, followIndexURL)
}

func (f *FollowController) resolve(ctx *gin.Context) (uint, uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return 0, 0, false
	}
	author, err := f.repos.Users.GetByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(ctx, 40403, "user not found")
			return 0, 0, false
		}
		serverError(ctx, 50022, "failed to load user", err)
		return 0, 0, false
	}
	return userID, author.ID, true
}
