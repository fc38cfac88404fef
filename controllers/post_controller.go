package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/forms"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

// PostController serves the feeds, post detail and the post/comment mutations.
type PostController struct {
	content
}

// NewPostController creates a new PostController instance.
func NewPostController(repos *repositories.Repositories, media utils.ImageStorage, render utils.Renderer) *PostController {
	return &PostController{content{repos: repos, media: media, render: render, perPage: config.Get().PostsPerPage}}
}

// Index lists every post, newest first.
func (p *PostController) Index(ctx *gin.Context) {
	page, posts, err := p.feed(ctx, repositories.PostFilter{})
	if err != nil {
		serverError(ctx, 50020, "failed to list posts", err)
		return
	}
	p.render.Render(ctx, http.StatusOK, viewIndex, gin.H{"page_obj": page, "posts": posts})
}

// GroupPosts lists the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, err := p.repos.Groups.GetBySlug(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(ctx, 40402, "group not found")
			return
		}
		serverError(ctx, 50021, "failed to load group", err)
		return
	}

	page, posts, err := p.feed(ctx, repositories.PostFilter{GroupID: group.ID})
	if err != nil {
		serverError(ctx, 50020, "failed to list posts", err)
		return
	}
	p.render.Render(ctx, http.StatusOK, viewGroupList, gin.H{"group": group, "page_obj": page, "posts": posts})
}

// Profile lists the posts of one author and whether the viewer follows them.
func (p *PostController) Profile(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	author, err := p.repos.Users.GetByUsername(reqCtx, ctx.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(ctx, 40403, "user not found")
			return
		}
		serverError(ctx, 50022, "failed to load user", err)
		return
	}

	page, posts, err := p.feed(ctx, repositories.PostFilter{AuthorID: author.ID})
	if err != nil {
		serverError(ctx, 50020, "failed to list posts", err)
		return
	}

	following := false
	if viewerID, ok := getUserID(ctx); ok {
		following, err = p.repos.Follows.IsFollowing(reqCtx, viewerID, author.ID)
		if err != nil {
			serverError(ctx, 50023, "failed to load follow state", err)
			return
		}
	}

	p.render.Render(ctx, http.StatusOK, viewProfile, gin.H{
		"author":       presentUser(author),
		"page_obj":     page,
		"posts":        posts,
		"posts_number": page.Total,
		"following":    following,
	})
}

// PostDetail shows one post with its comments and an empty comment form.
func (p *PostController) PostDetail(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()

	postsNumber, err := p.repos.Posts.Count(reqCtx, repositories.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		serverError(ctx, 50020, "failed to count posts", err)
		return
	}
	comments, err := p.repos.Comments.ListByPost(reqCtx, post.ID)
	if err != nil {
		serverError(ctx, 50024, "failed to load comments", err)
		return
	}

	p.render.Render(ctx, http.StatusOK, viewPostDetail, gin.H{
		"post":         p.presentPost(post),
		"posts_number": postsNumber,
		"comments":     presentComments(comments),
		"form":         forms.CommentForm{},
	})
}

// PostCreateForm shows an empty post form.
func (p *PostController) PostCreateForm(ctx *gin.Context) {
	p.renderPostForm(ctx, http.StatusOK, forms.PostForm{}, forms.FieldErrors{}, nil)
}

// PostCreate validates the submitted form and stores a post authored by the viewer.
func (p *PostController) PostCreate(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	form, errs, ok := p.bindPostForm(ctx)
	if !ok {
		return
	}
	if errs.Any() {
		p.renderPostForm(ctx, http.StatusBadRequest, form, errs, nil)
		return
	}

	post := models.Post{Text: form.Text, AuthorID: userID, GroupID: form.GroupID()}
	if form.Image != nil {
		name, err := p.media.Save(ctx.Request.Context(), form.Image)
		if err != nil {
			serverError(ctx, 50030, "failed to store image", err)
			return
		}
		post.Image = name
	}

	if err := p.repos.Posts.Create(ctx.Request.Context(), &post); err != nil {
		_ = p.media.Delete(ctx.Request.Context(), post.Image)
		serverError(ctx, 50025, "failed to create post", err)
		return
	}
	utils.Logger.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", userID))
	ctx.Redirect(http.StatusFound, profileURL(getUsername(ctx)))
}

// PostEditForm shows the form prefilled with the post.
func (p *PostController) PostEditForm(ctx *gin.Context) {
	post, ok := p.loadEditablePost(ctx)
	if !ok {
		return
	}
	p.renderPostForm(ctx, http.StatusOK, forms.PostFormFrom(post), forms.FieldErrors{}, post)
}

// PostEdit updates text, group and optionally the image of a post in place.
func (p *PostController) PostEdit(ctx *gin.Context) {
	post, ok := p.loadEditablePost(ctx)
	if !ok {
		return
	}

	form, errs, ok := p.bindPostForm(ctx)
	if !ok {
		return
	}
	if errs.Any() {
		p.renderPostForm(ctx, http.StatusBadRequest, form, errs, post)
		return
	}

	oldImage := post.Image
	post.Text = form.Text
	post.GroupID = form.GroupID()
	if form.Image != nil {
		name, err := p.media.Save(ctx.Request.Context(), form.Image)
		if err != nil {
			serverError(ctx, 50030, "failed to store image", err)
			return
		}
		post.Image = name
	}

	if err := p.repos.Posts.Update(ctx.Request.Context(), post); err != nil {
		serverError(ctx, 50026, "failed to update post", err)
		return
	}
	if post.Image != oldImage {
		if err := p.media.Delete(ctx.Request.Context(), oldImage); err != nil {
			utils.Sugar.Warnf("failed to remove replaced image %s: %v", oldImage, err)
		}
	}
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

// AddComment stores a comment by the viewer. Invalid comments are dropped and the viewer is sent back to the post.
func (p *PostController) AddComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}

	var form forms.CommentForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Sugar.Debugf("comment bind failed: %v", err)
	}
	if errs := form.Validate(); errs.Any() {
		utils.Logger.Info("comment rejected", zap.Uint("post_id", post.ID), zap.Any("errors", errs))
		ctx.Redirect(http.StatusFound, postURL(post.ID))
		return
	}

	comment := models.Comment{PostID: post.ID, AuthorID: userID, Text: form.Text}
	if err := p.repos.Comments.Create(ctx.Request.Context(), &comment); err != nil {
		serverError(ctx, 50027, "failed to create comment", err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

func (p *PostController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id, ok := parsePostID(ctx)
	if !ok {
		notFound(ctx, 40401, "post not found")
		return nil, false
	}
	post, err := p.repos.Posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			notFound(ctx, 40401, "post not found")
			return nil, false
		}
		serverError(ctx, 50028, "failed to load post", err)
		return nil, false
	}
	return post, true
}

// loadEditablePost loads the post and, when ownership enforcement is on, rejects non-authors.
func (p *PostController) loadEditablePost(ctx *gin.Context) (*models.Post, bool) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return nil, false
	}
	if config.Get().EnforceEditOwnership {
		if userID, _ := getUserID(ctx); userID != post.AuthorID {
			utils.Error(ctx, http.StatusForbidden, 40302, "only the author can edit this post")
			return nil, false
		}
	}
	return post, true
}

// bindPostForm binds text, group and the optional image, then validates them.
func (p *PostController) bindPostForm(ctx *gin.Context) (forms.PostForm, forms.FieldErrors, bool) {
	var form forms.PostForm
	if err := ctx.ShouldBind(&form); err != nil {
		utils.Sugar.Debugf("post form bind failed: %v", err)
	}
	if file, err := ctx.FormFile("image"); err == nil {
		form.Image = file
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		utils.Sugar.Debugf("post form image read failed: %v", err)
	}

	errs, err := form.Validate(ctx.Request.Context(), p.repos.Groups)
	if err != nil {
		serverError(ctx, 50021, "failed to load group", err)
		return form, nil, false
	}
	return form, errs, true
}

func (p *PostController) renderPostForm(ctx *gin.Context, status int, form forms.PostForm, errs forms.FieldErrors, post *models.Post) {
	groups, err := p.repos.Groups.List(ctx.Request.Context())
	if err != nil {
		serverError(ctx, 50021, "failed to list groups", err)
		return
	}
	data := gin.H{
		"form":    form,
		"errors":  errs,
		"groups":  groups,
		"is_edit": post != nil,
	}
	if post != nil {
		data["post_id"] = post.ID
	}
	p.render.Render(ctx, status, viewPostForm, data)
}
