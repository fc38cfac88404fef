package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

// Views rendered by the content and mutation handlers.
const (
	viewIndex      = "posts/index.html"
	viewGroupList  = "posts/group_list.html"
	viewProfile    = "posts/profile.html"
	viewPostDetail = "posts/post_detail.html"
	viewFollow     = "posts/follow.html"
	viewPostForm   = "posts/create_post.html"
	viewSignup     = "users/signup.html"
	viewLogin      = "users/login.html"
)

// content holds the collaborators shared by the feed views.
type content struct {
	repos   *repositories.Repositories
	media   utils.ImageStorage
	render  utils.Renderer
	perPage int
}

// feed loads the requested page of posts matching filter.
func (c *content) feed(ctx *gin.Context, filter repositories.PostFilter) (utils.Page, []gin.H, error) {
	total, err := c.repos.Posts.Count(ctx.Request.Context(), filter)
	if err != nil {
		return utils.Page{}, nil, err
	}
	page := utils.Paginate(total, c.perPage, ctx.Query("page"))
	if page.Len() == 0 {
		return page, []gin.H{}, nil
	}
	posts, err := c.repos.Posts.List(ctx.Request.Context(), filter, page.Offset(), page.Len())
	if err != nil {
		return utils.Page{}, nil, err
	}
	return page, c.presentPosts(posts), nil
}

func (c *content) presentPosts(posts []models.Post) []gin.H {
	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, c.presentPost(&posts[i]))
	}
	return items
}

func (c *content) presentPost(post *models.Post) gin.H {
	item := gin.H{
		"id":        post.ID,
		"text":      post.Text,
		"text_html": utils.SanitizeText(post.Text),
		"pub_date":  post.PubDate.Format(time.RFC3339),
		"author":    presentUser(&post.Author),
		"group":     nil,
		"image":     post.Image,
		"image_url": c.media.URL(post.Image),
	}
	if post.Group != nil {
		item["group"] = gin.H{"id": post.Group.ID, "title": post.Group.Title, "slug": post.Group.Slug}
	}
	return item
}

func presentUser(user *models.User) gin.H {
	return gin.H{"id": user.ID, "username": user.Username}
}

func presentComments(comments []models.Comment) []gin.H {
	items := make([]gin.H, 0, len(comments))
	for _, cm := range comments {
		items = append(items, gin.H{
			"id":        cm.ID,
			"text":      cm.Text,
			"text_html": utils.SanitizeText(cm.Text),
			"created":   cm.Created.Format(time.RFC3339),
			"author":    presentUser(&cm.Author),
		})
	}
	return items
}

// serverError logs err and answers with a 500 envelope.
func serverError(ctx *gin.Context, code int, message string, err error) {
	utils.Logger.Error(message, zapFields(ctx, err)...)
	utils.Error(ctx, http.StatusInternalServerError, code, message)
}

func notFound(ctx *gin.Context, code int, message string) {
	utils.Error(ctx, http.StatusNotFound, code, message)
}

// parsePostID reads :post_id; anything but a positive integer cannot name a post.
func parsePostID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("post_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	v, ok := value.(uint)
	return v, ok
}

func getUsername(ctx *gin.Context) string {
	return ctx.GetString(middleware.ContextUsernameKey)
}

func profileURL(username string) string {
	return "/posts/profile/" + username + "/"
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}
