package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Renderer turns a named view and its context into a response.
type Renderer interface {
	Render(ctx *gin.Context, status int, view string, data gin.H)
}

// JSONRenderer writes the view context inside the standard envelope,
// naming the view under data.view.
type JSONRenderer struct{}

func (JSONRenderer) Render(ctx *gin.Context, status int, view string, data gin.H) {
	payload := gin.H{"view": view}
	for k, v := range data {
		payload[k] = v
	}
	if status >= http.StatusBadRequest {
		Respond(ctx, status, status*100, "invalid form", payload)
		return
	}
	Respond(ctx, status, 0, "success", payload)
}
