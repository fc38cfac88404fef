package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func zapFields(ctx *gin.Context, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.String("request_id", ctx.GetString("request_id")),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if id, ok := getUserID(ctx); ok {
		fields = append(fields, zap.Uint("user_id", id))
	}
	return fields
}
