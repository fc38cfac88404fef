package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yatube/yatube/utils"
)

type cachedPage struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func pageKey(prefix, uri string) string {
	return prefix + ":" + uri
}

// InvalidatePages drops every page CachePage stored under prefix.
func InvalidatePages(ctx context.Context, store utils.CacheStore, prefix string) error {
	return store.InvalidateByPrefix(ctx, pageKey(prefix, ""))
}

// CachePage serves successful GET responses from store for ttl, keyed by prefix and request URI.
// Ordinary writes never invalidate the entry; it disappears on expiry, store.Clear or InvalidatePages.
func CachePage(store utils.CacheStore, ttl time.Duration, prefix string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet {
			ctx.Next()
			return
		}

		key := pageKey(prefix, ctx.Request.URL.RequestURI())
		if raw, ok := store.Get(ctx.Request.Context(), key); ok {
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil {
				ctx.Header("X-Cache", "HIT")
				ctx.Data(http.StatusOK, page.ContentType, page.Body)
				ctx.Abort()
				return
			}
		}

		w := &bodyCaptureWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = w
		ctx.Next()

		if w.Status() != http.StatusOK || ctx.IsAborted() {
			return
		}
		raw, err := json.Marshal(cachedPage{ContentType: w.Header().Get("Content-Type"), Body: w.body.Bytes()})
		if err != nil {
			return
		}
		if err := store.Set(ctx.Request.Context(), key, raw, ttl); err != nil {
			utils.Sugar.Warnf("page cache set failed key=%s err=%v", key, err)
		}
	}
}
