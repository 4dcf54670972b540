package ingestserver

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// handleStatic serves the web client. Unknown non-API paths fall back to
// index.html so client-side routes survive a reload.
func (s *Server) handleStatic(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusMethodNotAllowed)
		return
	}
	root := strings.TrimSpace(s.cfg.Server.PublicDir)
	if root == "" {
		c.Status(http.StatusNotFound)
		return
	}
	rel := filepath.FromSlash(filepath.Clean("/" + c.Request.URL.Path))
	candidate := filepath.Join(root, rel)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		c.File(candidate)
		return
	}
	index := filepath.Join(root, "index.html")
	if _, err := os.Stat(index); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(index)
}

// describeValidation renders the first failed rule of entry i.
func describeValidation(i int, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("sentence %d: %s failed %q check", i, strings.ToLower(fe.Field()), fe.Tag())
	}
	return fmt.Sprintf("sentence %d: %v", i, err)
}
