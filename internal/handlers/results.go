package handlers

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"scrape-portal/internal/results"
)

// resultName strips the leading slash gin leaves on catch-all params.
func resultName(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("name"), "/")
}

func ListResults(catalog *results.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := catalog.List(c.Request.Context(), currentUser(c).Email)
		if err != nil {
			respondError(c, "Failed to list results", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"results": list})
	}
}

// ViewResult renders the first rows of a result file as JSON.
func ViewResult(catalog *results.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows := results.DefaultPreviewRows
		if raw := c.Query("rows"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "rows must be a positive integer"})
				return
			}
			rows = n
		}

		data, key, err := catalog.FetchForUser(c.Request.Context(), currentUser(c).Email, resultName(c))
		if err != nil {
			respondError(c, "Failed to fetch result", err)
			return
		}

		table, err := results.Preview(data, rows)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "Result is not readable as CSV",
				"detail": err.Error(),
				"path":   key,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"path":      key,
			"size":      len(data),
			"header":    table.Header,
			"rows":      table.Rows,
			"truncated": table.Truncated,
		})
	}
}

// DownloadResult serves the stored bytes unchanged.
func DownloadResult(catalog *results.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, key, err := catalog.FetchForUser(c.Request.Context(), currentUser(c).Email, resultName(c))
		if err != nil {
			respondError(c, "Failed to fetch result", err)
			return
		}

		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
		c.Data(http.StatusOK, "text/csv", data)
	}
}
