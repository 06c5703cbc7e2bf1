package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"scrape-portal/internal/database"
	"scrape-portal/internal/jobs"
	"scrape-portal/internal/middleware"
	"scrape-portal/internal/models"
	"scrape-portal/pkg/keywords"
)

// SubmitJobRequest accepts either free text or an explicit keyword list.
type SubmitJobRequest struct {
	Input    string   `json:"input"`
	Keywords []string `json:"keywords"`
}

func (r SubmitJobRequest) parsed() []string {
	if len(r.Keywords) > 0 {
		return keywords.Clean(r.Keywords)
	}
	return keywords.Parse(r.Input)
}

// History lists a user's past submissions.
type History interface {
	ListForUser(ctx context.Context, userID uint, limit int) ([]models.Submission, error)
}

// currentUser is the authenticated caller. Its email comes from the token,
// never from the request.
func currentUser(c *gin.Context) models.User {
	return models.User{
		ID:    c.GetUint(middleware.UserIDKey),
		Email: c.GetString(middleware.UserEmailKey),
	}
}

func SubmitJob(submitter *jobs.Submitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		submitted, err := submitter.Submit(c.Request.Context(), currentUser(c), req.parsed())
		if err != nil {
			respondError(c, "Failed to submit job", err)
			return
		}

		c.JSON(http.StatusCreated, submitted)
	}
}

func ListJobs(lister *jobs.Lister) gin.HandlerFunc {
	return func(c *gin.Context) {
		states, err := jobs.ParseStates(c.Query("state"))
		if err != nil {
			respondError(c, "Invalid state filter", err)
			return
		}

		list, err := lister.ListByState(c.Request.Context(), currentUser(c).Email, states...)
		if err != nil {
			respondError(c, "Failed to fetch jobs", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"jobs": list})
	}
}

func GetHistory(history History) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := history.ListForUser(c.Request.Context(), currentUser(c).ID, database.MaxHistory)
		if err != nil {
			respondError(c, "Failed to fetch history", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"submissions": subs})
	}
}
