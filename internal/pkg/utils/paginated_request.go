package utils

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/reject"
)

const (
	pageSizeInvalid  string = "error.request.page-size-invalid"
	pageTokenInvalid string = "error.request.page-token-invalid"

	defaultPageSize = 20
	maxPageSize     = 100
)

type PageRequest struct {
	Size   int
	Token  int
	Offset int
}

// NewPageRequest reads page_size and page_token from the query. Missing values fall back to
// the first page of defaultPageSize items.
func NewPageRequest(c *gin.Context) (PageRequest, *reject.ProblemWithTrace) {
	pageSize, pageSizeError := queryInt(c, "page_size", defaultPageSize)
	if pageSizeError != nil || pageSize <= 0 {
		return PageRequest{}, &reject.ProblemWithTrace{
			Problem: reject.NewProblem().
				WithTitle("Page size must be a positive number").
				WithStatus(http.StatusBadRequest).
				WithCode(pageSizeInvalid).
				Build(),
			Cause: pageSizeError,
		}
	}

	pageToken, pageTokenError := queryInt(c, "page_token", 0)
	if pageTokenError != nil || pageToken < 0 {
		return PageRequest{}, &reject.ProblemWithTrace{
			Problem: reject.NewProblem().
				WithTitle("Page token must be a non-negative number").
				WithStatus(http.StatusBadRequest).
				WithCode(pageTokenInvalid).
				Build(),
			Cause: pageTokenError,
		}
	}

	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return PageRequest{
		Size:   pageSize,
		Token:  pageToken,
		Offset: pageSize * pageToken,
	}, nil
}

// NextToken returns the token of the page after p, or nil when itemCount is exhausted.
func (p PageRequest) NextToken(itemCount int64) *int64 {
	if itemCount > int64((p.Token+1)*p.Size) {
		next := int64(p.Token + 1)
		return &next
	}
	return nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
