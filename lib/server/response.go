package server

import (
	"net/http"

	"github.com/ftchann/uniswap-quoter/lib/invariant"
	"github.com/ftchann/uniswap-quoter/lib/result"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, status int, err string) {
	c.JSON(status, Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(c *gin.Context, err string) {
	Error(c, http.StatusBadRequest, err)
}

func NotFound(c *gin.Context, err string) {
	Error(c, http.StatusNotFound, err)
}

// Failure reports err with the status of its category and data, which may
// hold a partial result.
func Failure(c *gin.Context, err error, data interface{}) {
	c.JSON(StatusFor(err), Response{
		Success: false,
		Data:    data,
		Error:   err.Error(),
	})
}

// StatusFor maps overflows to 422 and every other error to 400.
func StatusFor(err error) int {
	return StatusForKind(result.ErrorKind(err))
}

// StatusForKind is StatusFor for the error kind recorded in a quote.
func StatusForKind(kind string) int {
	if kind == result.ErrorKind(invariant.ErrOverflow) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}
