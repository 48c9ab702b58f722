package utils

import "github.com/gin-gonic/gin"

// InternalErrorMessage is the only detail clients see for unexpected failures.
const InternalErrorMessage = "Internal server error"

// JSONResponse defines the uniform structure for API responses.
// Callers branch on Success; several distinct causes share a 400 status.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Total   *int64      `json:"total,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, body JSONResponse) {
	ctx.JSON(status, body)
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, JSONResponse{Success: true, Data: data})
}

// SuccessList returns a success response carrying a collection and its total count.
func SuccessList(ctx *gin.Context, data interface{}, total int64) {
	Respond(ctx, 200, JSONResponse{Success: true, Data: data, Total: &total})
}

// Created returns a 201 success response.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, 201, JSONResponse{Success: true, Data: data})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, message string) {
	Respond(ctx, status, JSONResponse{Success: false, Error: message})
}
