package types

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is returned by endpoints with no payload of their own
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Pagination describes the page window of a list response
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// PaginatedResponse wraps a page of items
type PaginatedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
