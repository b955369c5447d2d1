package search

import "backoffice/core/value"

// SearchResponse groups global search hits by table tag
type SearchResponse struct {
	Query    string                    `json:"query"`
	Total    int                       `json:"total"`
	Results  map[string][]SearchResult `json:"results"`
	Modules  []string                  `json:"modules"`
	Duration string                    `json:"duration"`
}

type SearchResult struct {
	Id          string      `json:"id"`
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Subtitle    string      `json:"subtitle"`
	Description string      `json:"description"`
	URL         string      `json:"url"`
	Metadata    value.Value `json:"metadata"`
}

type SearchRequest struct {
	Query   string `query:"q" binding:"required,min=2" example:"activa"`
	Modules string `query:"modules" example:"booking,customers"`
	Limit   int    `query:"limit" binding:"omitempty,min=1,max=100" example:"20"`
}

// FieldsResponse lists the search fields of one tag
type FieldsResponse struct {
	Tag    string   `json:"tag"`
	Known  bool     `json:"known"`
	Fields []string `json:"fields"`
}
