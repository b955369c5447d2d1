package search

import (
	"errors"
	"strings"

	"backoffice/core/dataset"
	"backoffice/core/logger"
	"backoffice/core/tablefilter"
	"backoffice/core/value"
)

const defaultLimit = 10

// ErrNoDatasets is returned when the service has no dataset store
var ErrNoDatasets = errors.New("no dataset store configured")

type SearchService struct {
	Datasets *dataset.Store
	Logger   logger.Logger
	Registry *SearchRegistry
}

func NewSearchService(datasets *dataset.Store, log logger.Logger, registry *SearchRegistry) *SearchService {
	return &SearchService{
		Datasets: datasets,
		Logger:   log,
		Registry: registry,
	}
}

// GlobalSearch filters every requested tag's Dataset with that tag's search
// fields and returns up to limit hits per tag. modules is a comma separated
// tag list; empty means every loaded tag.
func (s *SearchService) GlobalSearch(query, modules string, limit int) (*SearchResponse, error) {
	if s.Datasets == nil {
		return nil, ErrNoDatasets
	}

	response := &SearchResponse{
		Query:   query,
		Results: make(map[string][]SearchResult),
		Modules: []string{},
	}

	if limit <= 0 {
		limit = defaultLimit
	}

	var tags []string
	if strings.TrimSpace(modules) == "" {
		tags = s.Datasets.Tags()
	} else {
		for _, tag := range strings.Split(modules, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	for _, tag := range tags {
		if !s.Registry.Has(tag) {
			s.Logger.Warn("Search module not registered", logger.String("module", tag))
			continue
		}

		fields := s.Registry.Fields(tag)
		records, snap := s.Datasets.Filter(tag, query, fields)
		if snap == nil {
			s.Logger.Debug("No dataset loaded for module", logger.String("module", tag))
			continue
		}
		if len(records) == 0 {
			continue
		}

		if len(records) > limit {
			records = records[:limit]
		}
		results := make([]SearchResult, len(records))
		for i, record := range records {
			results[i] = toSearchResult(tag, fields, record)
		}

		response.Results[tag] = results
		response.Modules = append(response.Modules, tag)
		response.Total += len(results)
	}

	return response, nil
}

func toSearchResult(tag string, fields []string, record value.Value) SearchResult {
	id := displayText(record, "_id")
	result := SearchResult{
		Id:       id,
		Type:     tag,
		URL:      "/app/tables/" + tag + "/" + id,
		Metadata: record,
	}
	if len(fields) > 0 {
		result.Title = displayText(record, fields[0])
	}
	if len(fields) > 1 {
		result.Subtitle = displayText(record, fields[1])
	}
	if len(fields) > 2 {
		result.Description = displayText(record, fields[2])
	}
	return result
}

// displayText renders a field for display: like the search text but with the
// original letter case
func displayText(record value.Value, path string) string {
	v, ok := value.Resolve(record, path)
	if !ok || v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case value.KindBool:
		if v.AsBool() {
			return "Yes"
		}
		return "No"
	case value.KindDate:
		if path == tablefilter.CreatedAtField {
			return value.FormatDateGB(v.AsTime())
		}
	}
	return v.String()
}
