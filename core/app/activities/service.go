package activities

import (
	"encoding/json"
	"fmt"
	"strings"

	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/pagination"
	"backoffice/core/types"

	"gorm.io/gorm"
)

const defaultLimit = 20

type ActivityService struct {
	DB     *gorm.DB
	Logger logger.Logger
}

func NewActivityService(db *gorm.DB, logger logger.Logger) *ActivityService {
	return &ActivityService{
		DB:     db,
		Logger: logger,
	}
}

// Record stores one activity. Metadata is marshalled as JSON when not nil.
func (s *ActivityService) Record(entityType, entityId, action, description string, metadata any) (*Activity, error) {
	item := &Activity{
		EntityType:  entityType,
		EntityId:    entityId,
		Action:      action,
		Description: description,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		item.Metadata = raw
	}

	if err := s.DB.Create(item).Error; err != nil {
		s.Logger.Error("failed to record activity",
			logger.String("entity_type", entityType),
			logger.String("action", action),
			logger.String("error", err.Error()))
		return nil, err
	}
	return item, nil
}

// Track records an activity for every emission of events. The action is the
// part of the event name after the last dot.
func (s *ActivityService) Track(em *emitter.Emitter, events ...string) {
	for _, event := range events {
		action := event[strings.LastIndex(event, ".")+1:]
		if action == "" {
			action = event
		}
		em.On(event, func(data any) {
			subject, ok := data.(Subject)
			if !ok {
				return
			}
			entityType, entityId := subject.ActivityEntity()
			description := fmt.Sprintf("%s %s", strings.ToUpper(action[:1])+action[1:], entityType)
			if entityId != "" {
				description += " record " + entityId
			}
			_, _ = s.Record(entityType, entityId, action, description, data)
		})
	}
}

// List returns one page of activities, newest first
func (s *ActivityService) List(req ListActivitiesRequest) (*types.PaginatedResponse, error) {
	query := s.DB.Model(&Activity{})
	if req.EntityType != "" {
		query = query.Where("entity_type = ?", req.EntityType)
	}
	if req.EntityId != "" {
		query = query.Where("entity_id = ?", req.EntityId)
	}
	if req.Action != "" {
		query = query.Where("action = ?", req.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		s.Logger.Error("failed to count activities", logger.String("error", err.Error()))
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	totalPages := pagination.TotalPages(int(total), limit)
	if totalPages == 0 {
		page = 1
	} else if page > totalPages {
		page = totalPages
	}

	var items []Activity
	if err := query.Order("id desc").Offset((page - 1) * limit).Limit(limit).Find(&items).Error; err != nil {
		s.Logger.Error("failed to list activities", logger.String("error", err.Error()))
		return nil, err
	}
	if items == nil {
		items = []Activity{}
	}

	return &types.PaginatedResponse{
		Data: items,
		Pagination: types.Pagination{
			Total:      int(total),
			Page:       page,
			PageSize:   limit,
			TotalPages: totalPages,
		},
	}, nil
}

// Recent returns the latest activities
func (s *ActivityService) Recent(limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var items []Activity
	if err := s.DB.Order("id desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
