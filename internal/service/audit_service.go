package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zyllen/internal/repository"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	UserName   string          `json:"user_name"`
	ActorKind  string          `json:"actor_kind"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AuditQuery is the raw filter accepted by GET /audit-logs
type AuditQuery struct {
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	Action     string `form:"action"`
	UserID     string `form:"user_id"`
	From       string `form:"from"`
	To         string `form:"to"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, query AuditQuery, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, query AuditQuery, page, limit int) ([]AuditLogResponse, int64, error) {
	filter := repository.AuditFilter{
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		Action:     query.Action,
	}
	userID, err := parseOptionalID(&query.UserID, "user")
	if err != nil {
		return nil, 0, err
	}
	filter.UserID = userID
	if filter.From, err = parseDate(query.From, false); err != nil {
		return nil, 0, err
	}
	if filter.To, err = parseDate(query.To, true); err != nil {
		return nil, 0, err
	}

	page, limit = pageArgs(page, limit)
	logs, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := l.UserName
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		if userName == "" {
			userName = "System"
		}
		details := json.RawMessage(l.Details)
		if len(details) == 0 {
			details = json.RawMessage("{}")
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			UserName:   userName,
			ActorKind:  l.ActorKind,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    details,
			CreatedAt:  l.CreatedAt,
		})
	}
	return res, total, nil
}

// parseDate accepts RFC3339 or YYYY-MM-DD; a bare end date covers the whole day
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, validationf("invalid date '%s', expected YYYY-MM-DD", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
