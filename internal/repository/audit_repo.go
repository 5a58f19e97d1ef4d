package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finance-auth/internal/model"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, event model.AuthEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO auth_events (action, occurred_at, member_id, email, client_ip, status, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(event.Action), event.OccurredAt, event.MemberID, event.Email, event.IP,
		event.Status, event.Detail)
	if err != nil {
		return fmt.Errorf("log auth event: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.AuthEventQuery) ([]model.AuthEvent, model.Meta, error) {
	query.Normalize()

	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if action := strings.TrimSpace(query.Action); action != "" {
		where = append(where, fmt.Sprintf("lower(action) = lower($%d)", argIdx))
		args = append(args, action)
		argIdx++
	}
	if query.MemberID != nil {
		where = append(where, fmt.Sprintf("member_id = $%d", argIdx))
		args = append(args, *query.MemberID)
		argIdx++
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		where = append(where, fmt.Sprintf("lower(status) = lower($%d)", argIdx))
		args = append(args, status)
		argIdx++
	}
	if !query.From.IsZero() {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", argIdx))
		args = append(args, query.From.UTC())
		argIdx++
	}
	if !query.To.IsZero() {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", argIdx))
		args = append(args, query.To.UTC())
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM auth_events %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count auth events: %w", err)
	}
	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, action, occurred_at, member_id, email, client_ip, status, detail
		 FROM auth_events %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query auth events: %w", err)
	}
	defer rows.Close()

	events := make([]model.AuthEvent, 0)
	for rows.Next() {
		var e model.AuthEvent
		var action string
		if err := rows.Scan(&e.ID, &action, &e.OccurredAt, &e.MemberID, &e.Email, &e.IP, &e.Status, &e.Detail); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan auth event: %w", err)
		}
		e.Action = model.AuthAction(action)
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}

	return events, meta, rows.Err()
}
