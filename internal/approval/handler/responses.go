package handler

import (
	"time"

	"warden/internal/approval"
	"warden/internal/approval/ports"
	"warden/pkg/platform/audit"
)

type entryResponse struct {
	CommunityID      string     `json:"community_id"`
	CommunityName    string     `json:"community_name,omitempty"`
	ParticipantID    string     `json:"participant_id"`
	ParticipantName  string     `json:"participant_name,omitempty"`
	InviterID        string     `json:"inviter_id,omitempty"`
	InviterName      string     `json:"inviter_name,omitempty"`
	AccountAgeDays   int        `json:"account_age_days,omitempty"`
	State            string     `json:"state"`
	DetectedAt       time.Time  `json:"detected_at"`
	Deadline         time.Time  `json:"deadline"`
	RemainingSeconds int        `json:"remaining_seconds"`
	ReviewerID       string     `json:"reviewer_id,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

func toEntryResponse(entry approval.PendingApproval, now time.Time) entryResponse {
	resp := entryResponse{
		CommunityID:     entry.CommunityID,
		CommunityName:   entry.CommunityName,
		ParticipantID:   entry.ParticipantID,
		ParticipantName: entry.ParticipantName,
		InviterID:       entry.InviterID,
		InviterName:     entry.InviterName,
		AccountAgeDays:  entry.AccountAgeDays,
		State:           entry.State.String(),
		DetectedAt:      entry.DetectedAt,
		Deadline:        entry.Deadline(),
		ReviewerID:      entry.ReviewerID,
		Reason:          entry.Reason,
	}
	if entry.State == approval.StatePending {
		resp.RemainingSeconds = int(entry.Remaining(now).Seconds())
	}
	if !entry.ResolvedAt.IsZero() {
		resolvedAt := entry.ResolvedAt
		resp.ResolvedAt = &resolvedAt
	}
	return resp
}

type statusResponse struct {
	CommunityID   string          `json:"community_id"`
	Pending       []entryResponse `json:"pending"`
	AllowlistSize int             `json:"allowlist_size"`
	Stats         statsResponse   `json:"stats"`
}

func toStatusResponse(communityID string, status ports.Status, now time.Time) statusResponse {
	resp := statusResponse{
		CommunityID:   communityID,
		Pending:       make([]entryResponse, 0, len(status.Pending)),
		AllowlistSize: status.AllowlistSize,
		Stats:         toStatsResponse(status.Stats),
	}
	for _, entry := range status.Pending {
		resp.Pending = append(resp.Pending, toEntryResponse(entry, now))
	}
	return resp
}

type pendingResponse struct {
	CommunityID string          `json:"community_id"`
	Pending     []entryResponse `json:"pending"`
}

type statsResponse struct {
	TotalActions int            `json:"total_actions"`
	Detected     int            `json:"detected"`
	Approved     int            `json:"approved"`
	Rejected     int            `json:"rejected"`
	TimedOut     int            `json:"timed_out"`
	Recent24h    windowResponse `json:"recent_24h"`
}

type windowResponse struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	TimedOut int `json:"timed_out"`
}

func toStatsResponse(stats audit.Stats) statsResponse {
	return statsResponse{
		TotalActions: stats.TotalActions,
		Detected:     stats.Detected,
		Approved:     stats.Approved,
		Rejected:     stats.Rejected,
		TimedOut:     stats.TimedOut,
		Recent24h: windowResponse{
			Total:    stats.Recent24h.Total,
			Approved: stats.Recent24h.Approved,
			Rejected: stats.Recent24h.Rejected,
			TimedOut: stats.Recent24h.TimedOut,
		},
	}
}

type eventResponse struct {
	ID              string            `json:"id,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	Category        string            `json:"category"`
	Action          string            `json:"action"`
	CommunityID     string            `json:"community_id,omitempty"`
	ParticipantID   string            `json:"participant_id,omitempty"`
	ParticipantName string            `json:"participant_name,omitempty"`
	ActorID         string            `json:"actor_id,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Detail          map[string]string `json:"detail,omitempty"`
}

func toEventResponses(events []audit.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, eventResponse{
			ID:              event.ID,
			Timestamp:       event.Timestamp,
			Category:        string(event.Category),
			Action:          event.Action,
			CommunityID:     event.CommunityID,
			ParticipantID:   event.ParticipantID,
			ParticipantName: event.ParticipantName,
			ActorID:         event.ActorID,
			Reason:          event.Reason,
			Detail:          event.Detail,
		})
	}
	return out
}

type logsResponse struct {
	CommunityID string          `json:"community_id"`
	Events      []eventResponse `json:"events"`
}

type historyResponse struct {
	ParticipantID string          `json:"participant_id"`
	Events        []eventResponse `json:"events"`
}
