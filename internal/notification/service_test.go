package notification

import (
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	target  string
	event   string
	payload map[string]interface{}
}

type recorder struct {
	family []published
	member []published
}

func (r *recorder) PublishToFamily(familyID, event string, payload map[string]interface{}) {
	r.family = append(r.family, published{familyID, event, payload})
}

func (r *recorder) PublishToMember(memberID, event string, payload map[string]interface{}) {
	r.member = append(r.member, published{memberID, event, payload})
}

func newService() (*Service, *recorder) {
	rec := &recorder{}
	s := NewService(rec, logger.Discard().Component("Notification"))
	s.clock = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }
	return s, rec
}

func TestPublishToFamily_Decorates(t *testing.T) {
	s, rec := newService()

	s.PublishToFamily("fam-1", TypePointsUpdated, map[string]interface{}{
		"member_email": "kid@example.com",
		"total_points": 45,
		"points":       -5,
		"reason":       "penalty",
	})

	require.Len(t, rec.family, 1)
	got := rec.family[0]
	assert.Equal(t, "fam-1", got.target)
	assert.Equal(t, TypePointsUpdated, got.event)
	assert.Equal(t, "Points Updated", got.payload["title"])
	assert.Equal(t, "kid@example.com lost 5 points (Penalty). New balance: 45", got.payload["message"])
	assert.Equal(t, TypePointsUpdated, got.payload["type"])
	assert.Equal(t, 45, got.payload["data"].(map[string]interface{})["total_points"])
}

func TestCompose(t *testing.T) {
	tests := []struct {
		event   string
		payload map[string]interface{}
		title   string
		message string
	}{
		{
			event:   TypeTaskAssigned,
			payload: map[string]interface{}{"member_mail": "kid@example.com", "task_title": "Dishes", "approved": true},
			title:   "Task Assigned",
			message: "kid@example.com has been assigned to task: Dishes",
		},
		{
			event:   TypeTaskAssigned,
			payload: map[string]interface{}{"member_mail": "kid@example.com", "task_title": "Dishes", "approved": false},
			title:   "Assignment Needs Approval",
			message: `kid@example.com was assigned "Dishes" and is waiting for a parent`,
		},
		{
			event:   TypeRedeemRequested,
			payload: map[string]interface{}{"requester": "kid@example.com", "point_cost": 80, "request_text": "Movie"},
			title:   "Redemption Requested",
			message: "kid@example.com wants to redeem 80 points: Movie",
		},
		{
			event:   TypeRedeemReviewed,
			payload: map[string]interface{}{"requester": "kid@example.com", "status": "awaiting_user_approval"},
			title:   "Redemption Reviewed",
			message: "Redemption request from kid@example.com is Awaiting User Approval",
		},
		{
			event:   TypeMemberAdded,
			payload: map[string]interface{}{"username": "kid"},
			title:   "Member Added",
			message: "kid joined the family",
		},
	}

	for _, tc := range tests {
		t.Run(tc.event, func(t *testing.T) {
			title, message := compose(tc.event, tc.payload)
			assert.Equal(t, tc.title, title)
			assert.Equal(t, tc.message, message)
		})
	}
}

func TestUnknownEventAndEmptyTarget(t *testing.T) {
	s, rec := newService()

	s.PublishToMember("member-1", "custom_event", nil)
	require.Len(t, rec.member, 1)
	assert.Equal(t, "Custom Event", rec.member[0].payload["title"])

	s.PublishToFamily("", TypeMemberRemoved, nil)
	s.PublishToMember("", TypeMemberRemoved, nil)
	assert.Len(t, rec.family, 0)
	assert.Len(t, rec.member, 1)
}
