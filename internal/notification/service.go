// Package notification turns domain events into user-facing notifications
// before they reach the realtime transport.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Notification types
const (
	TypePointsUpdated      = "points_updated"
	TypeTaskAssigned       = "task_assigned"
	TypeAssignmentApproved = "assignment_approved"
	TypeAssignmentRejected = "assignment_rejected"
	TypeTaskCompleted      = "task_completed"
	TypeTaskReviewed       = "task_reviewed"
	TypeRedeemRequested    = "redeem_requested"
	TypeRedeemReviewed     = "redeem_reviewed"
	TypeRedeemResponded    = "redeem_responded"
	TypeMemberAdded        = "member_added"
	TypeMemberRemoved      = "member_removed"
)

// Publisher delivers events to connected clients.
type Publisher interface {
	PublishToFamily(familyID string, event string, payload map[string]interface{})
	PublishToMember(memberID string, event string, payload map[string]interface{})
}

// Service decorates events with a title and message and forwards them.
type Service struct {
	publisher Publisher
	clock     func() time.Time
	log       *logrus.Entry
}

// NewService creates a new notification service
func NewService(publisher Publisher, log *logrus.Entry) *Service {
	return &Service{publisher: publisher, clock: time.Now, log: log}
}

func (s *Service) PublishToFamily(familyID string, event string, payload map[string]interface{}) {
	if familyID == "" {
		return
	}
	s.publisher.PublishToFamily(familyID, event, s.decorate(event, payload))
}

func (s *Service) PublishToMember(memberID string, event string, payload map[string]interface{}) {
	if memberID == "" {
		return
	}
	s.publisher.PublishToMember(memberID, event, s.decorate(event, payload))
}

// decorate copies payload into the notification shape clients render:
// type, title, message, data and createdAt.
func (s *Service) decorate(event string, payload map[string]interface{}) map[string]interface{} {
	title, message := compose(event, payload)
	if title == "" {
		s.log.WithField("event", event).Debug("no template for event, forwarding as is")
		title = formatType(event)
	}

	data := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		data[k] = v
	}

	return map[string]interface{}{
		"type":      event,
		"title":     title,
		"message":   message,
		"data":      data,
		"createdAt": s.clock().UTC(),
	}
}

// ============================================
// Templates
// ============================================

func compose(event string, p map[string]interface{}) (string, string) {
	switch event {
	case TypePointsUpdated:
		points := intOf(p["points"])
		verb := "earned"
		if points < 0 {
			verb = "lost"
			points = -points
		}
		return "Points Updated",
			fmt.Sprintf("%s %s %d points (%s). New balance: %d", str(p["member_email"]), verb, points, formatType(str(p["reason"])), intOf(p["total_points"]))
	case TypeTaskAssigned:
		if approved, _ := p["approved"].(bool); !approved {
			return "Assignment Needs Approval",
				fmt.Sprintf("%s was assigned %q and is waiting for a parent", str(p["member_mail"]), str(p["task_title"]))
		}
		return "Task Assigned", fmt.Sprintf("%s has been assigned to task: %s", str(p["member_mail"]), str(p["task_title"]))
	case TypeAssignmentApproved:
		return "Assignment Approved", "A task assignment was approved"
	case TypeAssignmentRejected:
		return "Assignment Rejected", "A task assignment was rejected and removed"
	case TypeTaskCompleted:
		return "Task Completed", fmt.Sprintf("%s completed %q and is waiting for review", str(p["member_mail"]), str(p["task_title"]))
	case TypeTaskReviewed:
		return "Task Reviewed", fmt.Sprintf("Task for %s was %s", str(p["member_mail"]), str(p["status"]))
	case TypeRedeemRequested:
		return "Redemption Requested",
			fmt.Sprintf("%s wants to redeem %d points: %s", str(p["requester"]), intOf(p["point_cost"]), str(p["request_text"]))
	case TypeRedeemReviewed:
		return "Redemption Reviewed", fmt.Sprintf("Redemption request from %s is %s", str(p["requester"]), formatType(str(p["status"])))
	case TypeRedeemResponded:
		return "Redemption Answered", fmt.Sprintf("%s answered the offer: %s", str(p["requester"]), formatType(str(p["status"])))
	case TypeMemberAdded:
		return "Member Added", fmt.Sprintf("%s joined the family", str(p["username"]))
	case TypeMemberRemoved:
		return "Member Removed", "A member was removed from the family"
	}
	return "", ""
}

// formatType makes "awaiting_user_approval" read as "Awaiting User Approval".
func formatType(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func intOf(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
