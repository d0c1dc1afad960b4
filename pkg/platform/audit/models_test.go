package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditEventCategory(t *testing.T) {
	tests := []struct {
		event AuditEvent
		want  EventCategory
	}{
		{EventBadgeIssued, CategoryCompliance},
		{EventBadgeRevoked, CategoryCompliance},
		{EventBadgeReinstated, CategoryCompliance},
		{EventScanRejected, CategorySecurity},
		{EventCheckInRecorded, CategoryOperations},
		{EventCheckInDuplicate, CategoryOperations},
		{AuditEvent("something_new"), CategoryOperations},
	}
	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Category())
		})
	}
}
