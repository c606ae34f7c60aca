package worker

import (
	"github.com/hoyn-app/profile-qr/internal/service"
)

// StartScanAuditWorker registers the audit handlers on the dispatcher.
func StartScanAuditWorker(audit *service.ScanAuditService) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}
