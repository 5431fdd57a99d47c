package identity

import "slices"

const (
	RoleOwner             = "owner"
	RoleWorker            = "worker"
	RoleEditor            = "editor"
	RoleWorkerEditor      = "worker_editor"
	RoleTransporter       = "transporter"
	RoleTransporterWorker = "transporter_worker"
)

var Roles = []string{RoleOwner, RoleWorker, RoleEditor, RoleWorkerEditor, RoleTransporter, RoleTransporterWorker}

const (
	PermLedgerRead     = "ledger.read"
	PermLedgerWrite    = "ledger.write"
	PermSalaryReadOwn  = "salary.read_own"
	PermSalaryManage   = "salary.manage"
	PermUsersManage    = "users.manage"
	PermAuditRead      = "audit.read"
	PermNotificationsR = "notifications.read"
)

var staffPermissions = []string{PermSalaryReadOwn, PermNotificationsR}

var RolePermissions = map[string][]string{
	RoleOwner: {
		PermLedgerRead,
		PermLedgerWrite,
		PermSalaryReadOwn,
		PermSalaryManage,
		PermUsersManage,
		PermAuditRead,
		PermNotificationsR,
	},
	RoleWorker:            staffPermissions,
	RoleEditor:            staffPermissions,
	RoleWorkerEditor:      staffPermissions,
	RoleTransporter:       staffPermissions,
	RoleTransporterWorker: staffPermissions,
}

func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

// CanTransport reports whether the role takes transport assignments.
func CanTransport(role string) bool {
	return role == RoleTransporter || role == RoleTransporterWorker
}

func HasPermission(role, permission string) bool {
	return slices.Contains(RolePermissions[role], permission)
}
