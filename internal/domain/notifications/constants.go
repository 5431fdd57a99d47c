package notifications

const (
	TypeSalary  = "salary"
	TypeGeneral = "general"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)
