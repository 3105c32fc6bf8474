package models

// PassStatus — внешний статус жизненного цикла пропуска
type PassStatus string

const (
	StatusActive    PassStatus = "active"
	StatusCompleted PassStatus = "completed"
	StatusExpired   PassStatus = "expired"
	StatusRevoked   PassStatus = "revoked"
)

// ParsePassStatus принимает только известные статусы
func ParsePassStatus(s string) (PassStatus, bool) {
	switch st := PassStatus(s); st {
	case StatusActive, StatusCompleted, StatusExpired, StatusRevoked:
		return st, true
	}
	return "", false
}

// Terminal — после expired/revoked identity больше не переиспользуется
func (s PassStatus) Terminal() bool {
	return s == StatusExpired || s == StatusRevoked
}

// Voided — проекция статуса в поле voided pass.json, отдельно не хранится
func (s PassStatus) Voided() bool { return s.Terminal() }

// CanTransition проверяет монотонность: active → completed → expired|revoked
func (s PassStatus) CanTransition(to PassStatus) bool {
	switch s {
	case StatusActive:
		return to == StatusCompleted || to == StatusExpired || to == StatusRevoked
	case StatusCompleted:
		return to == StatusExpired || to == StatusRevoked
	}
	return false
}
