package services

import (
	"task-tracker/pkg/constants"

	sq "github.com/Masterminds/squirrel"
)

// BuildTaskVisibility строит предикат видимости задач по роли запрашивающего.
// Чистая функция без побочных эффектов, результат добавляется к запросу
// через AND и не может быть ослаблен клиентскими фильтрами.
//
// admin видит все задачи. manager видит задачи своего домашнего департамента
// (без домашнего департамента не видит ничего). employee видит только
// созданные им задачи.
func BuildTaskVisibility(role string, userID uint64, homeDepartmentID *uint64) sq.Sqlizer {
	switch role {
	case constants.RoleAdmin:
		return nil
	case constants.RoleManager:
		if homeDepartmentID == nil {
			return sq.Expr("FALSE")
		}
		return sq.Eq{"t.department_id": *homeDepartmentID}
	default:
		return sq.Eq{"t.created_by_id": userID}
	}
}
