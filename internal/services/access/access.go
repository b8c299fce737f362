// Package access содержит политику доступа к ресурсам биллинга.
// Единая пара предикатов используется всеми менеджерами жизненного цикла
// вместо разрозненных проверок роли в каждой операции.
package access

import (
	"fmt"

	"github.com/magabrotheeeer/membership-billing/internal/errs"
	"github.com/magabrotheeeer/membership-billing/internal/models"
)

// CanAccess сообщает, может ли актор работать с ресурсом, принадлежащим
// ownerUID: разрешено владельцу и администратору.
func CanAccess(actor models.Actor, ownerUID string) bool {
	return actor.IsAdmin() || actor.UID == ownerUID
}

// Require возвращает errs.ErrForbidden, если актору недоступен ресурс,
// принадлежащий ownerUID. Нарушение доступа — явная ошибка,
// а не молчаливая фильтрация.
func Require(actor models.Actor, ownerUID string) error {
	if !CanAccess(actor, ownerUID) {
		return errs.ErrForbidden
	}
	return nil
}

// RequireRole возвращает errs.ErrForbidden, если роль актора не совпадает
// с требуемой.
func RequireRole(actor models.Actor, role string) error {
	if actor.Role != role {
		return fmt.Errorf("%s role required: %w", role, errs.ErrForbidden)
	}
	return nil
}
