// entitlement решает, может ли пользователь смотреть элемент курса, и следит
// за истечением доступа по коду.
//
// Порядок решения для платного элемента (первое совпадение выигрывает):
//  1. администратор — доступ есть;
//  2. доступ по коду с наступившим accessEndAt — доступа нет, даже если
//     закэшированный hasAccess говорит обратное;
//  3. hasAccess — доступ есть;
//  4. запись о покупке, по умолчанию false.
//
// Бесплатные элементы (price <= 0) доступны всегда.
package entitlement

import "github.com/MohamedElaraby99/socrates-sub000/internal/models"

// Capabilities — всё, что зависит от роли. Единственное место ветвления по роли.
type Capabilities struct {
	BypassesPurchase     bool
	CanManageFinancials  bool
	CanManageInstructors bool
	CanManageGrades      bool
}

func ResolveCapabilities(u models.User) Capabilities {
	admin := u.Role.IsAdmin()

	return Capabilities{
		BypassesPurchase:     admin,
		CanManageFinancials:  admin,
		CanManageInstructors: admin,
		CanManageGrades:      admin,
	}
}
