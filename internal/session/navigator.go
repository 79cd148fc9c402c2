package session

// Navigator уводит пользователя на маршрут (в веб-клиенте — смена location).
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc — адаптер функции к Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}
