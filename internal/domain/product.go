package domain

// Product — товар каталога.
// Жизненный цикл заказа уменьшает остаток при создании заказа
// и восстанавливает его при одобренной отмене.
type Product struct {
	ID      string
	Name    string
	Price   int64 // Цена в минимальных единицах (пайсы)
	Stock   int32 // Остаток на складе, всегда >= 0
	InStock bool  // Производный флаг: Stock > 0
}

// DecrementStock уменьшает остаток на qty с нижней границей 0.
// Недостаток остатка не является ошибкой: заказ уже принят,
// расхождение решается оператором.
func (p *Product) DecrementStock(qty int32) {
	p.Stock -= qty
	if p.Stock < 0 {
		p.Stock = 0
	}
	p.InStock = p.Stock > 0
}

// RestoreStock возвращает qty единиц на склад (одобренная отмена заказа).
func (p *Product) RestoreStock(qty int32) {
	p.Stock += qty
	p.InStock = p.Stock > 0
}
