package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"example.com/craftshop/internal/domain"
)

// ProductRepository определяет интерфейс для работы с товарами в БД.
type ProductRepository interface {
	// GetByID возвращает товар по ID.
	GetByID(ctx context.Context, productID string) (*domain.Product, error)

	// AdjustStock атомарно изменяет остаток товара на delta.
	// Отрицательный delta списывает, положительный восстанавливает.
	// Остаток не опускается ниже нуля.
	AdjustStock(ctx context.Context, productID string, delta int32) error

	// List возвращает товары каталога с пагинацией.
	List(ctx context.Context, offset, limit int) ([]*domain.Product, int64, error)
}

// ProductModel — GORM модель для таблицы products.
type ProductModel struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	Price     int64     `gorm:"column:price;not null"`
	Stock     int32     `gorm:"column:stock;not null;default:0"`
	InStock   bool      `gorm:"column:in_stock;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (ProductModel) TableName() string {
	return "products"
}

// toDomain конвертирует GORM модель товара в доменную сущность.
func (m *ProductModel) toDomain() *domain.Product {
	return &domain.Product{
		ID:      m.ID,
		Name:    m.Name,
		Price:   m.Price,
		Stock:   m.Stock,
		InStock: m.InStock,
	}
}

// productRepository — GORM реализация ProductRepository.
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository создаёт новый репозиторий товаров.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// GetByID возвращает товар по ID.
func (r *productRepository) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	var model ProductModel

	if err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// AdjustStock атомарно изменяет остаток товара на delta.
// GREATEST исключает отрицательный остаток при списании больше наличия.
func (r *productRepository) AdjustStock(ctx context.Context, productID string, delta int32) error {
	result := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("GREATEST(stock + ?, 0)", delta),
			"in_stock":   gorm.Expr("GREATEST(stock + ?, 0) > 0", delta),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// List возвращает товары каталога с пагинацией.
func (r *productRepository) List(ctx context.Context, offset, limit int) ([]*domain.Product, int64, error) {
	var models []ProductModel
	var totalCount int64

	query := r.db.WithContext(ctx).Model(&ProductModel{})

	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	products := make([]*domain.Product, len(models))
	for i := range models {
		products[i] = models[i].toDomain()
	}

	return products, totalCount, nil
}
