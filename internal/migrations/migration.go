package migrations

import (
	"context"
	"errors"
	"log"

	"bakery_tracker/internal/models"
	"bakery_tracker/internal/repository"
	"bakery_tracker/internal/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunMigrations brings the schema up to date and seeds the catalog and the
// order sequence counter. Existing data is never dropped.
func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.Product{},
		&models.SequenceCounter{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return err
	}

	if err := createDefaultData(db); err != nil {
		log.Printf("Warning: Failed to create default data: %v", err)
	}

	log.Println("Database migrations completed successfully!")
	return nil
}

// createDefaultData inserts the counter row and any missing catalog products.
func createDefaultData(db *gorm.DB) error {
	counter := models.SequenceCounter{Name: models.OrderSequence}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return err
	}

	return SeedCatalog(context.Background(), repository.NewProductRepository(db), services.DefaultCatalog)
}

// SeedCatalog adds the products that are not in the catalog yet.
func SeedCatalog(ctx context.Context, products repository.ProductRepository, catalog []models.Product) error {
	for _, p := range catalog {
		_, err := products.GetByName(ctx, p.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		product := p
		if err := products.Create(ctx, &product); err != nil {
			return err
		}
		log.Printf("Seeded product %s at Q%s", product.Name, product.UnitPrice.StringFixed(2))
	}
	return nil
}
