package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/models"
	"storefront/services"
)

// MongoCatalog is the product catalog. Cart and order code only read from it.
type MongoCatalog struct {
	products *mongo.Collection
}

func NewMongoCatalog(m *Mongo) *MongoCatalog {
	return &MongoCatalog{products: m.DB.Collection(productsCollection)}
}

func productFilter(productID string) (bson.M, error) {
	objID, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, services.ErrProductNotFound
	}
	return bson.M{"_id": objID}, nil
}

// GetProduct returns the price and availability of a product. Inactive products are
// returned like any other.
func (c *MongoCatalog) GetProduct(ctx context.Context, productID string) (models.CatalogEntry, error) {
	filter, err := productFilter(productID)
	if err != nil {
		return models.CatalogEntry{}, err
	}

	var product models.Product
	err = c.products.FindOne(ctx, filter).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CatalogEntry{}, services.ErrProductNotFound
	}
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("find product %s: %w", productID, err)
	}
	return models.CatalogEntry{ProductID: productID, Price: product.Price, Active: product.Active}, nil
}

func (c *MongoCatalog) Create(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := c.products.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (c *MongoCatalog) List(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	cursor, err := c.products.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (c *MongoCatalog) Update(ctx context.Context, productID string, patch models.ProductPatch) (*models.Product, error) {
	filter, err := productFilter(productID)
	if err != nil {
		return nil, err
	}

	update := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		update["name"] = *patch.Name
	}
	if patch.Description != nil {
		update["description"] = *patch.Description
	}
	if patch.Price != nil {
		update["price"] = *patch.Price
	}
	if patch.Stock != nil {
		update["stock"] = *patch.Stock
	}
	if patch.Active != nil {
		update["isActive"] = *patch.Active
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Product
	err = c.products.FindOneAndUpdate(ctx, filter, bson.M{"$set": update}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, services.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", productID, err)
	}
	return &updated, nil
}

func (c *MongoCatalog) Delete(ctx context.Context, productID string) error {
	filter, err := productFilter(productID)
	if err != nil {
		return err
	}
	res, err := c.products.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", productID, err)
	}
	if res.DeletedCount == 0 {
		return services.ErrProductNotFound
	}
	return nil
}
