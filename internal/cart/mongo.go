package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	Key             string         `bson:"_id"`
	Items           []lineDocument `bson:"items"`
	DeliveryMethod  string         `bson:"delivery_method"`
	PaymentMethod   string         `bson:"payment_method"`
	DeliveryAddress string         `bson:"delivery_address"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	MenuItemID  int64                `bson:"menu_item_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	ImageURL    *string              `bson:"image_url,omitempty"`
	CategoryID  int64                `bson:"category_id"`
	Available   bool                 `bson:"available"`
	Quantity    int                  `bson:"quantity"`
}

// ConnectMongoDB opens a client and returns the named database.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

type MongoPersister struct {
	collection *mongo.Collection
}

func NewMongoPersister(db *mongo.Database) *MongoPersister {
	return &MongoPersister{collection: db.Collection("carts")}
}

func (m *MongoPersister) Load(ctx context.Context, key string) (*Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.toCart()
}

func (m *MongoPersister) Save(ctx context.Context, key string, c *Cart) error {
	doc, err := newCartDocument(key, c)
	if err != nil {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoPersister) Delete(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func newCartDocument(key string, c *Cart) (*cartDocument, error) {
	doc := &cartDocument{
		Key:             key,
		Items:           make([]lineDocument, 0, len(c.Items)),
		DeliveryMethod:  string(c.DeliveryMethod),
		PaymentMethod:   string(c.PaymentMethod),
		DeliveryAddress: c.DeliveryAddress,
		UpdatedAt:       time.Now().UTC(),
	}
	for _, l := range c.Items {
		price, err := primitive.ParseDecimal128(l.MenuItem.Price.String())
		if err != nil {
			return nil, fmt.Errorf("encode price of item %d: %w", l.MenuItem.ID, err)
		}
		doc.Items = append(doc.Items, lineDocument{
			MenuItemID:  l.MenuItem.ID,
			Name:        l.MenuItem.Name,
			Description: l.MenuItem.Description,
			Price:       price,
			ImageURL:    l.MenuItem.ImageURL,
			CategoryID:  l.MenuItem.CategoryID,
			Available:   l.MenuItem.Available,
			Quantity:    l.Quantity,
		})
	}
	return doc, nil
}

func (d *cartDocument) toCart() (*Cart, error) {
	c := &Cart{
		Items:           make([]Line, 0, len(d.Items)),
		DeliveryMethod:  domain.DeliveryMethod(d.DeliveryMethod),
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		DeliveryAddress: d.DeliveryAddress,
	}
	for _, l := range d.Items {
		price, err := decimal.NewFromString(l.Price.String())
		if err != nil {
			return nil, fmt.Errorf("decode price of item %d: %w", l.MenuItemID, err)
		}
		c.Items = append(c.Items, Line{
			MenuItem: domain.MenuItem{
				ID:          l.MenuItemID,
				Name:        l.Name,
				Description: l.Description,
				Price:       price,
				ImageURL:    l.ImageURL,
				CategoryID:  l.CategoryID,
				Available:   l.Available,
			},
			Quantity: l.Quantity,
		})
	}
	return c, nil
}
